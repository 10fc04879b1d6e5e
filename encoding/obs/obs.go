// Package obs contains code for reading and writing per-library sequence
// observation files, the input format of the dereplication pipeline.  A file
// holds the dereplicated observations of one source library: a header line
// declaring the library name and total read count, then one tab-separated
// (sequence, count) row per distinct sequence, sorted ascending by sequence.
// For example:
//
// lib=gut04;size=1523
// AACGTT	12
// ACGTAC	1508
// TTTTGA	3
//
// The declared size is an integrity assertion: the counts in the body must
// sum to it exactly.
package obs

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const maxLineSize = 64 * 1024 * 1024

// Row is a single dereplicated observation: a sequence and the number of
// times it was read in this library.
type Row struct {
	Seq   string
	Count int64
}

// Reader scans one library observation file.  The header is parsed eagerly
// by NewReader; rows are streamed through Scan/Get.  After Scan returns
// false, Err reports any malformed row, ordering violation, or mismatch
// between the declared size and the summed counts.
type Reader struct {
	sc       *bufio.Scanner
	lib      string
	declared int64
	cur      Row
	sum      int64
	prevSeq  string
	nRows    int
	err      error
	done     bool
}

// NewReader reads the header line from r and returns a Reader for the rows
// that follow.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	if !sc.Scan() {
		if sc.Err() != nil {
			return nil, errors.Wrap(sc.Err(), "couldn't read observation header")
		}
		return nil, errors.New("empty observation file")
	}
	lib, declared, err := parseHeader(sc.Text())
	if err != nil {
		return nil, err
	}
	return &Reader{sc: sc, lib: lib, declared: declared}, nil
}

func parseHeader(line string) (lib string, size int64, err error) {
	sizeSeen := false
	for _, field := range strings.Split(line, ";") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return "", 0, errors.Errorf("malformed observation header %q", line)
		}
		switch kv[0] {
		case "lib":
			lib = kv[1]
		case "size":
			if size, err = strconv.ParseInt(kv[1], 10, 64); err != nil {
				return "", 0, errors.Errorf("malformed size in observation header %q", line)
			}
			sizeSeen = true
		default:
			return "", 0, errors.Errorf("unknown field %q in observation header %q", kv[0], line)
		}
	}
	if lib == "" {
		return "", 0, errors.Errorf("observation header %q missing lib=", line)
	}
	if !sizeSeen {
		return "", 0, errors.Errorf("observation header %q missing size=", line)
	}
	if size < 0 {
		return "", 0, errors.Errorf("observation header %q declares negative size", line)
	}
	return lib, size, nil
}

// Lib returns the library name declared in the header.
func (r *Reader) Lib() string { return r.lib }

// DeclaredSize returns the total read count declared in the header.
func (r *Reader) DeclaredSize() int64 { return r.declared }

// Scan advances to the next row. It returns false at end of input or on
// error; check Err after the loop.
func (r *Reader) Scan() bool {
	if r.err != nil || r.done {
		return false
	}
	if !r.sc.Scan() {
		r.done = true
		if r.sc.Err() != nil {
			r.err = errors.Wrap(r.sc.Err(), "couldn't read observation row")
		} else if r.sum != r.declared {
			r.err = errors.Errorf("library %s declares size=%d but rows sum to %d",
				r.lib, r.declared, r.sum)
		}
		return false
	}
	line := r.sc.Text()
	tab := strings.IndexByte(line, '\t')
	if tab <= 0 || tab == len(line)-1 {
		r.err = errors.Errorf("library %s: malformed observation row %q (row %d)", r.lib, line, r.nRows+1)
		return false
	}
	seq := line[:tab]
	count, err := strconv.ParseInt(line[tab+1:], 10, 64)
	if err != nil || count <= 0 {
		r.err = errors.Errorf("library %s: bad count in observation row %q (row %d)", r.lib, line, r.nRows+1)
		return false
	}
	if seq <= r.prevSeq && r.nRows > 0 {
		r.err = errors.Errorf("library %s: rows not sorted ascending by sequence at %q (row %d)", r.lib, seq, r.nRows+1)
		return false
	}
	r.cur = Row{Seq: seq, Count: count}
	r.prevSeq = seq
	r.sum += count
	r.nRows++
	return true
}

// Get returns the row read by the last successful Scan.
func (r *Reader) Get() Row { return r.cur }

// Err returns the first error encountered, including a declared-size
// mismatch detected at end of input.
func (r *Reader) Err() error { return r.err }

// Writer emits a library observation file.  Rows must be appended in
// ascending sequence order; the header's size is the caller's declaration
// and is not recomputed.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter writes the header for the named library and returns a Writer
// for its rows.
func NewWriter(w io.Writer, lib string, size int64) *Writer {
	bw := bufio.NewWriter(w)
	_, err := bw.WriteString("lib=" + lib + ";size=" + strconv.FormatInt(size, 10) + "\n")
	return &Writer{w: bw, err: err}
}

// Append writes one observation row.
func (w *Writer) Append(seq string, count int64) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(seq + "\t" + strconv.FormatInt(count, 10) + "\n")
}

// Flush flushes buffered rows and returns the first error encountered by
// the Writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
