package obs

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FastaRecord is a size-tagged FASTA record, the interchange format with the
// external clustering, search and chimera tools.  The header encodes a
// numeric id and the aggregate abundance, and for singlet records an
// additional sparse per-library breakdown:
//
// >17;size=245
// ACGTACGT
// >3;size=1;obs=4:1
// TTGACA
//
// Obs is carried verbatim; interpreting the sparse pairs is the caller's
// concern.
type FastaRecord struct {
	ID   int64
	Size int64
	Obs  string
	Seq  string
}

// WriteFasta writes recs to w in size-tagged FASTA form.
func WriteFasta(w io.Writer, recs []FastaRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		line := ">" + strconv.FormatInt(rec.ID, 10) + ";size=" + strconv.FormatInt(rec.Size, 10)
		if rec.Obs != "" {
			line += ";obs=" + rec.Obs
		}
		if _, err := bw.WriteString(line + "\n" + rec.Seq + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFasta parses all size-tagged FASTA records from r.  Multi-line
// sequence bodies are concatenated, as in standard FASTA.
func ReadFasta(r io.Reader) ([]FastaRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	var (
		recs []FastaRecord
		cur  FastaRecord
		seq  strings.Builder
		open bool
	)
	flush := func() {
		cur.Seq = seq.String()
		recs = append(recs, cur)
		seq.Reset()
	}
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if open {
				flush()
			}
			rec, err := parseFastaHeader(line[1:])
			if err != nil {
				return nil, err
			}
			cur, open = rec, true
			continue
		}
		if !open {
			return nil, errors.Errorf("sequence data before first FASTA header: %q", line)
		}
		seq.WriteString(line)
	}
	if sc.Err() != nil {
		return nil, errors.Wrap(sc.Err(), "couldn't read FASTA data")
	}
	if open {
		flush()
	}
	return recs, nil
}

func parseFastaHeader(h string) (FastaRecord, error) {
	var rec FastaRecord
	fields := strings.Split(h, ";")
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return rec, errors.Errorf("malformed FASTA header %q: bad id", h)
	}
	rec.ID = id
	rec.Size = -1
	for _, f := range fields[1:] {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return rec, errors.Errorf("malformed FASTA header %q", h)
		}
		switch kv[0] {
		case "size":
			if rec.Size, err = strconv.ParseInt(kv[1], 10, 64); err != nil {
				return rec, errors.Errorf("malformed FASTA header %q: bad size", h)
			}
		case "obs":
			rec.Obs = kv[1]
		}
	}
	if rec.Size < 0 {
		return rec, errors.Errorf("FASTA header %q missing size=", h)
	}
	return rec, nil
}
