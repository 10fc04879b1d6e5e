package otu

import (
	"bufio"
	"os"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/otu/encoding/obs"
)

// Spill files carry (sequence, abundance vector) pairs as single rows, so
// the sequence and its counts can never drift out of row-sync the way two
// positionally aligned side-car files can.

func writeRecords(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := tsv.NewWriter(f)
	for _, rec := range recs {
		w.WriteString(rec.Seq)
		w.WriteString(rec.Counts.String())
		if err := w.EndLine(); err != nil {
			f.Close() // nolint: errcheck
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close() // nolint: errcheck
		return err
	}
	return f.Close()
}

func readRecords(path string, nLibs int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck
	var recs []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, 64*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tab := strings.IndexByte(line, '\t')
		if tab <= 0 {
			return nil, integrityError("malformed spill row", line, "in", path)
		}
		counts, err := ParseAbundanceVector(line[tab+1:], nLibs)
		if err != nil {
			return nil, integrityError(err, "in", path)
		}
		recs = append(recs, Record{Seq: line[:tab], Counts: counts})
	}
	if sc.Err() != nil {
		return nil, sc.Err()
	}
	return recs, nil
}

// writeFastaFile writes recs as size-tagged FASTA with positional ids,
// the form the external tools consume.
func writeFastaFile(path string, recs []Record) error {
	return writeFastaFileOffset(path, recs, 0)
}

// writeFastaFileOffset is writeFastaFile with ids starting at offset, used
// when a shard of a larger set must keep its global ids.
func writeFastaFileOffset(path string, recs []Record, offset int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	frs := make([]obs.FastaRecord, len(recs))
	for i, rec := range recs {
		frs[i] = obs.FastaRecord{ID: int64(offset + i), Size: rec.Total(), Seq: rec.Seq}
	}
	if err := obs.WriteFasta(f, frs); err != nil {
		f.Close() // nolint: errcheck
		return err
	}
	return f.Close()
}
