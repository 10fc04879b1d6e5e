package otu

import (
	"context"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/otu/encoding/obs"
	"github.com/klauspost/compress/gzip"
)

// singletWriter spills low-abundance records to gzip-compressed,
// sparse-encoded FASTA files. Files rotate after cap records so the
// deferred mapping pass works on bounded inputs.
type singletWriter struct {
	work *workspace
	cap  int

	paths  []string
	f      *os.File
	zw     *gzip.Writer
	inFile int
	nextID int64
}

func newSingletWriter(work *workspace, cap int) *singletWriter {
	return &singletWriter{work: work, cap: cap}
}

func (w *singletWriter) append(rec Record) error {
	if w.f == nil {
		path := w.work.path("singlets", ".fa.gz")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		w.f = f
		w.zw = gzip.NewWriter(f)
		w.paths = append(w.paths, path)
		w.inFile = 0
		w.nextID = 0 // ids are file-local
	}
	fr := obs.FastaRecord{
		ID:   w.nextID,
		Size: rec.Total(),
		Obs:  rec.Counts.EncodeSparse(),
		Seq:  rec.Seq,
	}
	if err := obs.WriteFasta(w.zw, []obs.FastaRecord{fr}); err != nil {
		return err
	}
	w.nextID++
	w.inFile++
	if w.inFile >= w.cap {
		return w.rotate()
	}
	return nil
}

func (w *singletWriter) rotate() error {
	if w.f == nil {
		return nil
	}
	if err := w.zw.Close(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	w.f, w.zw = nil, nil
	return nil
}

// close flushes the open file, if any, and returns the list of spill files
// in write order.
func (w *singletWriter) close() ([]string, error) {
	if err := w.rotate(); err != nil {
		return nil, err
	}
	return w.paths, nil
}

func readSingletFile(path string, nLibs int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close() // nolint: errcheck
	frs, err := obs.ReadFasta(zr)
	if err != nil {
		return nil, integrityError(err)
	}
	recs := make([]Record, len(frs))
	for i, fr := range frs {
		counts, err := DecodeSparse(fr.Obs, nLibs)
		if err != nil {
			return nil, integrityError(err, "in", path)
		}
		if counts.Total() != fr.Size {
			return nil, integrityError("singlet record", fr.ID, "declares size", fr.Size,
				"but sparse counts sum to", counts.Total(), "in", path)
		}
		recs[i] = Record{Seq: fr.Seq, Counts: counts}
	}
	return recs, nil
}

// mapSinglets searches every singlet spill file against the final
// representative set and folds hits in. Misses are discarded permanently;
// their sequences were already rejected as matching no structure in the
// data, so they are never re-attempted at looser radii. The loss is
// tallied per-library, never silent.
func mapSinglets(ctx context.Context, tools Tools, work *workspace, paths []string, reps []Record, radiusPct int, threads int, stats *Stats) error {
	if len(paths) == 0 || len(reps) == 0 {
		for _, path := range paths {
			recs, err := readSingletFile(path, len(stats.Libraries))
			if err != nil {
				return err
			}
			for _, rec := range recs {
				stats.SingletMisses++
				stats.addLoss(rec.Counts, func(l *LibraryStats) *int64 { return &l.UnmappedSinglets })
			}
		}
		return nil
	}
	dbPath := work.path("singlet-db", ".fa")
	if err := writeFastaFile(dbPath, reps); err != nil {
		return err
	}
	defer os.Remove(dbPath) // nolint: errcheck
	for _, path := range paths {
		recs, err := readSingletFile(path, len(stats.Libraries))
		if err != nil {
			return err
		}
		queryPath := work.path("singlet-query", ".fa")
		if err := writeFastaFile(queryPath, recs); err != nil {
			return err
		}
		hits, err := tools.Search(ctx, queryPath, dbPath, identityFor(radiusPct), threads)
		if err != nil {
			return err
		}
		os.Remove(queryPath) // nolint: errcheck
		matched := make([]bool, len(recs))
		for _, hit := range hits {
			if hit.Query < 0 || hit.Query >= int64(len(recs)) {
				return integrityError("singlet hit references unknown query id", hit.Query, "in", path)
			}
			if hit.Target < 0 || hit.Target >= int64(len(reps)) {
				return integrityError("singlet hit references unknown representative id", hit.Target)
			}
			if matched[hit.Query] {
				continue // tool reported a secondary hit; first wins
			}
			matched[hit.Query] = true
			reps[hit.Target].Counts.Add(recs[hit.Query].Counts)
			stats.SingletHits++
		}
		for i, rec := range recs {
			if !matched[i] {
				stats.SingletMisses++
				stats.addLoss(rec.Counts, func(l *LibraryStats) *int64 { return &l.UnmappedSinglets })
			}
		}
		log.Printf("singlet file %s: %d records mapped against %d representatives", path, len(recs), len(reps))
	}
	return nil
}
