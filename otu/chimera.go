package otu

import (
	"context"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/otu/encoding/obs"
)

// chimeraFilter drops representatives the external tool flags as chimeric
// against the reference database. Dropped abundance is not redistributed;
// it leaves the run entirely and is tallied per-library so the loss is
// visible in the summary. With no reference configured this is a no-op.
func chimeraFilter(ctx context.Context, tools Tools, work *workspace, reps []Record, referenceDB string, stats *Stats) ([]Record, error) {
	if referenceDB == "" || len(reps) == 0 {
		return reps, nil
	}
	inPath := work.path("prechimera", ".fa")
	if err := writeFastaFile(inPath, reps); err != nil {
		return nil, err
	}
	defer os.Remove(inPath) // nolint: errcheck
	outPath := work.path("nonchimeric", ".fa")
	if err := tools.ChimeraCheck(ctx, inPath, referenceDB, outPath); err != nil {
		return nil, err
	}
	defer os.Remove(outPath) // nolint: errcheck

	outFile, err := os.Open(outPath)
	if err != nil {
		return nil, err
	}
	frs, err := obs.ReadFasta(outFile)
	outFile.Close() // nolint: errcheck
	if err != nil {
		return nil, integrityError(err)
	}
	keep := make([]bool, len(reps))
	for _, fr := range frs {
		if fr.ID < 0 || fr.ID >= int64(len(reps)) {
			return nil, integrityError("chimera filter emitted unknown representative id", fr.ID)
		}
		keep[fr.ID] = true
	}
	survivors := reps[:0]
	for i, rec := range reps {
		if keep[i] {
			survivors = append(survivors, rec)
			continue
		}
		stats.ChimericReps++
		stats.addLoss(rec.Counts, func(l *LibraryStats) *int64 { return &l.ChimeraLoss })
		log.Printf("chimera filter: dropping representative %d (abundance %d)", i, rec.Total())
	}
	return survivors, nil
}
