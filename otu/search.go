package otu

import (
	"context"
	"os"
)

// searchRound maps an entire tail against the current representative set.
// Hits fold the query's vector into the matched representative in place;
// unmapped records are returned ranked by descending abundance for
// re-splitting. Per-library totals over (reps + returned misses) are
// exactly those over (reps + tail) on entry.
func searchRound(ctx context.Context, tools Tools, work *workspace, reps, tail []Record, radiusPct, threads int, stats *Stats) ([]Record, error) {
	stats.SearchRounds++
	queryPath := work.path("tail", ".fa")
	if err := writeFastaFile(queryPath, tail); err != nil {
		return nil, err
	}
	defer os.Remove(queryPath) // nolint: errcheck
	dbPath := work.path("repdb", ".fa")
	if err := writeFastaFile(dbPath, reps); err != nil {
		return nil, err
	}
	defer os.Remove(dbPath) // nolint: errcheck

	hits, err := tools.Search(ctx, queryPath, dbPath, identityFor(radiusPct), threads)
	if err != nil {
		return nil, err
	}
	folded := make([]bool, len(tail))
	for _, hit := range hits {
		if hit.Query < 0 || hit.Query >= int64(len(tail)) {
			return nil, integrityError("tail hit references unknown query id", hit.Query)
		}
		if hit.Target < 0 || hit.Target >= int64(len(reps)) {
			return nil, integrityError("tail hit references missing representative id", hit.Target)
		}
		if folded[hit.Query] {
			continue // secondary hit; first reported assignment wins
		}
		reps[hit.Target].Counts.Add(tail[hit.Query].Counts)
		folded[hit.Query] = true
	}
	var misses []Record
	for i, rec := range tail {
		if !folded[i] {
			misses = append(misses, rec)
		}
	}
	rankByAbundance(misses)
	return misses, nil
}
