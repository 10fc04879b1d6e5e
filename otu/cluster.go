package otu

import (
	"context"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/otu/encoding/obs"
)

// clusterRound clusters one abundance-ranked head chunk at the given radius
// and folds every non-representative member into its parent. Temporary ids
// are the head positions, so a smaller id always means equal or higher
// abundance rank.
//
// The returned set contains the representatives with their freshly summed
// vectors, re-ranked by descending abundance and densely renumbered (by
// position). Head members that could not fold anywhere keep their counts by
// being promoted to standalone representatives.
func clusterRound(ctx context.Context, tools Tools, work *workspace, head []Record, radiusPct, threads int, stats *Stats) ([]Record, error) {
	stats.Rounds++
	headPath := work.path("head", ".fa")
	if err := writeFastaFile(headPath, head); err != nil {
		return nil, err
	}
	defer os.Remove(headPath) // nolint: errcheck
	repPath := work.path("reps", ".fa")
	if err := tools.Cluster(ctx, headPath, repPath, radiusPct); err != nil {
		return nil, err
	}
	defer os.Remove(repPath) // nolint: errcheck

	repFile, err := os.Open(repPath)
	if err != nil {
		return nil, err
	}
	frs, err := obs.ReadFasta(repFile)
	repFile.Close() // nolint: errcheck
	if err != nil {
		return nil, integrityError(err)
	}
	// Representative headers echo the head ids the clusterer was given.
	isRep := make([]bool, len(head))
	for _, fr := range frs {
		if fr.ID < 0 || fr.ID >= int64(len(head)) {
			return nil, integrityError("clusterer emitted unknown representative id", fr.ID)
		}
		if isRep[fr.ID] {
			return nil, integrityError("clusterer emitted duplicate representative id", fr.ID)
		}
		isRep[fr.ID] = true
	}

	hits, err := tools.Search(ctx, headPath, repPath, identityFor(radiusPct), threads)
	if err != nil {
		return nil, err
	}
	folded := make([]bool, len(head))
	for _, hit := range hits {
		if hit.Query < 0 || hit.Query >= int64(len(head)) {
			return nil, integrityError("member hit references unknown query id", hit.Query)
		}
		if hit.Target < 0 || hit.Target >= int64(len(head)) || !isRep[hit.Target] {
			return nil, integrityError("member hit references missing representative id", hit.Target)
		}
		if hit.Query == hit.Target {
			continue // self-hit
		}
		if isRep[hit.Query] || folded[hit.Query] {
			continue
		}
		if hit.Target > hit.Query {
			// A member must not fold into a representative with a larger
			// temporary id than its own; the external clusterer occasionally
			// produces such assignments. Tolerated: warn and skip the fold.
			stats.OrderingWarnings++
			log.Error.Printf("ordering warning: member %d assigned to later representative %d at radius %d%%; fold skipped",
				hit.Query, hit.Target, radiusPct)
			continue
		}
		head[hit.Target].Counts.Add(head[hit.Query].Counts)
		folded[hit.Query] = true
	}

	var reps []Record
	for i, rec := range head {
		if isRep[i] {
			reps = append(reps, rec)
			continue
		}
		if !folded[i] {
			// No usable fold target. Promoting the member keeps per-library
			// totals conserved and guarantees the round makes progress.
			stats.PromotedMembers++
			reps = append(reps, rec)
		}
	}
	rankByAbundance(reps)
	return reps, nil
}
