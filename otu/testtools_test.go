package otu

import (
	"context"
	"os"

	"github.com/grailbio/otu/encoding/obs"
)

// hammingTools is a deterministic in-process stand-in for the external
// capabilities. Two sequences of equal length match when their hamming
// distance is within the mismatch budget implied by the identity threshold;
// clustering is greedy in input (abundance-rank) order, so members always
// join a centroid with a smaller temporary id.
type hammingTools struct {
	chimeras map[string]bool
	taxa     map[string][]Assignment
}

func readFastaFile(path string) ([]obs.FastaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck
	return obs.ReadFasta(f)
}

func mismatchBudget(seqLen int, identity float64) int {
	return int(float64(seqLen)*(1.0-identity) + 1e-9)
}

func withinBudget(a, b string, budget int) bool {
	if len(a) != len(b) {
		return false
	}
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
			if d > budget {
				return false
			}
		}
	}
	return true
}

func (t *hammingTools) Cluster(_ context.Context, inputFasta, outputFasta string, radiusPct int) error {
	recs, err := readFastaFile(inputFasta)
	if err != nil {
		return err
	}
	var centroids []obs.FastaRecord
	for _, rec := range recs {
		budget := mismatchBudget(len(rec.Seq), identityFor(radiusPct))
		joined := false
		for _, c := range centroids {
			if withinBudget(rec.Seq, c.Seq, budget) {
				joined = true
				break
			}
		}
		if !joined {
			centroids = append(centroids, rec)
		}
	}
	out, err := os.Create(outputFasta)
	if err != nil {
		return err
	}
	if err := obs.WriteFasta(out, centroids); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

func (t *hammingTools) Search(_ context.Context, queryFasta, dbFasta string, identity float64, threads int) ([]Hit, error) {
	queries, err := readFastaFile(queryFasta)
	if err != nil {
		return nil, err
	}
	db, err := readFastaFile(dbFasta)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, q := range queries {
		budget := mismatchBudget(len(q.Seq), identity)
		for _, d := range db {
			if withinBudget(q.Seq, d.Seq, budget) {
				hits = append(hits, Hit{Query: q.ID, Target: d.ID})
				break
			}
		}
	}
	return hits, nil
}

func (t *hammingTools) ChimeraCheck(_ context.Context, candidateFasta, referenceDB, outputFasta string) error {
	recs, err := readFastaFile(candidateFasta)
	if err != nil {
		return err
	}
	var keep []obs.FastaRecord
	for _, rec := range recs {
		if !t.chimeras[rec.Seq] {
			keep = append(keep, rec)
		}
	}
	out, err := os.Create(outputFasta)
	if err != nil {
		return err
	}
	if err := obs.WriteFasta(out, keep); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

func (t *hammingTools) Classify(_ context.Context, fasta, trainingModel string, minWordCount int) (map[int64][]Assignment, error) {
	recs, err := readFastaFile(fasta)
	if err != nil {
		return nil, err
	}
	out := map[int64][]Assignment{}
	for _, rec := range recs {
		if ranked, ok := t.taxa[rec.Seq]; ok {
			out[rec.ID] = ranked
		}
	}
	return out, nil
}

// scriptTools returns canned cluster and search outputs, for exercising
// fold edge cases the behavioral fake cannot produce.
type scriptTools struct {
	repIDs []int64 // ids echoed as cluster output
	hits   []Hit   // returned by every Search call
}

func (t *scriptTools) Cluster(_ context.Context, inputFasta, outputFasta string, radiusPct int) error {
	recs, err := readFastaFile(inputFasta)
	if err != nil {
		return err
	}
	byID := map[int64]obs.FastaRecord{}
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	var reps []obs.FastaRecord
	for _, id := range t.repIDs {
		if rec, ok := byID[id]; ok {
			reps = append(reps, rec)
		} else {
			// An id the input never contained, for integrity-check tests.
			reps = append(reps, obs.FastaRecord{ID: id, Size: 1, Seq: "NNNN"})
		}
	}
	out, err := os.Create(outputFasta)
	if err != nil {
		return err
	}
	if err := obs.WriteFasta(out, reps); err != nil {
		out.Close() // nolint: errcheck
		return err
	}
	return out.Close()
}

func (t *scriptTools) Search(_ context.Context, queryFasta, dbFasta string, identity float64, threads int) ([]Hit, error) {
	return t.hits, nil
}

func (t *scriptTools) ChimeraCheck(_ context.Context, candidateFasta, referenceDB, outputFasta string) error {
	panic("not scripted")
}

func (t *scriptTools) Classify(_ context.Context, fasta, trainingModel string, minWordCount int) (map[int64][]Assignment, error) {
	panic("not scripted")
}

func testWorkspace(dir string) *workspace {
	return &workspace{dir: dir}
}

func newTestStats(libs ...string) *Stats {
	s := &Stats{}
	for _, name := range libs {
		s.Libraries = append(s.Libraries, LibraryStats{Name: name})
	}
	return s
}

func vec(counts ...int64) AbundanceVector { return AbundanceVector(counts) }
