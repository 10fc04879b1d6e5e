package otu

import (
	"context"
	"os"
	"strings"

	"github.com/grailbio/base/traverse"
)

const unclassified = "unclassified"

// classifyReps assigns a consensus taxonomy string to every final
// representative. Representatives are sharded into one file per worker and
// the classifier runs on the shards concurrently; results are joined back
// by id before use, so the output order is independent of scheduling.
// Without a training model, every representative reads "unclassified".
func classifyReps(ctx context.Context, tools Tools, work *workspace, reps []Record, o Opts) ([]string, error) {
	taxa := make([]string, len(reps))
	if o.TrainingModel == "" || len(reps) == 0 {
		for i := range taxa {
			taxa[i] = unclassified
		}
		return taxa, nil
	}

	nShards := o.Threads
	if nShards > len(reps) {
		nShards = len(reps)
	}
	type shard struct {
		path  string
		start int // global id of the shard's first record
		out   map[int64][]Assignment
	}
	shards := make([]shard, nShards)
	for i := range shards {
		start := (i * len(reps)) / nShards
		end := ((i + 1) * len(reps)) / nShards
		path := work.path("classify", ".fa")
		if err := writeFastaFileOffset(path, reps[start:end], start); err != nil {
			return nil, err
		}
		shards[i] = shard{path: path, start: start}
	}
	defer func() {
		for _, s := range shards {
			os.Remove(s.path) // nolint: errcheck
		}
	}()
	err := traverse.Each(nShards, func(i int) error {
		out, err := tools.Classify(ctx, shards[i].path, o.TrainingModel, o.MinWordCount)
		if err != nil {
			return err
		}
		shards[i].out = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, s := range shards {
		for id, ranked := range s.out {
			if id < 0 || id >= int64(len(reps)) {
				return nil, integrityError("classifier emitted unknown representative id", id)
			}
			taxa[id] = consensusTaxonomy(ranked, o.MinConfidence)
		}
	}
	for i, t := range taxa {
		if t == "" {
			taxa[i] = unclassified
		}
	}
	return taxa, nil
}

// consensusTaxonomy joins the ranked assignments down to the deepest rank
// that still meets the confidence cutoff.
func consensusTaxonomy(ranked []Assignment, minConfidence float64) string {
	b := strings.Builder{}
	for _, a := range ranked {
		if a.Confidence < minConfidence {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(a.Taxon)
	}
	if b.Len() == 0 {
		return unclassified
	}
	return b.String()
}
