package otu

import (
	"context"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestChimeraFilter(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	reps := []Record{
		{Seq: "AAAA", Counts: vec(40, 2)},
		{Seq: "CCCC", Counts: vec(10, 5)},
		{Seq: "GGGG", Counts: vec(3, 9)}, // flagged chimeric
		{Seq: "TTTT", Counts: vec(6, 1)},
		{Seq: "ACGT", Counts: vec(0, 4)},
	}
	before := sumCounts(reps, 2)
	tools := &hammingTools{chimeras: map[string]bool{"GGGG": true}}
	stats := newTestStats("l1", "l2")
	survivors, err := chimeraFilter(ctx, tools, testWorkspace(tempDir), reps, "ref.fa", stats)
	assert.NoError(t, err)
	expect.EQ(t, len(survivors), 4)
	expect.EQ(t, stats.ChimericReps, 1)

	// Exactly the flagged representative's abundance is gone, and the loss
	// shows up per-library, never silently.
	after := sumCounts(survivors, 2)
	expect.EQ(t, before.Total()-after.Total(), int64(12))
	expect.EQ(t, stats.Libraries[0].ChimeraLoss, int64(3))
	expect.EQ(t, stats.Libraries[1].ChimeraLoss, int64(9))
	for _, rec := range survivors {
		expect.True(t, rec.Seq != "GGGG")
	}
}

func TestChimeraFilterNoReference(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	reps := []Record{{Seq: "AAAA", Counts: vec(5)}}
	stats := newTestStats("l1")
	// No reference database: passthrough, the tool is never invoked.
	survivors, err := chimeraFilter(ctx, &scriptTools{}, testWorkspace(tempDir), reps, "", stats)
	assert.NoError(t, err)
	expect.EQ(t, survivors, reps)
	expect.EQ(t, stats.ChimericReps, 0)
}
