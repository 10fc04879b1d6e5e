package otu

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestAbundanceVector(t *testing.T) {
	v := NewAbundanceVector(3)
	expect.EQ(t, v.Total(), int64(0))
	v.Add(vec(5, 0, 2))
	v.Add(vec(1, 3, 0))
	expect.EQ(t, v, vec(6, 3, 2))
	expect.EQ(t, v.Total(), int64(11))

	c := v.Clone()
	c.Add(vec(1, 1, 1))
	expect.EQ(t, v, vec(6, 3, 2)) // clone is independent
}

func TestDenseEncoding(t *testing.T) {
	v := vec(6, 0, 2)
	expect.EQ(t, v.String(), "6,0,2")
	got, err := ParseAbundanceVector("6,0,2", 3)
	assert.NoError(t, err)
	expect.EQ(t, got, v)

	_, err = ParseAbundanceVector("6,0", 3)
	assert.NotNil(t, err)
	_, err = ParseAbundanceVector("6,-1,2", 3)
	assert.NotNil(t, err)
	_, err = ParseAbundanceVector("6,x,2", 3)
	assert.NotNil(t, err)
}

func TestSparseEncoding(t *testing.T) {
	v := vec(0, 3, 0, 1)
	s := v.EncodeSparse()
	expect.EQ(t, s, "1:3,3:1")
	got, err := DecodeSparse(s, 4)
	assert.NoError(t, err)
	expect.EQ(t, got, v)

	// The empty sparse form is the zero vector.
	got, err = DecodeSparse("", 4)
	assert.NoError(t, err)
	expect.EQ(t, got, vec(0, 0, 0, 0))

	for _, bad := range []string{"x:1", "1:x", "9:1", "-1:2", "1:0", "1"} {
		_, err := DecodeSparse(bad, 4)
		assert.NotNil(t, err, bad)
	}
}

func TestRankByAbundance(t *testing.T) {
	recs := []Record{
		{Seq: "CC", Counts: vec(1, 1)},
		{Seq: "AA", Counts: vec(5, 5)},
		{Seq: "GG", Counts: vec(2, 0)},
		{Seq: "TT", Counts: vec(0, 2)},
	}
	rankByAbundance(recs)
	expect.EQ(t, []string{recs[0].Seq, recs[1].Seq, recs[2].Seq, recs[3].Seq},
		[]string{"AA", "GG", "TT", "CC"})

	// Re-ranking an already-ranked set is a no-op: GG keeps its place ahead
	// of the equal-total TT, run after run.
	before := append([]Record(nil), recs...)
	rankByAbundance(recs)
	expect.EQ(t, recs, before)
}
