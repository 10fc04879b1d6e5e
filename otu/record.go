package otu

import "sort"

// Record is one dereplicated sequence with its per-library abundance. The
// sequence string is the dereplication key: two records are identical iff
// their sequences are byte-identical.
type Record struct {
	Seq    string
	Counts AbundanceVector
}

// Total returns the aggregate abundance of the record.
func (r Record) Total() int64 { return r.Counts.Total() }

// rankByAbundance sorts recs by descending total abundance. The sort is
// stable so ties keep their prior relative order, which makes re-ranking an
// already-ranked set a no-op and keeps output reproducible run-to-run.
func rankByAbundance(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Total() > recs[j].Total()
	})
}

// sumCounts returns the elementwise sum of all record vectors.
func sumCounts(recs []Record, nLibs int) AbundanceVector {
	sum := NewAbundanceVector(nLibs)
	for _, r := range recs {
		sum.Add(r.Counts)
	}
	return sum
}
