package otu

import (
	"container/heap"

	"github.com/grailbio/otu/encoding/obs"
)

// mergeStream is one open library cursor in the k-way merge.
type mergeStream struct {
	r   *obs.Reader
	lib int // slot index in the abundance vectors
	cur obs.Row
}

// streamHeap orders open cursors by the lexicographic rank of their head
// sequence. Ties break on library index, which only affects pull order, not
// the merged result.
type streamHeap []*mergeStream

func (h streamHeap) Len() int { return len(h) }
func (h streamHeap) Less(i, j int) bool {
	if h[i].cur.Seq != h[j].cur.Seq {
		return h[i].cur.Seq < h[j].cur.Seq
	}
	return h[i].lib < h[j].lib
}
func (h streamHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *streamHeap) Push(x interface{}) { *h = append(*h, x.(*mergeStream)) }
func (h *streamHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergeLibraries runs the k-way merge over the per-library readers, indexed
// in abundance-vector slot order. Each merged record is classified
// immediately: totals below minClusterable go to the singlet sink, the rest
// are collected and returned ranked by descending total abundance.
//
// The readers verify their own declared-size assertions; any violation
// surfaces here as a fatal integrity error.
func mergeLibraries(readers []*obs.Reader, singlets *singletWriter, minClusterable int64, stats *Stats) ([]Record, error) {
	nLibs := len(readers)
	h := streamHeap{}
	for lib, r := range readers {
		if r.Scan() {
			h = append(h, &mergeStream{r: r, lib: lib, cur: r.Get()})
		} else if r.Err() != nil {
			return nil, integrityError(r.Err())
		}
	}
	heap.Init(&h)

	var clusterable []Record
	for h.Len() > 0 {
		seq := h[0].cur.Seq
		counts := NewAbundanceVector(nLibs)
		// Pull every stream whose head carries this sequence.
		for h.Len() > 0 && h[0].cur.Seq == seq {
			s := h[0]
			counts[s.lib] += s.cur.Count
			if s.r.Scan() {
				s.cur = s.r.Get()
				heap.Fix(&h, 0)
			} else {
				if s.r.Err() != nil {
					return nil, integrityError(s.r.Err())
				}
				heap.Pop(&h)
			}
		}
		stats.MergedRecords++
		rec := Record{Seq: seq, Counts: counts}
		total := counts.Total()
		if total < minClusterable {
			if err := singlets.append(rec); err != nil {
				return nil, err
			}
			tally(stats, counts, false)
			continue
		}
		clusterable = append(clusterable, rec)
		tally(stats, counts, true)
	}
	rankByAbundance(clusterable)
	return clusterable, nil
}

func tally(stats *Stats, counts AbundanceVector, clusterable bool) {
	for i, c := range counts {
		if c == 0 {
			continue
		}
		l := &stats.Libraries[i]
		if clusterable {
			l.Clusterable += c
			l.ClusterableRecords++
		} else {
			l.Singlets += c
			l.SingletRecords++
		}
	}
}
