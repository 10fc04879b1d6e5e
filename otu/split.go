package otu

// chunkSizeFor returns the per-round clustering bound. An explicit
// Opts.ChunkSize wins; otherwise the bound is a fifth of the clusterable
// record count, clamped to the configured window.
func chunkSizeFor(totalRecords int, o Opts) int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	k := totalRecords / 5
	if k < o.MinChunk {
		k = o.MinChunk
	}
	if k > o.MaxChunk {
		k = o.MaxChunk
	}
	return k
}

// split partitions an abundance-ranked record slice into the head chunk to
// cluster now and the deferred tail. The caller spills the tail; the head
// stays live for the round.
func split(recs []Record, k int) (head, tail []Record) {
	if k >= len(recs) {
		return recs, nil
	}
	return recs[:k], recs[k:]
}
