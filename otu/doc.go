// Package otu dereplicates and incrementally clusters amplicon reads into
// abundance-ranked OTUs while tracking exact per-library counts.
//
// The engine alternates cheap multi-threaded mapping passes with the
// unavoidably single-threaded external clustering step: per-library sorted
// observation streams are merged and dereplicated, the ranked result is
// clustered a bounded chunk at a time at successively looser similarity
// radii, the remainder is mapped against the growing representative set
// between rounds, low-abundance sequences are deferred to a final singlet
// mapping pass, and chimeric representatives are filtered against a
// reference before the ranked OTU table is written.
//
// Clustering, searching, chimera checking and classification are external
// black-box capabilities behind the Tools interface; the engine owns the
// data movement, the abundance bookkeeping and its conservation invariant.
package otu
