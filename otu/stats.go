package otu

import (
	"github.com/grailbio/base/log"
)

// LibraryStats is the per-library breakdown of a run. All abundance fields
// are read counts, not distinct-sequence counts, except where named Records.
type LibraryStats struct {
	// Name is the library name from the observation file header.
	Name string
	// Input is the declared (and verified) total read count.
	Input int64
	// Clusterable is the abundance routed to the clusterable stream.
	Clusterable int64
	// ClusterableRecords is the number of distinct clusterable sequences
	// this library contributed to (shared sequences count for every
	// contributing library).
	ClusterableRecords int64
	// Singlets is the abundance routed to the singlet sink.
	Singlets int64
	// SingletRecords is the number of distinct singlet sequences.
	SingletRecords int64
	// UnmappedSinglets is the abundance permanently discarded because the
	// sequence matched no final representative.
	UnmappedSinglets int64
	// ChimeraLoss is the abundance dropped with chimeric representatives.
	// It is reported, never redistributed.
	ChimeraLoss int64
	// Output is the abundance present in the final OTU table.
	Output int64
}

// Stats accumulates counters across the whole run. Stages return their
// contributions and the orchestrator folds them in; there is no package
// state (and so no cross-stage counter drift).
type Stats struct {
	// Libraries holds the kept libraries in merge order; the index is the
	// library's abundance-vector slot.
	Libraries []LibraryStats
	// Skipped lists libraries excluded by the minimum-size filter. They
	// occupy no vector slot.
	Skipped []LibraryStats
	// MergedRecords is the number of distinct sequences across all kept
	// libraries.
	MergedRecords int64
	// Rounds is the number of cluster rounds executed over all radii.
	Rounds int
	// SearchRounds is the number of tail mapping rounds over all radii.
	SearchRounds int
	// OrderingWarnings counts fold targets skipped because the
	// representative carried a larger temporary id than the member.
	OrderingWarnings int
	// PromotedMembers counts head members promoted to standalone
	// representatives because no fold target was usable.
	PromotedMembers int
	// SingletHits / SingletMisses count deferred sequences that did / did
	// not map to a final representative.
	SingletHits   int64
	SingletMisses int64
	// ChimericReps is the number of representatives dropped by the chimera
	// filter.
	ChimericReps int
	// FinalOTUs is the number of representatives in the final table.
	FinalOTUs int
}

// addLoss spreads a dropped vector over the per-library loss field selected
// by f.
func (s *Stats) addLoss(v AbundanceVector, f func(*LibraryStats) *int64) {
	for i, c := range v {
		if c != 0 {
			*f(&s.Libraries[i]) += c
		}
	}
}

// Log writes the structured per-stage, per-library summary. It is called on
// success and on the way out of a failed run, so counters computed so far
// are always visible.
func (s *Stats) Log() {
	log.Printf("summary: %d merged records, %d cluster rounds, %d search rounds, %d final OTUs",
		s.MergedRecords, s.Rounds, s.SearchRounds, s.FinalOTUs)
	log.Printf("summary: singlets mapped=%d discarded=%d; ordering warnings=%d; promoted members=%d; chimeric reps=%d",
		s.SingletHits, s.SingletMisses, s.OrderingWarnings, s.PromotedMembers, s.ChimericReps)
	for _, l := range s.Skipped {
		log.Printf("summary: library %s: input=%d skipped (below minimum size)", l.Name, l.Input)
	}
	for _, l := range s.Libraries {
		log.Printf("summary: library %s: input=%d clusterable=%d/%d singlets=%d/%d unmapped_singlets=%d chimera_loss=%d output=%d",
			l.Name, l.Input,
			l.Clusterable, l.ClusterableRecords,
			l.Singlets, l.SingletRecords,
			l.UnmappedSinglets, l.ChimeraLoss, l.Output)
	}
}
