package otu

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/otu/encoding/obs"
)

// Result is the final output of a run: representatives ranked by descending
// total abundance with dense ids equal to their position, a consensus
// taxonomy per representative, and the run counters.
type Result struct {
	// Libraries names the kept libraries in abundance-vector slot order.
	Libraries []string
	Reps      []Record
	Taxa      []string
	Stats     Stats
}

// Run executes the whole engine: k-way merge and dereplication of the
// per-library inputs, the iterative cluster/search loop over the radius
// schedule, deferred singlet mapping, chimera filtering, classification and
// final ranking. Inputs are observation streams in global library order.
//
// On failure the summary counters accumulated so far are still logged
// before the error is returned; temp state is invalid and not resumable.
func Run(ctx context.Context, tools Tools, inputs []io.Reader, o Opts) (result *Result, err error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	work, err := newWorkspace(o.TempDir)
	if err != nil {
		return nil, err
	}
	defer work.cleanup()

	stats := &Stats{}
	defer func() {
		stats.Log()
	}()

	readers, names, err := openLibraries(inputs, o.MinLibSize, stats)
	if err != nil {
		return nil, err
	}

	singlets := newSingletWriter(work, o.SingletFileCap)
	clusterable, err := mergeLibraries(readers, singlets, o.MinClusterable, stats)
	if err != nil {
		return nil, err
	}
	singletPaths, err := singlets.close()
	if err != nil {
		return nil, err
	}
	log.Printf("merge: %d distinct sequences, %d clusterable, %d singlet files",
		stats.MergedRecords, len(clusterable), len(singletPaths))

	k := chunkSizeFor(len(clusterable), o)
	reps := clusterable
	for _, radius := range o.Radii {
		if reps, err = runRadius(ctx, tools, work, reps, radius, k, o.Threads, stats); err != nil {
			return nil, err
		}
		log.Printf("radius %d%%: %d representatives", radius, len(reps))
	}

	lastRadius := o.Radii[len(o.Radii)-1]
	if err = mapSinglets(ctx, tools, work, singletPaths, reps, lastRadius, o.Threads, stats); err != nil {
		return nil, err
	}
	if reps, err = chimeraFilter(ctx, tools, work, reps, o.ReferenceDB, stats); err != nil {
		return nil, err
	}

	// Final ranking assigns the dense output ids: position == id.
	rankByAbundance(reps)
	taxa, err := classifyReps(ctx, tools, work, reps, o)
	if err != nil {
		return nil, err
	}
	stats.FinalOTUs = len(reps)
	for _, rec := range reps {
		for i, c := range rec.Counts {
			stats.Libraries[i].Output += c
		}
	}
	return &Result{Libraries: names, Reps: reps, Taxa: taxa, Stats: *stats}, nil
}

// openLibraries wraps every input in an observation reader and applies the
// minimum-size filter. The returned slice is indexed by abundance-vector
// slot; names follow the same order.
func openLibraries(inputs []io.Reader, minLibSize int64, stats *Stats) ([]*obs.Reader, []string, error) {
	var (
		readers []*obs.Reader
		names   []string
		seen    = map[string]bool{}
	)
	for _, in := range inputs {
		r, err := obs.NewReader(in)
		if err != nil {
			return nil, nil, integrityError(err)
		}
		if seen[r.Lib()] {
			return nil, nil, integrityError("duplicate library name", r.Lib())
		}
		seen[r.Lib()] = true
		if r.DeclaredSize() < minLibSize {
			log.Printf("library %s: size %d below minimum %d, excluded", r.Lib(), r.DeclaredSize(), minLibSize)
			stats.Skipped = append(stats.Skipped, LibraryStats{Name: r.Lib(), Input: r.DeclaredSize()})
			continue
		}
		readers = append(readers, r)
		names = append(names, r.Lib())
		stats.Libraries = append(stats.Libraries, LibraryStats{Name: r.Lib(), Input: r.DeclaredSize()})
	}
	if len(readers) == 0 {
		return nil, nil, configErrorf("no libraries left after minimum-size filter")
	}
	return readers, names, nil
}

// runRadius runs the bounded-working-set loop for one radius: cluster a
// head chunk, map the spilled tail against the representatives, fold hits,
// refill the head from the misses, repeat until the tail is empty. The
// incoming set is re-ranked and re-split, so at radii after the first the
// previous representatives are themselves re-clustered at the looser bound.
func runRadius(ctx context.Context, tools Tools, work *workspace, data []Record, radius, k, threads int, stats *Stats) ([]Record, error) {
	rankByAbundance(data)
	head, tail := split(data, k)
	tailPath := ""
	if len(tail) > 0 {
		tailPath = work.path("remainder", ".tsv")
		if err := writeRecords(tailPath, tail); err != nil {
			return nil, err
		}
	}
	reps, err := clusterRound(ctx, tools, work, head, radius, threads, stats)
	if err != nil {
		return nil, err
	}
	nLibs := len(stats.Libraries)
	for tailPath != "" {
		tail, err := readRecords(tailPath, nLibs)
		if err != nil {
			return nil, err
		}
		os.Remove(tailPath) // nolint: errcheck
		tailPath = ""
		misses, err := searchRound(ctx, tools, work, reps, tail, radius, threads, stats)
		if err != nil {
			return nil, err
		}
		if len(misses) == 0 {
			break
		}
		// Refill the head up to the chunk bound, counting the existing
		// representatives toward it.
		budget := k - len(reps)
		if budget <= 0 {
			// The representative set has outgrown the chunk bound. Take a
			// full chunk anyway; stalling here would never drain the tail.
			log.Error.Printf("radius %d%%: %d representatives exceed chunk bound %d", radius, len(reps), k)
			budget = k
		}
		if budget > len(misses) {
			budget = len(misses)
		}
		head = append(reps, misses[:budget]...)
		if rest := misses[budget:]; len(rest) > 0 {
			tailPath = work.path("remainder", ".tsv")
			if err := writeRecords(tailPath, rest); err != nil {
				return nil, err
			}
		}
		if reps, err = clusterRound(ctx, tools, work, head, radius, threads, stats); err != nil {
			return nil, err
		}
	}
	return reps, nil
}

// WriteOTUTable writes the final tab-separated table: one row per
// surviving representative, ordered identically to the representative
// FASTA, with per-library counts and the consensus taxonomy.
func (r *Result) WriteOTUTable(w io.Writer) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("#OTU_ID")
	for _, name := range r.Libraries {
		tw.WriteString(name)
	}
	tw.WriteString("consensus_taxonomy")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for id, rec := range r.Reps {
		tw.WriteString("OTU_" + strconv.Itoa(id))
		for _, c := range rec.Counts {
			tw.WriteString(strconv.FormatInt(c, 10))
		}
		tw.WriteString(r.Taxa[id])
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteRepresentatives writes the final size-tagged representative FASTA,
// ordered identically to the OTU table.
func (r *Result) WriteRepresentatives(w io.Writer) error {
	frs := make([]obs.FastaRecord, len(r.Reps))
	for i, rec := range r.Reps {
		frs[i] = obs.FastaRecord{ID: int64(i), Size: rec.Total(), Seq: rec.Seq}
	}
	return obs.WriteFasta(w, frs)
}
