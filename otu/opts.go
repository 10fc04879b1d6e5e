package otu

// Opts configures the dereplication and clustering engine.
type Opts struct {
	// Radii is the increasing schedule of similarity radii, in percent
	// mismatch. Each radius runs one full cluster/search loop over the
	// current representative set plus remainder.
	Radii []int
	// MinLibSize excludes libraries whose declared total is below this
	// bound. Excluded libraries are logged and skipped, not fatal.
	MinLibSize int64
	// MinClusterable is the total abundance below which a dereplicated
	// sequence cannot seed a cluster and is deferred to the singlet pass.
	MinClusterable int64
	// ChunkSize bounds the number of records clustered per round. Zero
	// derives the bound as 1/5 of the clusterable total, clamped to
	// [MinChunk, MaxChunk].
	ChunkSize int
	MinChunk  int
	MaxChunk  int
	// SingletFileCap rotates singlet spill files after this many records,
	// bounding per-file size for the deferred mapping pass.
	SingletFileCap int
	// Threads sizes the worker pool used by the parallelizable external
	// invocations (search, classify). Clustering is always single-threaded
	// by external-tool constraint.
	Threads int
	// ReferenceDB is the chimera reference database. Empty disables the
	// chimera filter.
	ReferenceDB string
	// TrainingModel is the classifier training model. Empty disables
	// classification; the taxonomy column then reads "unclassified".
	TrainingModel string
	// MinWordCount is passed through to the classifier.
	MinWordCount int
	// MinConfidence is the assignment confidence below which a rank is cut
	// from the consensus taxonomy.
	MinConfidence float64
	// TempDir is where the run's workspace directory is created. Empty
	// means the system default.
	TempDir string
}

// DefaultOpts holds the default engine parameters.
var DefaultOpts = Opts{
	Radii:          []int{1, 2, 3},
	MinLibSize:     100,
	MinClusterable: 2,
	MinChunk:       5000,
	MaxChunk:       500000,
	SingletFileCap: 100000,
	Threads:        4,
	MinWordCount:   120,
	MinConfidence:  0.8,
}

// Validate rejects unusable parameter combinations before any processing
// begins.
func (o Opts) Validate() error {
	if len(o.Radii) == 0 {
		return configErrorf("no similarity radii configured")
	}
	prev := 0
	for _, r := range o.Radii {
		if r <= 0 || r >= 50 {
			return configErrorf("similarity radius %d%% out of range (0, 50)", r)
		}
		if r <= prev {
			return configErrorf("similarity radii must be strictly increasing, got %v", o.Radii)
		}
		prev = r
	}
	if o.MinClusterable < 1 {
		return configErrorf("minimum clusterable abundance must be at least 1, got %d", o.MinClusterable)
	}
	if o.ChunkSize < 0 {
		return configErrorf("chunk size must not be negative, got %d", o.ChunkSize)
	}
	if o.ChunkSize == 0 && (o.MinChunk <= 0 || o.MaxChunk < o.MinChunk) {
		return configErrorf("bad chunk bounds [%d, %d]", o.MinChunk, o.MaxChunk)
	}
	if o.SingletFileCap <= 0 {
		return configErrorf("singlet file cap must be positive, got %d", o.SingletFileCap)
	}
	if o.Threads <= 0 {
		return configErrorf("thread count must be positive, got %d", o.Threads)
	}
	if o.TrainingModel != "" && (o.MinConfidence < 0 || o.MinConfidence > 1) {
		return configErrorf("classifier confidence cutoff %g out of range [0, 1]", o.MinConfidence)
	}
	return nil
}

// identityFor converts a radius in percent mismatch to the fractional
// identity threshold handed to the external search tool.
func identityFor(radiusPct int) float64 {
	return 1.0 - float64(radiusPct)/100.0
}
