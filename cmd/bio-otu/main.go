package main

// bio-otu dereplicates per-library amplicon observation files and clusters
// them into an abundance-ranked OTU table.
//
// Example:
//
//    bio-otu -radii 1,2,3 -reference-db gold.fa \
//        -otu-table otus.tsv -representatives otus.fa \
//        lib1.obs lib2.obs.gz lib3.obs

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/otu/otu"
)

type outputFlags struct {
	otuTablePath string
	repsPath     string
}

func parseRadii(s string) ([]int, error) {
	var radii []int
	for _, f := range strings.Split(s, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad radius %q in %q", f, s)
		}
		radii = append(radii, r)
	}
	return radii, nil
}

func main() {
	opts := otu.DefaultOpts
	outputs := outputFlags{}
	tools := otu.ExecTools{}
	radiiFlag := flag.String("radii", "1,2,3", "Comma-separated similarity radius schedule, in percent mismatch.")
	flag.Int64Var(&opts.MinLibSize, "min-lib-size", otu.DefaultOpts.MinLibSize, "Exclude libraries with fewer total reads than this.")
	flag.Int64Var(&opts.MinClusterable, "min-clusterable", otu.DefaultOpts.MinClusterable, "Minimum total abundance for a sequence to seed a cluster; smaller sequences go to the singlet pass.")
	flag.IntVar(&opts.ChunkSize, "chunk-size", 0, "Records clustered per round. 0 derives the bound from the input size.")
	flag.IntVar(&opts.MinChunk, "min-chunk", otu.DefaultOpts.MinChunk, "Lower clamp for the derived chunk size.")
	flag.IntVar(&opts.MaxChunk, "max-chunk", otu.DefaultOpts.MaxChunk, "Upper clamp for the derived chunk size.")
	flag.IntVar(&opts.SingletFileCap, "singlet-file-cap", otu.DefaultOpts.SingletFileCap, "Records per singlet spill file before rotation.")
	flag.IntVar(&opts.Threads, "threads", otu.DefaultOpts.Threads, "Worker pool size for the parallel search and classify invocations.")
	flag.StringVar(&opts.ReferenceDB, "reference-db", "", "Chimera reference database. Empty disables chimera filtering.")
	flag.StringVar(&opts.TrainingModel, "training-model", "", "Classifier training model. Empty disables classification.")
	flag.IntVar(&opts.MinWordCount, "min-word-count", otu.DefaultOpts.MinWordCount, "Minimum word count passed to the classifier.")
	flag.Float64Var(&opts.MinConfidence, "min-confidence", otu.DefaultOpts.MinConfidence, "Confidence cutoff for consensus taxonomy ranks.")
	flag.StringVar(&opts.TempDir, "temp-dir", "", "Directory for the run's temp workspace. Empty uses the system default.")
	flag.StringVar(&tools.ClusterBin, "cluster-bin", "vsearch", "Clustering tool binary.")
	flag.StringVar(&tools.SearchBin, "search-bin", "vsearch", "Search tool binary.")
	flag.StringVar(&tools.ChimeraBin, "chimera-bin", "", "Chimera tool binary. Empty uses -search-bin.")
	flag.StringVar(&tools.ClassifyBin, "classify-bin", "classifier", "Classifier binary.")
	flag.StringVar(&outputs.otuTablePath, "otu-table", "./otu-table.tsv", "Output path of the final OTU table.")
	flag.StringVar(&outputs.repsPath, "representatives", "./otu-reps.fa", "Output path of the representative FASTA.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	radii, err := parseRadii(*radiiFlag)
	if err != nil {
		log.Fatal(err)
	}
	opts.Radii = radii
	if flag.NArg() == 0 {
		log.Fatal("at least one library observation file is required")
	}
	tools.Dir = opts.TempDir

	var (
		inputs  []io.Reader
		closers []func() error
	)
	for _, path := range flag.Args() {
		in, err := file.Open(ctx, path)
		if err != nil {
			log.Fatalf("open %v: %v", path, err)
		}
		var r io.Reader = in.Reader(ctx)
		if u := compress.NewReaderPath(r, in.Name()); u != nil {
			r = u
		}
		inputs = append(inputs, r)
		f := in
		closers = append(closers, func() error { return f.Close(ctx) })
	}

	result, err := otu.Run(ctx, &tools, inputs, opts)
	for _, c := range closers {
		if cerr := c(); cerr != nil {
			log.Error.Printf("close input: %v", cerr)
		}
	}
	if err != nil {
		log.Error.Printf("%v", err)
		os.Exit(otu.ExitCode(err))
	}

	tableOut, err := file.Create(ctx, outputs.otuTablePath)
	if err != nil {
		log.Fatal(err)
	}
	if err := result.WriteOTUTable(tableOut.Writer(ctx)); err != nil {
		log.Fatal(err)
	}
	if err := tableOut.Close(ctx); err != nil {
		log.Fatal(err)
	}

	repsOut, err := file.Create(ctx, outputs.repsPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := result.WriteRepresentatives(repsOut.Writer(ctx)); err != nil {
		log.Fatal(err)
	}
	if err := repsOut.Close(ctx); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d OTUs to %s and %s", len(result.Reps), outputs.otuTablePath, outputs.repsPath)
}
