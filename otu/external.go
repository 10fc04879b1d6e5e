package otu

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Hit is one query-to-target assignment reported by the all-vs-all search
// capability. IDs are the numeric ids from the FASTA headers handed to the
// tool.
type Hit struct {
	Query  int64
	Target int64
}

// Assignment is one ranked taxon reported by the classifier for a
// representative.
type Assignment struct {
	Taxon      string
	Confidence float64
}

// Tools is the narrow contract with the external black-box capabilities.
// Arguments are typed; implementations must never build shell strings from
// them. A nonzero tool exit is fatal for the run.
type Tools interface {
	// Cluster clusters inputFasta at the given radius (percent mismatch)
	// and writes representative sequences to outputFasta. Single-threaded
	// by external-tool constraint.
	Cluster(ctx context.Context, inputFasta, outputFasta string, radiusPct int) error
	// Search maps every query against the database at the given fractional
	// identity and returns the (query, target) hit list. Multi-threaded.
	Search(ctx context.Context, queryFasta, dbFasta string, identity float64, threads int) ([]Hit, error)
	// ChimeraCheck writes the non-chimeric subset of candidateFasta to
	// outputFasta, judged against the reference database.
	ChimeraCheck(ctx context.Context, candidateFasta, referenceDB, outputFasta string) error
	// Classify returns per-representative ranked taxon assignments.
	Classify(ctx context.Context, fasta, trainingModel string, minWordCount int) (map[int64][]Assignment, error)
}

// ExecTools invokes the capabilities as subprocesses with
// usearch-compatible argument conventions. Stderr is captured and attached
// to the error on nonzero exit.
type ExecTools struct {
	// ClusterBin and SearchBin default to "vsearch"; ChimeraBin defaults to
	// SearchBin; ClassifyBin defaults to "classifier".
	ClusterBin  string
	SearchBin   string
	ChimeraBin  string
	ClassifyBin string
	// Workspace for tool output files (hit lists, classifier tables).
	Dir string
}

var _ Tools = (*ExecTools)(nil)

func (t *ExecTools) run(ctx context.Context, name string, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	stderr := bytes.Buffer{}
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return toolError(err, name, "failed:", strings.TrimSpace(stderr.String()))
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Cluster implements Tools.Cluster.
func (t *ExecTools) Cluster(ctx context.Context, inputFasta, outputFasta string, radiusPct int) error {
	return t.run(ctx, "cluster", orDefault(t.ClusterBin, "vsearch"),
		"--cluster_size", inputFasta,
		"--id", strconv.FormatFloat(identityFor(radiusPct), 'f', 2, 64),
		"--centroids", outputFasta,
		"--sizein",
		"--threads", "1")
}

// Search implements Tools.Search.
func (t *ExecTools) Search(ctx context.Context, queryFasta, dbFasta string, identity float64, threads int) ([]Hit, error) {
	out, err := ioutil.TempFile(t.Dir, "hits-")
	if err != nil {
		return nil, err
	}
	outPath := out.Name()
	if err := out.Close(); err != nil {
		return nil, err
	}
	defer os.Remove(outPath) // nolint: errcheck
	if err := t.run(ctx, "search", orDefault(t.SearchBin, "vsearch"),
		"--usearch_global", queryFasta,
		"--db", dbFasta,
		"--id", strconv.FormatFloat(identity, 'f', 4, 64),
		"--userout", outPath,
		"--userfields", "query+target",
		"--threads", strconv.Itoa(threads)); err != nil {
		return nil, err
	}
	return readHits(outPath)
}

// readHits parses a two-column (query id, target id) hit list.
func readHits(path string) ([]Hit, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close() // nolint: errcheck
	var hits []Hit
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, integrityError("malformed hit row", line, "in", path)
		}
		q, err1 := parseHitID(fields[0])
		target, err2 := parseHitID(fields[1])
		if err1 != nil || err2 != nil {
			return nil, integrityError("non-numeric id in hit row", line, "in", path)
		}
		hits = append(hits, Hit{Query: q, Target: target})
	}
	if sc.Err() != nil {
		return nil, sc.Err()
	}
	return hits, nil
}

// parseHitID accepts either a bare numeric id or the full size-tagged
// header label the tool may echo back ("17;size=245").
func parseHitID(field string) (int64, error) {
	if semi := strings.IndexByte(field, ';'); semi >= 0 {
		field = field[:semi]
	}
	return strconv.ParseInt(field, 10, 64)
}

// ChimeraCheck implements Tools.ChimeraCheck.
func (t *ExecTools) ChimeraCheck(ctx context.Context, candidateFasta, referenceDB, outputFasta string) error {
	return t.run(ctx, "chimera check", orDefault(t.ChimeraBin, orDefault(t.SearchBin, "vsearch")),
		"--uchime_ref", candidateFasta,
		"--db", referenceDB,
		"--nonchimeras", outputFasta,
		"--sizein", "--xsize")
}

// Classify implements Tools.Classify. The classifier writes one row per
// input sequence: id, then repeated (taxon, confidence) pairs in rank
// order.
func (t *ExecTools) Classify(ctx context.Context, fasta, trainingModel string, minWordCount int) (map[int64][]Assignment, error) {
	out, err := ioutil.TempFile(t.Dir, "taxa-")
	if err != nil {
		return nil, err
	}
	outPath := out.Name()
	if err := out.Close(); err != nil {
		return nil, err
	}
	defer os.Remove(outPath) // nolint: errcheck
	if err := t.run(ctx, "classify", orDefault(t.ClassifyBin, "classifier"),
		"--train_propfile", trainingModel,
		"--min_words", strconv.Itoa(minWordCount),
		"--outputFile", outPath,
		fasta); err != nil {
		return nil, err
	}
	in, err := os.Open(outPath)
	if err != nil {
		return nil, err
	}
	defer in.Close() // nolint: errcheck
	return parseClassifications(outPath, in)
}

func parseClassifications(path string, in io.Reader) (map[int64][]Assignment, error) {
	result := map[int64][]Assignment{}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 || len(fields)%2 != 1 {
			return nil, integrityError("malformed classification row", line, "in", path)
		}
		id, err := parseHitID(fields[0])
		if err != nil {
			return nil, integrityError("non-numeric id in classification row", line, "in", path)
		}
		var ranked []Assignment
		for i := 1; i < len(fields); i += 2 {
			conf, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, integrityError("bad confidence in classification row", line, "in", path)
			}
			ranked = append(ranked, Assignment{Taxon: fields[i], Confidence: conf})
		}
		result[id] = ranked
	}
	if sc.Err() != nil {
		return nil, sc.Err()
	}
	return result, nil
}
