package otu

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseHitID(t *testing.T) {
	for _, test := range []struct {
		field string
		want  int64
	}{
		{"17", 17},
		{"0", 0},
		{"17;size=245", 17},
		{"3;size=1;obs=0:1", 3},
	} {
		got, err := parseHitID(test.field)
		assert.NoError(t, err, test.field)
		expect.EQ(t, got, test.want, test.field)
	}
	for _, bad := range []string{"", "x", "size=245", ";size=1"} {
		_, err := parseHitID(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestReadHits(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(tempDir, "hits.tsv")
	body := "0\t3\n17;size=245\t2;size=9\n\n5\t5\n"
	assert.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	hits, err := readHits(path)
	assert.NoError(t, err)
	expect.EQ(t, hits, []Hit{{0, 3}, {17, 2}, {5, 5}})

	assert.NoError(t, ioutil.WriteFile(path, []byte("justonefield\n"), 0644))
	_, err = readHits(path)
	assert.NotNil(t, err)
	expect.EQ(t, ExitCode(err), ExitIntegrity)
}

func TestParseClassifications(t *testing.T) {
	body := strings.Join([]string{
		"0\tBacteria\t1.0\tFirmicutes\t0.87",
		"2\tBacteria\t0.95",
		"",
	}, "\n")
	got, err := parseClassifications("taxa.tsv", strings.NewReader(body))
	assert.NoError(t, err)
	expect.EQ(t, got, map[int64][]Assignment{
		0: {{Taxon: "Bacteria", Confidence: 1.0}, {Taxon: "Firmicutes", Confidence: 0.87}},
		2: {{Taxon: "Bacteria", Confidence: 0.95}},
	})

	for _, bad := range []string{
		"0\tBacteria",          // dangling taxon without confidence
		"0\tBacteria\tnotanum", // bad confidence
		"x\tBacteria\t0.9",     // bad id
	} {
		_, err := parseClassifications("taxa.tsv", strings.NewReader(bad+"\n"))
		assert.NotNil(t, err, bad)
		expect.EQ(t, ExitCode(err), ExitIntegrity, bad)
	}
}

func TestConsensusTaxonomy(t *testing.T) {
	ranked := []Assignment{
		{Taxon: "Bacteria", Confidence: 1.0},
		{Taxon: "Firmicutes", Confidence: 0.87},
		{Taxon: "Clostridia", Confidence: 0.42},
	}
	expect.EQ(t, consensusTaxonomy(ranked, 0.8), "Bacteria;Firmicutes")
	expect.EQ(t, consensusTaxonomy(ranked, 0.99), "Bacteria")
	expect.EQ(t, consensusTaxonomy(ranked, 0.0), "Bacteria;Firmicutes;Clostridia")
	expect.EQ(t, consensusTaxonomy(nil, 0.8), "unclassified")
}
