package otu

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestOptsValidate(t *testing.T) {
	assert.NoError(t, DefaultOpts.Validate())

	modify := func(f func(*Opts)) Opts {
		o := DefaultOpts
		f(&o)
		return o
	}
	for _, test := range []struct {
		name string
		o    Opts
	}{
		{"no radii", modify(func(o *Opts) { o.Radii = nil })},
		{"radius too large", modify(func(o *Opts) { o.Radii = []int{1, 50} })},
		{"radius zero", modify(func(o *Opts) { o.Radii = []int{0, 1} })},
		{"radii not increasing", modify(func(o *Opts) { o.Radii = []int{2, 2, 3} })},
		{"zero min clusterable", modify(func(o *Opts) { o.MinClusterable = 0 })},
		{"negative chunk size", modify(func(o *Opts) { o.ChunkSize = -1 })},
		{"inverted chunk bounds", modify(func(o *Opts) { o.MinChunk = 10; o.MaxChunk = 5 })},
		{"zero singlet cap", modify(func(o *Opts) { o.SingletFileCap = 0 })},
		{"zero threads", modify(func(o *Opts) { o.Threads = 0 })},
		{"bad confidence", modify(func(o *Opts) { o.TrainingModel = "m"; o.MinConfidence = 1.5 })},
	} {
		err := test.o.Validate()
		assert.NotNil(t, err, test.name)
		expect.EQ(t, ExitCode(err), ExitConfiguration, test.name)
	}

	// An explicit chunk size bypasses the derived-bound checks.
	o := DefaultOpts
	o.ChunkSize = 100
	o.MinChunk, o.MaxChunk = 0, 0
	assert.NoError(t, o.Validate())
}

func TestIdentityFor(t *testing.T) {
	expect.EQ(t, identityFor(1), 0.99)
	expect.EQ(t, identityFor(3), 0.97)
}
