package otu

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// AbundanceVector holds per-library read counts for one dereplicated
// sequence. Slot i is the count contributed by library i, in the library
// order fixed at the start of the run. Counts are never negative.
type AbundanceVector []int64

// NewAbundanceVector returns a zero vector with one slot per library.
func NewAbundanceVector(nLibs int) AbundanceVector {
	return make(AbundanceVector, nLibs)
}

// Total returns the sum over all library slots.
func (v AbundanceVector) Total() int64 {
	var t int64
	for _, c := range v {
		t += c
	}
	return t
}

// Add folds o into v elementwise. Folding is commutative and associative,
// so fan-in order does not affect totals.
func (v AbundanceVector) Add(o AbundanceVector) {
	if len(v) != len(o) {
		panic("abundance vector length mismatch")
	}
	for i, c := range o {
		v[i] += c
	}
}

// Clone returns an independent copy of v.
func (v AbundanceVector) Clone() AbundanceVector {
	c := make(AbundanceVector, len(v))
	copy(c, v)
	return c
}

// String renders v as comma-separated per-library counts.
func (v AbundanceVector) String() string {
	b := strings.Builder{}
	for i, c := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(c, 10))
	}
	return b.String()
}

// ParseAbundanceVector parses the comma-separated form produced by String.
func ParseAbundanceVector(s string, nLibs int) (AbundanceVector, error) {
	fields := strings.Split(s, ",")
	if len(fields) != nLibs {
		return nil, errors.E("abundance vector", s, "has", len(fields), "slots, want", nLibs)
	}
	v := make(AbundanceVector, nLibs)
	for i, f := range fields {
		c, err := strconv.ParseInt(f, 10, 64)
		if err != nil || c < 0 {
			return nil, errors.E("bad abundance vector slot", f)
		}
		v[i] = c
	}
	return v, nil
}

// EncodeSparse renders v as comma-separated "libIndex:count" pairs for the
// nonzero slots only. Semantically identical to the dense form; used to keep
// singlet spill files compact.
func (v AbundanceVector) EncodeSparse() string {
	b := strings.Builder{}
	first := true
	for i, c := range v {
		if c == 0 {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(c, 10))
	}
	return b.String()
}

// DecodeSparse expands the sparse form back into a dense vector of nLibs
// slots.
func DecodeSparse(s string, nLibs int) (AbundanceVector, error) {
	v := make(AbundanceVector, nLibs)
	if s == "" {
		return v, nil
	}
	for _, pair := range strings.Split(s, ",") {
		colon := strings.IndexByte(pair, ':')
		if colon <= 0 {
			return nil, errors.E("malformed sparse abundance pair", pair)
		}
		i, err := strconv.Atoi(pair[:colon])
		if err != nil || i < 0 || i >= nLibs {
			return nil, errors.E("bad library index in sparse abundance pair", pair)
		}
		c, err := strconv.ParseInt(pair[colon+1:], 10, 64)
		if err != nil || c <= 0 {
			return nil, errors.E("bad count in sparse abundance pair", pair)
		}
		v[i] += c
	}
	return v, nil
}
