package otu

import (
	"fmt"

	baseerrors "github.com/grailbio/base/errors"
)

// FailureClass partitions fatal conditions by what went wrong, so the
// process exit status can distinguish a bad configuration from corrupt
// input from a failed external tool.
type FailureClass int

const (
	// ClassConfiguration marks a missing or out-of-range parameter,
	// detected before any processing begins.
	ClassConfiguration FailureClass = iota + 1
	// ClassIntegrity marks a data-integrity violation: a declared-size
	// mismatch, a malformed record, or a hit referencing a representative
	// that does not exist. Never retried.
	ClassIntegrity
	// ClassExternalTool marks a nonzero exit from a black-box capability.
	ClassExternalTool
)

// Exit codes reported by cmd/bio-otu for each failure class.
const (
	ExitConfiguration = 2
	ExitIntegrity     = 3
	ExitExternalTool  = 4
)

// Error is a fatal pipeline error tagged with its failure class. All
// variants abort the run; there is no partial or best-effort continuation.
type Error struct {
	Class FailureClass
	Err   error
}

func (e *Error) Error() string {
	switch e.Class {
	case ClassConfiguration:
		return "configuration error: " + e.Err.Error()
	case ClassIntegrity:
		return "integrity error: " + e.Err.Error()
	case ClassExternalTool:
		return "external tool error: " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func configErrorf(format string, args ...interface{}) error {
	return &Error{Class: ClassConfiguration, Err: fmt.Errorf(format, args...)}
}

func integrityError(args ...interface{}) error {
	return &Error{Class: ClassIntegrity, Err: baseerrors.E(args...)}
}

func toolError(args ...interface{}) error {
	return &Error{Class: ClassExternalTool, Err: baseerrors.E(args...)}
}

// ExitCode maps err to the process exit status: 2 for configuration, 3 for
// integrity, 4 for external tool failures, and 1 for anything untagged.
func ExitCode(err error) int {
	if e, ok := err.(*Error); ok {
		switch e.Class {
		case ClassConfiguration:
			return ExitConfiguration
		case ClassIntegrity:
			return ExitIntegrity
		case ClassExternalTool:
			return ExitExternalTool
		}
	}
	return 1
}
