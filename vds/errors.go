// Package vds synthesizes virtual datasets from source datasets.
package vds

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrValidation          = errors.New("invalid mapping")
	ErrConcurrentAccess    = errors.New("virtual dataset is in use by another caller")
	ErrParallelUnsupported = errors.New("parallel access to a virtual dataset is not supported")
	ErrOutOfBounds         = errors.New("selection exceeds the virtual dataset extent")
	ErrBufferTooSmall      = errors.New("buffer too small for memory selection")
	ErrElementSize         = errors.New("source element size differs from virtual element size")
	ErrClosed              = errors.New("virtual dataset is closed")
)

// ValidationError reports a malformed mapping or layout. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Op     string
	Reason string
	Err    error
}

func validationErr(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// IoError reports a failed elementary read or write against a source
// dataset.
type IoError struct {
	Op      string // "read" or "write"
	File    string
	Dataset string
	Err     error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s in %s: %v", e.Op, e.Dataset, e.File, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// CoverageError reports a write that reaches virtual elements no mapping
// backs. Nothing is written when it is returned.
type CoverageError struct {
	Requested uint64
	Covered   uint64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("write covers %d of %d requested elements: region not mapped to any source", e.Covered, e.Requested)
}
