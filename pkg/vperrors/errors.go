// Package vperrors defines the error taxonomy shared by every package in the
// labeler core: build-time and apply-time failures are always one of
// InvalidArgument, OutOfRange, Internal, or Unimplemented.
package vperrors

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidArgument covers build-time schema violations and the
	// runtime cases called out in the error handling design: an
	// unmatched condition selector, a matrix updater with no matching
	// column and pass_through_non_matches=false, an unset shredder
	// field, a duplicate virtual-person-id collision.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange covers multiplicity bounds violations.
	ErrOutOfRange = errors.New("out of range")

	// ErrInternal covers impossible-state assertions: an out-of-bounds
	// distribution index, a nil column matcher, a builder contract
	// violation.
	ErrInternal = errors.New("internal error")

	// ErrUnimplemented is reserved for explicitly unsupported updater
	// kinds.
	ErrUnimplemented = errors.New("unimplemented")
)

// BuildError wraps a build-time failure with the component that raised it.
type BuildError struct {
	Component string
	Err       error
}

func (e *BuildError) Error() string {
	return e.Component + ": " + e.Err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ApplyError wraps a runtime failure with the index of the node that raised
// it, when known. NodeIndex is -1 when the failing node carries no index.
type ApplyError struct {
	NodeIndex int
	Err       error
}

func (e *ApplyError) Error() string {
	if e.NodeIndex < 0 {
		return e.Err.Error()
	}
	return "node " + strconv.Itoa(e.NodeIndex) + ": " + e.Err.Error()
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
