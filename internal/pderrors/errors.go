// Package pderrors holds the sentinel error kinds shared across every
// subsystem so both the internal packages and the root persistds package can
// compare against the same values without an import cycle.
package pderrors

import "errors"

var (
	// ErrInvalidArgument is returned for malformed caller input, such as a
	// B+-tree branching factor below 3.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a key, registry record, or snapshot
	// parent does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on a duplicate B+-tree key insert.
	ErrAlreadyExists = errors.New("already exists")

	// ErrOutOfSpace is returned when no metaslab can satisfy an allocation.
	ErrOutOfSpace = errors.New("out of space")

	// ErrIO is returned when a read or write against the backing store
	// fails.
	ErrIO = errors.New("io error")

	// ErrConflict is returned when a pop is refused because the candidate
	// value is pinned by a snapshot, or a clear is refused because
	// snapshots still exist.
	ErrConflict = errors.New("conflict")

	// ErrCorruption is returned on a record signature mismatch mid-stream
	// or a registry update whose payload would overflow its slot.
	ErrCorruption = errors.New("corruption")
)
