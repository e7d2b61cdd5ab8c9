package persistds

import "github.com/saptarshi/persistds/internal/pderrors"

// Sentinel error kinds returned by the engine and its subsystems. Callers
// should compare with errors.Is against these values rather than the
// wrapped message text. They are re-exported from internal/pderrors so every
// subsystem package can return the same underlying values without importing
// this root package.
var (
	// ErrInvalidArgument is returned for malformed caller input, such as a
	// B+-tree branching factor below 3.
	ErrInvalidArgument = pderrors.ErrInvalidArgument

	// ErrNotFound is returned when a key, registry record, or snapshot
	// parent does not exist.
	ErrNotFound = pderrors.ErrNotFound

	// ErrAlreadyExists is returned on a duplicate B+-tree key insert.
	ErrAlreadyExists = pderrors.ErrAlreadyExists

	// ErrOutOfSpace is returned when no metaslab can satisfy an allocation.
	ErrOutOfSpace = pderrors.ErrOutOfSpace

	// ErrIO is returned when a read or write against the backing store
	// fails.
	ErrIO = pderrors.ErrIO

	// ErrConflict is returned when a pop is refused because the candidate
	// value is pinned by a snapshot, or a clear is refused because
	// snapshots still exist.
	ErrConflict = pderrors.ErrConflict

	// ErrCorruption is returned on a record signature mismatch mid-stream
	// or a registry update whose payload would overflow its slot.
	ErrCorruption = pderrors.ErrCorruption
)
