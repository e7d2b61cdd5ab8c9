package persistds

import (
	"fmt"

	"github.com/saptarshi/persistds/internal/plist"
)

// ListHandle is a bound handle onto one persistent linked list, obtained
// via Engine.BindList.
type ListHandle struct {
	list *plist.List
}

// Push appends value to the list.
func (h *ListHandle) Push(value uint64) error {
	if err := h.list.Push(value); err != nil {
		return fmt.Errorf("pushing to list: %w", err)
	}

	return nil
}

// Pop removes and returns the most recent live value. It fails with
// ErrConflict when that value is pinned by a snapshot; older values are
// not tried.
func (h *ListHandle) Pop() (uint64, error) {
	v, err := h.list.Pop()
	if err != nil {
		return 0, fmt.Errorf("popping from list: %w", err)
	}

	return v, nil
}

// Clear empties the list outright, refusing if a snapshot still observes
// any of its elements.
func (h *ListHandle) Clear() error {
	if err := h.list.Clear(); err != nil {
		return fmt.Errorf("clearing list: %w", err)
	}

	return nil
}

// Dump returns every live value in push order, for tests and diagnostics.
func (h *ListHandle) Dump() []uint64 {
	return h.list.Dump()
}

// Len reports the number of elements ever recorded against this list's
// registry entry (spec's NR_ELEMENTS, includes tombstoned slots already
// accounted for by the registry).
func (h *ListHandle) Len() uint64 {
	return h.list.Len()
}
