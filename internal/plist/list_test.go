package plist_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saptarshi/persistds/internal/alloc"
	"github.com/saptarshi/persistds/internal/bstore"
	"github.com/saptarshi/persistds/internal/pderrors"
	"github.com/saptarshi/persistds/internal/plist"
	"github.com/saptarshi/persistds/internal/registry"
)

const testRegionSize = 1 << 16

type harness struct {
	store *bstore.Store
	alloc *alloc.Allocator
	reg   *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plist.db")
	s, err := bstore.Open(path, int64(alloc.MetaslabSize), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	a, err := alloc.Open(s, alloc.MetaslabSize, nil)
	require.NoError(t, err)

	r, err := registry.Open(s, a, testRegionSize, nil)
	require.NoError(t, err)

	return &harness{store: s, alloc: a, reg: r}
}

func TestPushThenDump(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(1))
	require.NoError(t, l.Push(2))
	require.NoError(t, l.Push(3))

	require.Equal(t, []uint64{1, 2, 3}, l.Dump())
	require.Equal(t, uint64(3), l.Len())
}

func TestPopReturnsMostRecentUnpinned(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(1))
	require.NoError(t, l.Push(2))

	v, err := l.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(2), v)
	require.Equal(t, []uint64{1}, l.Dump())
}

func TestPopOnEmptyListFails(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	_, err = l.Pop()
	require.ErrorIs(t, err, pderrors.ErrNotFound)
}

func TestPopRefusesSnapshotPinnedTail(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(1))
	require.NoError(t, l.Push(2))

	parentKey := plist.HashID("mylist")
	_, err = h.reg.Snapshot(plist.HashID("snap-of-mylist"), parentKey)
	require.NoError(t, err)

	_, err = l.Pop()
	require.ErrorIs(t, err, pderrors.ErrConflict)
}

func TestClearRefusesWhileSnapshotExists(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(1))

	parentKey := plist.HashID("mylist")
	_, err = h.reg.Snapshot(plist.HashID("snap-of-mylist"), parentKey)
	require.NoError(t, err)

	err = l.Clear()
	require.ErrorIs(t, err, pderrors.ErrConflict)
}

func TestClearEmptiesListAndRegistryEntry(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(1))
	require.NoError(t, l.Push(2))

	require.NoError(t, l.Clear())
	require.Empty(t, l.Dump())

	_, ok := h.reg.Find(plist.HashID("mylist"))
	require.False(t, ok)
}

func TestBindRebuildsFromDisk(t *testing.T) {
	h := newHarness(t)

	l, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.NoError(t, l.Push(10))
	require.NoError(t, l.Push(20))

	l2, err := plist.Bind(h.store, h.alloc, h.reg, "mylist", nil)
	require.NoError(t, err)

	require.Equal(t, []uint64{10, 20}, l2.Dump())
}
