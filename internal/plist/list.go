// Package plist implements C6: a persistent, append-only linked list whose
// metadata lives in one registry record, supporting snapshot-aware pop and
// clear. Grounded on original_source/cpp/vlinklist.hpp's
// PersistentLinkList<T,IO,Allocator> (BuildList/push_back/pop_back/clear),
// translated with an explicit on-disk PhysNext per node rather than relying
// on allocator contiguity, per spec section 9's resolution of that open
// question.
package plist

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/saptarshi/persistds/internal/alloc"
	"github.com/saptarshi/persistds/internal/pderrors"
	"github.com/saptarshi/persistds/internal/record"
	"github.com/saptarshi/persistds/internal/registry"
)

// node is one physical element of the list: a fixed-width uint64 value plus
// bookkeeping. PhysBirth is 0 for a tombstone (logical delete marker),
// non-zero (equal to PhysCurr) for a live node.
type node struct {
	Value     uint64
	PhysCurr  uint64
	PhysBirth uint64
	PhysNext  uint64
}

const nodeSize = 32 // 4 uint64 fields

func (n *node) encode() []byte {
	buf := make([]byte, nodeSize)
	binary.LittleEndian.PutUint64(buf[0:8], n.Value)
	binary.LittleEndian.PutUint64(buf[8:16], n.PhysCurr)
	binary.LittleEndian.PutUint64(buf[16:24], n.PhysBirth)
	binary.LittleEndian.PutUint64(buf[24:32], n.PhysNext)
	return buf
}

func decodeNode(buf []byte) (*node, error) {
	if len(buf) != nodeSize {
		return nil, fmt.Errorf("list node payload has size %d, want %d: %w", len(buf), nodeSize, pderrors.ErrCorruption)
	}

	return &node{
		Value:     binary.LittleEndian.Uint64(buf[0:8]),
		PhysCurr:  binary.LittleEndian.Uint64(buf[8:16]),
		PhysBirth: binary.LittleEndian.Uint64(buf[16:24]),
		PhysNext:  binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}

// HashID derives a registry key from a user-visible list identifier, using
// the standard library's FNV-1a: no pack example ships a generic string-
// hash library and this is a one-line stdlib-idiomatic concern, so it is
// not grounded on a third-party dependency.
func HashID(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// List is a persistent linked list bound to one registry entry.
type List struct {
	store record.Store
	alloc *alloc.Allocator
	reg   *registry.Registry

	key uint64
	rec *registry.Record

	nodes []*node          // all physical nodes, in push order, including tombstones
	live  map[uint64]*node // value -> latest live node

	log *zap.SugaredLogger
}

// Bind creates or reopens the registry entry for id and, if it already has
// elements, rebuilds the in-memory chain from disk.
func Bind(s record.Store, a *alloc.Allocator, reg *registry.Registry, id string, log *zap.SugaredLogger) (*List, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	key := HashID(id)

	rec, ok := reg.Find(key)
	if !ok {
		var err error
		rec, err = reg.Insert(key)
		if err != nil {
			return nil, fmt.Errorf("binding list %q: %w", id, err)
		}

		log.Debugw("list registry entry created", "id", id, "key", key)
	}

	l := &List{
		store: s,
		alloc: a,
		reg:   reg,
		key:   key,
		rec:   rec,
		live:  make(map[uint64]*node),
		log:   log,
	}

	if rec.NrElements > 0 {
		if err := l.rebuild(); err != nil {
			return nil, fmt.Errorf("rebuilding list %q: %w", id, err)
		}
	}

	return l, nil
}

func (l *List) readNode(offset uint64) (*node, error) {
	buf, err := l.store.ReadAt(offset, nodeSize)
	if err != nil {
		return nil, err
	}

	return decodeNode(buf)
}

// rebuild walks the on-disk chain starting at PhysNext, following each
// node's explicit PhysNext pointer (not physical contiguity) until
// NrElements nodes have been read.
func (l *List) rebuild() error {
	offset := l.rec.PhysNext

	for count := uint64(0); count < l.rec.NrElements; count++ {
		n, err := l.readNode(offset)
		if err != nil {
			return fmt.Errorf("reading list node at %d: %w", offset, err)
		}

		l.nodes = append(l.nodes, n)

		if n.PhysBirth != 0 {
			l.live[n.Value] = n
		} else {
			delete(l.live, n.Value)
		}

		offset = n.PhysNext
	}

	return nil
}

// PushBack appends value. tombstone marks the node as already-dead on
// arrival (used internally by Pop to record a logical delete).
func (l *List) PushBack(value uint64, tombstone bool) error {
	extent, err := l.alloc.Allocate(nodeSize)
	if err != nil {
		return fmt.Errorf("allocating list node: %w", err)
	}

	n := &node{Value: value, PhysCurr: extent.Base}
	if !tombstone {
		n.PhysBirth = extent.Base
	}

	if err := l.store.WriteAt(n.PhysCurr, n.encode()); err != nil {
		return fmt.Errorf("writing list node at %d: %w", n.PhysCurr, err)
	}

	if len(l.nodes) > 0 {
		prev := l.nodes[len(l.nodes)-1]
		prev.PhysNext = n.PhysCurr

		nextField := make([]byte, 8)
		binary.LittleEndian.PutUint64(nextField, n.PhysCurr)

		if err := l.store.WriteAt(prev.PhysCurr+24, nextField); err != nil {
			return fmt.Errorf("linking list node at %d: %w", prev.PhysCurr, err)
		}
	} else {
		l.rec.PhysNext = n.PhysCurr
	}

	l.rec.NrElements++
	if err := l.reg.Update(l.rec); err != nil {
		return fmt.Errorf("updating registry after push: %w", err)
	}

	l.nodes = append(l.nodes, n)
	if !tombstone {
		l.live[value] = n
	}

	l.log.Debugw("list push_back", "value", value, "tombstone", tombstone)
	return nil
}

// Push is the public, non-tombstoning append.
func (l *List) Push(value uint64) error { return l.PushBack(value, false) }

// Pop removes the logical tail: the last live node. It is recorded as an
// append-only tombstone, never erased in place. Returns ErrConflict as soon
// as the backward walk reaches a node holding the snapshot-pinned value;
// it does not skip past it to an older value.
func (l *List) Pop() (uint64, error) {
	if len(l.nodes) == 0 {
		return 0, fmt.Errorf("popping list: %w", pderrors.ErrNotFound)
	}

	snapItems := l.reg.SnapElements(l.key)

	var pinnedValue uint64
	havePin := false

	if snapItems > 0 && snapItems <= uint64(len(l.nodes)) {
		pinnedValue = l.nodes[snapItems-1].Value
		havePin = true
	}

	for i := len(l.nodes) - 1; i >= 0; i-- {
		n := l.nodes[i]

		if havePin && n.Value == pinnedValue {
			return 0, fmt.Errorf("pop: value %d is pinned by a snapshot: %w", n.Value, pderrors.ErrConflict)
		}

		if n.PhysBirth == 0 {
			continue
		}

		if cur, ok := l.live[n.Value]; !ok || cur != n {
			continue
		}

		if err := l.PushBack(n.Value, true); err != nil {
			return 0, fmt.Errorf("tombstoning value %d: %w", n.Value, err)
		}

		delete(l.live, n.Value)
		return n.Value, nil
	}

	return 0, fmt.Errorf("popping list: %w", pderrors.ErrNotFound)
}

// Clear releases the list's data region and removes its registry entry.
// Refused with ErrConflict while any snapshot still observes this list.
func (l *List) Clear() error {
	if l.rec.PhysNext == 0 {
		return l.reg.Remove(l.key)
	}

	if l.reg.SnapElements(l.key) > 0 {
		return fmt.Errorf("clearing list: %w", pderrors.ErrConflict)
	}

	// Nodes are allocated individually and are not guaranteed contiguous, so
	// each is zeroed and deallocated on its own rather than as one region.
	zero := make([]byte, nodeSize)

	for _, n := range l.nodes {
		if err := l.store.WriteAt(n.PhysCurr, zero); err != nil {
			return fmt.Errorf("zeroing list node at %d: %w", n.PhysCurr, err)
		}

		if err := l.alloc.DeAllocate(n.PhysCurr, nodeSize); err != nil {
			return fmt.Errorf("deallocating list node at %d: %w", n.PhysCurr, err)
		}
	}

	l.nodes = nil
	l.live = make(map[uint64]*node)

	if err := l.reg.Remove(l.key); err != nil {
		return fmt.Errorf("removing list registry entry: %w", err)
	}

	l.log.Debugw("list cleared")
	return nil
}

// Dump returns the currently live values in physical push order.
func (l *List) Dump() []uint64 {
	var out []uint64

	for _, n := range l.nodes {
		if cur, ok := l.live[n.Value]; ok && cur == n {
			out = append(out, n.Value)
		}
	}

	return out
}

// Len returns the total physical node count, including tombstones,
// matching the registry's NrElements bookkeeping.
func (l *List) Len() uint64 { return l.rec.NrElements }
