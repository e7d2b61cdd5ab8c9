// Package registry implements C5: a persistent, bump-allocated index of
// named data-structure instances and their snapshot relationships. Grounded
// on original_source/cpp/registry.hpp's Registry<IO,Allocator> (scan-to-
// discover open, cursor-based insert, in-place update, snapshot bookkeeping
// via GetSnapElements) translated using the shared internal/record codec in
// place of protobuf framing.
package registry

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/saptarshi/persistds/internal/alloc"
	"github.com/saptarshi/persistds/internal/pderrors"
	"github.com/saptarshi/persistds/internal/record"
)

// Signature tags every registry log entry.
const Signature uint64 = 0xdeadbeef

// Align is the byte alignment every registry entry starts on.
const Align uint64 = 128

// payloadSize is the fixed serialized size of a Record: it must never
// change across versions of a given slot, since update() only ever
// rewrites the size+payload of an already-reserved Align-sized slot (spec
// section 9's resolution (a) of the bump-allocator truncation hazard).
const payloadSize = 64

// Type distinguishes the kind of data structure a registry entry backs.
type Type uint32

const (
	TypeList Type = iota
	TypeBTree
	TypeBPTree
)

// Record is one registry entry: the physical entry point and bookkeeping
// for a named data-structure instance, and its snapshot lineage if any.
type Record struct {
	Version    uint64
	Key        uint64
	PKey       uint64 // 0 if root, else parent key
	IsSnap     bool
	WriteGen   uint64
	PhysCurr   uint64 // offset of this record's slot; immutable after insert
	PhysNext   uint64 // data head
	NrElements uint64
	Type       Type
}

func encode(r *Record) []byte {
	buf := make([]byte, payloadSize)
	binary.LittleEndian.PutUint64(buf[0:8], r.Version)
	binary.LittleEndian.PutUint64(buf[8:16], r.Key)
	binary.LittleEndian.PutUint64(buf[16:24], r.PKey)

	isSnap := uint32(0)
	if r.IsSnap {
		isSnap = 1
	}
	binary.LittleEndian.PutUint32(buf[24:28], isSnap)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(r.Type))

	binary.LittleEndian.PutUint64(buf[32:40], r.WriteGen)
	binary.LittleEndian.PutUint64(buf[40:48], r.PhysCurr)
	binary.LittleEndian.PutUint64(buf[48:56], r.PhysNext)
	binary.LittleEndian.PutUint64(buf[56:64], r.NrElements)

	return buf
}

func decode(buf []byte) (*Record, error) {
	if len(buf) != payloadSize {
		return nil, fmt.Errorf("registry record payload has size %d, want %d: %w", len(buf), payloadSize, pderrors.ErrCorruption)
	}

	return &Record{
		Version:    binary.LittleEndian.Uint64(buf[0:8]),
		Key:        binary.LittleEndian.Uint64(buf[8:16]),
		PKey:       binary.LittleEndian.Uint64(buf[16:24]),
		IsSnap:     binary.LittleEndian.Uint32(buf[24:28]) != 0,
		Type:       Type(binary.LittleEndian.Uint32(buf[28:32])),
		WriteGen:   binary.LittleEndian.Uint64(buf[32:40]),
		PhysCurr:   binary.LittleEndian.Uint64(buf[40:48]),
		PhysNext:   binary.LittleEndian.Uint64(buf[48:56]),
		NrElements: binary.LittleEndian.Uint64(buf[56:64]),
	}, nil
}

func roundUp(pos, align uint64) uint64 {
	if pos%align == 0 {
		return pos
	}

	return pos + align - (pos % align)
}

// Registry is the in-memory discovery list plus the on-disk bump cursor
// backing it.
type Registry struct {
	store Store
	alloc *alloc.Allocator

	regionStart uint64
	regionSize  uint64
	cursor      uint64

	records []*Record

	log *zap.SugaredLogger
}

// Store is the narrow backing-store contract registry needs.
type Store = record.Store

// Open scans the registry region for contiguous signature-tagged records
// starting at the conventional region start (the data-region start of
// metaslab 0, immediately after its spacemap log), per spec section 4.5.1.
// If no record is found, the region is carved from the allocator on demand.
func Open(s Store, a *alloc.Allocator, regionSize uint64, log *zap.SugaredLogger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	regionStart := roundUp(alloc.SpacemapLogSize, Align)

	r := &Registry{store: s, alloc: a, regionStart: regionStart, regionSize: regionSize, log: log}

	pos := regionStart
	for pos < regionStart+regionSize {
		payload, next, ok, err := record.ReadU64(s, pos, Signature)
		if err != nil {
			return nil, fmt.Errorf("scanning registry at %d: %w", pos, err)
		}

		if !ok {
			break
		}

		rec, decErr := decode(payload)
		if decErr != nil {
			return nil, decErr
		}

		r.records = append(r.records, rec)
		pos = roundUp(next, Align)
	}

	if len(r.records) == 0 {
		extent, err := a.Allocate(regionSize)
		if err != nil {
			return nil, fmt.Errorf("carving registry region: %w", err)
		}

		r.cursor = roundUp(extent.Base, Align)
		log.Debugw("registry region carved", "offset", r.cursor)
	} else {
		r.cursor = pos
		log.Debugw("registry replayed", "records", len(r.records), "cursor", r.cursor)
	}

	return r, nil
}

// Find returns the record for key, if any.
func (r *Registry) Find(key uint64) (*Record, bool) {
	for _, rec := range r.records {
		if rec.Key == key {
			return rec, true
		}
	}

	return nil, false
}

// Insert creates a new record with default fields for key at the current
// bump cursor, writes it, and advances the cursor.
func (r *Registry) Insert(key uint64) (*Record, error) {
	rec := &Record{
		Version:    0,
		Key:        key,
		PKey:       0,
		IsSnap:     false,
		WriteGen:   r.cursor,
		PhysCurr:   r.cursor,
		PhysNext:   0,
		NrElements: 0,
		Type:       TypeList,
	}

	next, err := record.WriteU64(r.store, r.cursor, Signature, encode(rec))
	if err != nil {
		return nil, fmt.Errorf("inserting registry record for key %d: %w", key, err)
	}

	r.records = append(r.records, rec)
	r.cursor = roundUp(next, Align)

	r.log.Debugw("registry insert", "key", key, "offset", rec.PhysCurr)
	return rec, nil
}

// Update rewrites only the length+payload of rec's already-reserved slot;
// the signature is never rewritten and PhysCurr never changes.
func (r *Registry) Update(rec *Record) error {
	if _, ok := r.Find(rec.Key); !ok {
		return fmt.Errorf("updating registry record for key %d: %w", rec.Key, pderrors.ErrNotFound)
	}

	if err := record.RewritePayloadU64(r.store, rec.PhysCurr, encode(rec), payloadSize); err != nil {
		return fmt.Errorf("updating registry record for key %d: %w", rec.Key, err)
	}

	r.log.Debugw("registry update", "key", rec.Key)
	return nil
}

// Remove zeros PhysNext/NrElements/WriteGen on disk and drops the in-memory
// entry; the slot itself is not reclaimed.
func (r *Registry) Remove(key uint64) error {
	rec, ok := r.Find(key)
	if !ok {
		return fmt.Errorf("removing registry record for key %d: %w", key, pderrors.ErrNotFound)
	}

	rec.PhysNext = 0
	rec.NrElements = 0
	rec.WriteGen = 0

	if err := record.RewritePayloadU64(r.store, rec.PhysCurr, encode(rec), payloadSize); err != nil {
		return fmt.Errorf("removing registry record for key %d: %w", key, err)
	}

	for i, cand := range r.records {
		if cand.Key == key {
			r.records = append(r.records[:i], r.records[i+1:]...)
			break
		}
	}

	r.log.Debugw("registry remove", "key", key)
	return nil
}

// Snapshot creates a new record for childKey that captures parentKey's
// current PhysNext and NrElements. Returns ErrNotFound if the parent is
// missing, resolving spec section 9's open question on snapshotting a
// removed/absent parent.
func (r *Registry) Snapshot(childKey, parentKey uint64) (*Record, error) {
	parent, ok := r.Find(parentKey)
	if !ok {
		return nil, fmt.Errorf("snapshot parent %d: %w", parentKey, pderrors.ErrNotFound)
	}

	rec := &Record{
		Version:    0,
		Key:        childKey,
		PKey:       parent.Key,
		IsSnap:     true,
		WriteGen:   r.cursor,
		PhysCurr:   r.cursor,
		PhysNext:   parent.PhysNext,
		NrElements: parent.NrElements,
		Type:       parent.Type,
	}

	next, err := record.WriteU64(r.store, r.cursor, Signature, encode(rec))
	if err != nil {
		return nil, fmt.Errorf("writing snapshot record for key %d: %w", childKey, err)
	}

	r.records = append(r.records, rec)
	r.cursor = roundUp(next, Align)

	r.log.Debugw("registry snapshot", "child", childKey, "parent", parentKey)
	return rec, nil
}

// SnapElements returns the maximum NrElements across all entries whose PKey
// is parentKey, or 0 if none exist. Used by the persistent linked list to
// avoid popping elements still observed by an older snapshot.
func (r *Registry) SnapElements(parentKey uint64) uint64 {
	var max uint64

	for _, rec := range r.records {
		if rec.PKey == parentKey && rec.NrElements > max {
			max = rec.NrElements
		}
	}

	return max
}

// Records returns the in-memory list in discovery order, for diagnostics
// and tests.
func (r *Registry) Records() []*Record {
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}
