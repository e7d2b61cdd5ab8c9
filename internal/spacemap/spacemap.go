// Package spacemap implements C3: a per-metaslab first-fit allocator backed
// by an append-only log of FREE/ALLOCATE/DEALLOCATE records. Grounded on
// original_source/storage_allocator.hpp's SpaceMap/SpaceMapRecord (replay
// loop, first-fit Allocate, DeAllocate) translated into Go using the shared
// internal/record codec in place of protobuf framing.
package spacemap

import (
	"encoding/binary"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/saptarshi/persistds/internal/pderrors"
	"github.com/saptarshi/persistds/internal/record"
)

// RecordSignature tags every spacemap log entry.
const RecordSignature uint32 = 0xdeadface

// Op is the kind of mutation a spacemap log record describes.
type Op uint32

const (
	OpFree Op = iota
	OpAllocate
	OpDeallocate
)

// Extent is a contiguous byte range within a metaslab's data region.
type Extent struct {
	Base uint64
	Size uint64
}

// SpaceMap is the in-memory state for one metaslab: two trees of extents
// (free and allocated) reconstructed by replaying the on-disk log, plus the
// log's append cursor.
type SpaceMap struct {
	store Store

	base    uint64 // metaslab base offset (also the log's start)
	logSize uint64 // bytes reserved for the log
	dataEnd uint64 // base + logSize + dataSize, exclusive upper bound

	cursor uint64 // next free byte in the log

	freeMap  map[uint64]Extent
	allocMap map[uint64]Extent

	cachedFreeBytes uint64

	log *zap.SugaredLogger
}

// Store is the narrow backing-store contract spacemap needs.
type Store = record.Store

// payload is (base uint64, size uint64, op uint32) = 20 bytes.
const payloadSize = 20

func encodePayload(e Extent, op Op) []byte {
	buf := make([]byte, payloadSize)
	binary.LittleEndian.PutUint64(buf[0:8], e.Base)
	binary.LittleEndian.PutUint64(buf[8:16], e.Size)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(op))
	return buf
}

func decodePayload(buf []byte) (Extent, Op, error) {
	if len(buf) != payloadSize {
		return Extent{}, 0, fmt.Errorf("spacemap record payload has size %d, want %d: %w", len(buf), payloadSize, pderrors.ErrCorruption)
	}

	e := Extent{
		Base: binary.LittleEndian.Uint64(buf[0:8]),
		Size: binary.LittleEndian.Uint64(buf[8:16]),
	}

	return e, Op(binary.LittleEndian.Uint32(buf[16:20])), nil
}

// Open replays the log for one metaslab starting at base. dataSize is the
// size of the data region following the reserved log region (logSize
// bytes). If no record replays, an initial FREE record covering the whole
// data region is written, matching spec section 4.3.1.
func Open(s Store, base, logSize, dataSize uint64, log *zap.SugaredLogger) (*SpaceMap, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	sm := &SpaceMap{
		store:    s,
		base:     base,
		logSize:  logSize,
		dataEnd:  base + logSize + dataSize,
		cursor:   base,
		freeMap:  make(map[uint64]Extent),
		allocMap: make(map[uint64]Extent),
		log:      log,
	}

	for sm.cursor < base+logSize {
		payload, next, ok, err := record.ReadU32(s, sm.cursor, RecordSignature)
		if err != nil {
			return nil, fmt.Errorf("replaying spacemap log at %d: %w", sm.cursor, err)
		}

		if !ok {
			break
		}

		extent, op, decErr := decodePayload(payload)
		if decErr != nil {
			return nil, decErr
		}

		sm.apply(extent, op)
		sm.cursor = next
	}

	if sm.cursor == base {
		initial := Extent{Base: base + logSize, Size: dataSize}
		next, err := sm.appendRecord(initial, OpFree)
		if err != nil {
			return nil, fmt.Errorf("writing initial spacemap record: %w", err)
		}

		sm.cursor = next
		sm.freeMap[initial.Base] = initial
		sm.cachedFreeBytes = initial.Size

		log.Debugw("spacemap initialized", "base", base, "dataSize", dataSize)
	} else {
		// Replayed FREE records do not add to cachedFreeBytes, so the total
		// is rebuilt from the reconstructed free map.
		sm.cachedFreeBytes = 0
		for _, e := range sm.freeMap {
			sm.cachedFreeBytes += e.Size
		}

		log.Debugw("spacemap replayed", "base", base, "cachedFreeBytes", sm.cachedFreeBytes)
	}

	return sm, nil
}

// apply replays one record's effect on the in-memory maps, matching spec
// section 4.3.1. Duplicate records for the same base: last writer wins,
// since apply always overwrites the prior map entry.
func (sm *SpaceMap) apply(e Extent, op Op) {
	switch op {
	case OpFree:
		delete(sm.allocMap, e.Base)
		sm.freeMap[e.Base] = e
	case OpAllocate:
		delete(sm.freeMap, e.Base)
		sm.allocMap[e.Base] = e
		sm.cachedFreeBytes -= e.Size
	case OpDeallocate:
		delete(sm.allocMap, e.Base)
		sm.freeMap[e.Base] = e
		sm.cachedFreeBytes += e.Size
	}
}

func (sm *SpaceMap) appendRecord(e Extent, op Op) (uint64, error) {
	return record.WriteU32(sm.store, sm.cursor, RecordSignature, encodePayload(e, op))
}

// CachedFreeBytes is the running total of bytes in the free map.
func (sm *SpaceMap) CachedFreeBytes() uint64 { return sm.cachedFreeBytes }

// sortedFreeBases returns free-map keys in ascending order for first-fit
// scanning (spec requires ascending base order).
func (sm *SpaceMap) sortedFreeBases() []uint64 {
	bases := make([]uint64, 0, len(sm.freeMap))
	for b := range sm.freeMap {
		bases = append(bases, b)
	}

	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases
}

// Allocate performs first-fit allocation of n bytes: the first free extent
// whose size is at least n is split into an ALLOCATE record of size n and,
// if any remainder exists, a FREE record covering the rest. Fails with
// ErrOutOfSpace when no extent fits.
func (sm *SpaceMap) Allocate(n uint64) (Extent, error) {
	for _, base := range sm.sortedFreeBases() {
		chosen, present := sm.freeMap[base]
		if !present || chosen.Size < n {
			continue
		}

		next, err := sm.appendRecord(Extent{Base: chosen.Base, Size: n}, OpAllocate)
		if err != nil {
			return Extent{}, fmt.Errorf("appending allocate record: %w", err)
		}

		sm.cursor = next
		sm.apply(Extent{Base: chosen.Base, Size: n}, OpAllocate)

		if chosen.Size > n {
			remainder := Extent{Base: chosen.Base + n, Size: chosen.Size - n}

			next, err = sm.appendRecord(remainder, OpFree)
			if err != nil {
				return Extent{}, fmt.Errorf("appending residual free record: %w", err)
			}

			sm.cursor = next
			sm.freeMap[remainder.Base] = remainder
		}

		sm.log.Debugw("spacemap allocate", "base", chosen.Base, "size", n)
		return Extent{Base: chosen.Base, Size: n}, nil
	}

	return Extent{}, fmt.Errorf("no free extent fits %d bytes: %w", n, pderrors.ErrOutOfSpace)
}

// DeAllocate appends a DEALLOCATE record returning the extent to the free
// map. Coalescing adjacent free extents is not required for correctness.
func (sm *SpaceMap) DeAllocate(base, size uint64) error {
	next, err := sm.appendRecord(Extent{Base: base, Size: size}, OpDeallocate)
	if err != nil {
		return fmt.Errorf("appending deallocate record: %w", err)
	}

	sm.cursor = next
	sm.apply(Extent{Base: base, Size: size}, OpDeallocate)

	sm.log.Debugw("spacemap deallocate", "base", base, "size", size)
	return nil
}

// CheckCoverage verifies invariant I5: the union of alloc_map and free_map
// exactly covers the data region with no overlap. Intended for tests.
func (sm *SpaceMap) CheckCoverage() error {
	type span struct{ start, end uint64 }

	var spans []span
	for _, e := range sm.freeMap {
		spans = append(spans, span{e.Base, e.Base + e.Size})
	}

	for _, e := range sm.allocMap {
		spans = append(spans, span{e.Base, e.Base + e.Size})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	dataStart := sm.base + sm.logSize
	cursor := dataStart

	for _, sp := range spans {
		if sp.start != cursor {
			return fmt.Errorf("spacemap coverage gap/overlap at %d, expected %d", sp.start, cursor)
		}

		cursor = sp.end
	}

	if cursor != sm.dataEnd {
		return fmt.Errorf("spacemap coverage ends at %d, want %d", cursor, sm.dataEnd)
	}

	return nil
}
