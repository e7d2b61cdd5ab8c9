// Package alloc implements C4: the storage allocator that partitions the
// backing file into fixed-size metaslabs and dispatches allocate/deallocate
// calls to the metaslab owning a given address range. Grounded on
// original_source/storage_allocator.hpp's StorageAllocator (metaslab
// partitioning, linear-scan Allocate/DeAllocate dispatch).
package alloc

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/saptarshi/persistds/internal/pderrors"
	"github.com/saptarshi/persistds/internal/record"
	"github.com/saptarshi/persistds/internal/spacemap"
)

const (
	// MetaslabSize is the fixed size of one metaslab (1 GiB), spec section 3.2.
	MetaslabSize uint64 = 1 << 30

	// SpacemapLogSize is the portion of each metaslab reserved for its
	// spacemap log (1 MiB), spec section 3.2.
	SpacemapLogSize uint64 = 1 << 20
)

// Metaslab is a contiguous region of size MetaslabSize whose first
// SpacemapLogSize bytes are its spacemap log and whose remaining bytes are
// its data region.
type Metaslab struct {
	Base uint64
	Size uint64

	sm *spacemap.SpaceMap
}

// CachedFreeBytes reports the metaslab's free-map total.
func (m *Metaslab) CachedFreeBytes() uint64 { return m.sm.CachedFreeBytes() }

// Allocator holds an ordered list of metaslabs spanning the backing file.
type Allocator struct {
	store     record.Store
	metaslabs []*Metaslab
	log       *zap.SugaredLogger
}

// Open partitions [0, fileSize) into floor(fileSize/MetaslabSize) metaslabs,
// replaying each one's spacemap log. fileSize must span at least one
// metaslab.
func Open(s record.Store, fileSize uint64, log *zap.SugaredLogger) (*Allocator, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if fileSize < MetaslabSize {
		return nil, fmt.Errorf("file size %d smaller than one metaslab (%d): %w", fileSize, MetaslabSize, pderrors.ErrInvalidArgument)
	}

	nr := fileSize / MetaslabSize

	a := &Allocator{store: s, log: log}
	for i := uint64(0); i < nr; i++ {
		base := i * MetaslabSize
		dataSize := MetaslabSize - SpacemapLogSize

		sm, err := spacemap.Open(s, base, SpacemapLogSize, dataSize, log)
		if err != nil {
			return nil, fmt.Errorf("opening metaslab %d: %w", i, err)
		}

		a.metaslabs = append(a.metaslabs, &Metaslab{Base: base, Size: MetaslabSize, sm: sm})
	}

	log.Debugw("allocator opened", "metaslabs", len(a.metaslabs))
	return a, nil
}

// Allocate scans metaslabs in order and dispatches to the first one whose
// cached free bytes exceed n.
func (a *Allocator) Allocate(n uint64) (spacemap.Extent, error) {
	for _, m := range a.metaslabs {
		if m.CachedFreeBytes() <= n {
			continue
		}

		extent, err := m.sm.Allocate(n)
		if err != nil {
			continue
		}

		return extent, nil
	}

	return spacemap.Extent{}, fmt.Errorf("no metaslab can satisfy %d bytes: %w", n, pderrors.ErrOutOfSpace)
}

// DeAllocate dispatches to the metaslab whose extent strictly contains
// [offset, offset+size); a silent no-op if none match.
func (a *Allocator) DeAllocate(offset, size uint64) error {
	for _, m := range a.metaslabs {
		if m.Base < offset && m.Base+m.Size > offset+size {
			return m.sm.DeAllocate(offset, size)
		}
	}

	a.log.Debugw("deallocate dispatched to no metaslab", "offset", offset, "size", size)
	return nil
}

// Metaslabs exposes the partition for diagnostics/tests.
func (a *Allocator) Metaslabs() []*Metaslab { return a.metaslabs }
