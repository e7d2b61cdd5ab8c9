// Package persistds is a single-node persistent data-structure engine
// backed by a memory-mapped file: a metaslab/spacemap storage allocator, a
// persistent registry of named data-structure instances with snapshot
// support, and a persistent linked list bound to a registry entry. The
// B+-tree index (package bptree) is a separate, pure in-memory collaborator
// with its own public surface.
//
// The layering follows iamNilotpal-ignite's internal/<subsystem> engine
// pattern: a root Config drives construction, a *zap.SugaredLogger is
// threaded through every subsystem, and Engine is the sole public entry
// point composing them.
package persistds

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/saptarshi/persistds/internal/alloc"
	"github.com/saptarshi/persistds/internal/bstore"
	"github.com/saptarshi/persistds/internal/plist"
	"github.com/saptarshi/persistds/internal/registry"
)

// DefaultRegistryRegionSize is the size carved from the allocator for the
// registry region (spec section 3.4's REGISTRY_REGION_SIZE).
const DefaultRegistryRegionSize uint64 = 1 << 20

// Config holds all parameters needed to open an Engine.
type Config struct {
	// Path is the backing file location.
	Path string

	// FileSize is the total backing file size; must span at least one
	// metaslab (alloc.MetaslabSize, 1 GiB).
	FileSize uint64

	// RegistryRegionSize overrides DefaultRegistryRegionSize when non-zero.
	RegistryRegionSize uint64

	// Logger receives structured diagnostics from every subsystem. A no-op
	// logger is used when nil; configuring sinks/levels is the caller's
	// concern (out of scope per spec section 1).
	Logger *zap.SugaredLogger
}

// Engine is the top-level handle over the backing file and its subsystems.
type Engine struct {
	store *bstore.Store
	alloc *alloc.Allocator
	reg   *registry.Registry
	log   *zap.SugaredLogger
}

// Open maps the file at cfg.Path, replaying the allocator's spacemaps and
// the registry log, per spec section 6.1.
func Open(cfg Config) (*Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	regionSize := cfg.RegistryRegionSize
	if regionSize == 0 {
		regionSize = DefaultRegistryRegionSize
	}

	store, err := bstore.Open(cfg.Path, int64(cfg.FileSize), log)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}

	a, err := alloc.Open(store, cfg.FileSize, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening engine: %w", err)
	}

	reg, err := registry.Open(store, a, regionSize, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening engine: %w", err)
	}

	log.Infow("engine opened", "path", cfg.Path, "fileSize", cfg.FileSize)
	return &Engine{store: store, alloc: a, reg: reg, log: log}, nil
}

// BindList creates or reopens a LIST-typed registry entry for id.
func (e *Engine) BindList(id string) (*ListHandle, error) {
	l, err := plist.Bind(e.store, e.alloc, e.reg, id, e.log)
	if err != nil {
		return nil, fmt.Errorf("binding list %q: %w", id, err)
	}

	return &ListHandle{list: l}, nil
}

// Snapshot records a registry-level snapshot: id becomes a child record
// capturing parentID's current PhysNext/NrElements.
func (e *Engine) Snapshot(id, parentID string) error {
	childKey := plist.HashID(id)
	parentKey := plist.HashID(parentID)

	if _, err := e.reg.Snapshot(childKey, parentKey); err != nil {
		return fmt.Errorf("snapshotting %q from %q: %w", id, parentID, err)
	}

	return nil
}

// Close flushes and unmaps the backing store.
func (e *Engine) Close() error {
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("closing engine: %w", err)
	}

	return nil
}
