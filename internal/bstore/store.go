// Package bstore implements C1, the backing store: random-access byte I/O
// over a fixed-length file mapped into the process. It is grounded on
// sirgallo-mari's IOUtils.go (mmap/munmap/flush lifecycle, atomic.Value
// swap of the mapped slice) but drops Mari's resizing/versioning machinery
// since this engine's file size is fixed at Open time.
package bstore

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/saptarshi/persistds/internal/pderrors"
)

// Store wraps a single fixed-size file mapped into memory. Reads are
// serviced directly from the mapping; writes go through the mapping too, so
// they are visible to subsequent reads without a round trip through the
// kernel page cache.
type Store struct {
	file *os.File
	data atomic.Value // MMap
	size int64
	log  *zap.SugaredLogger
}

// Open maps the file at path into memory, creating and truncating it to
// size if it does not already exist (or is shorter than size).
func Open(path string, size int64, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	f, openErr := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if openErr != nil {
		return nil, fmt.Errorf("opening backing file %q: %w", path, openErr)
	}

	stat, statErr := f.Stat()
	if statErr != nil {
		f.Close()
		return nil, fmt.Errorf("stat backing file %q: %w", path, statErr)
	}

	if stat.Size() < size {
		if truncErr := f.Truncate(size); truncErr != nil {
			f.Close()
			return nil, fmt.Errorf("truncating backing file %q to %d: %w", path, size, truncErr)
		}
	} else {
		size = stat.Size()
	}

	m, mmapErr := mmap(f, int(size))
	if mmapErr != nil {
		f.Close()
		return nil, fmt.Errorf("mapping backing file %q: %w", path, mmapErr)
	}

	// Allocation and registry lookups scan scattered extents rather than a
	// single sequential stream, so hint the kernel accordingly.
	advise(m, unix.MADV_RANDOM)

	s := &Store{file: f, size: size, log: log}
	s.data.Store(m)

	log.Debugw("backing store opened", "path", path, "size", size)
	return s, nil
}

// Size reports the fixed length of the mapped file.
func (s *Store) Size() int64 { return s.size }

// mmap returns the current mapping.
func (s *Store) mmap() MMap { return s.data.Load().(MMap) }

// ReadAt copies length bytes starting at offset into a freshly allocated
// slice. Out-of-range access fails with ErrIO; there are no implicit
// retries.
func (s *Store) ReadAt(offset uint64, length int) ([]byte, error) {
	m := s.mmap()
	if offset+uint64(length) > uint64(len(m)) {
		return nil, fmt.Errorf("read [%d,%d) out of range (size %d): %w", offset, offset+uint64(length), len(m), pderrors.ErrIO)
	}

	buf := make([]byte, length)
	copy(buf, m[offset:offset+uint64(length)])
	return buf, nil
}

// WriteAt writes buf at offset. It is visible on subsequent ReadAt calls
// immediately; durability to disk is driven by Flush.
func (s *Store) WriteAt(offset uint64, buf []byte) error {
	m := s.mmap()
	if offset+uint64(len(buf)) > uint64(len(m)) {
		return fmt.Errorf("write [%d,%d) out of range (size %d): %w", offset, offset+uint64(len(buf)), len(m), pderrors.ErrIO)
	}

	copy(m[offset:offset+uint64(len(buf))], buf)
	return nil
}

// Flush drives durability of the whole mapping; called at teardown.
func (s *Store) Flush() error {
	if err := flush(s.mmap()); err != nil {
		return fmt.Errorf("flushing backing store: %w", err)
	}

	return nil
}

// Close flushes, unmaps, and closes the underlying file.
func (s *Store) Close() error {
	if flushErr := s.Flush(); flushErr != nil {
		return flushErr
	}

	if unmapErr := munmap(s.mmap()); unmapErr != nil {
		return fmt.Errorf("unmapping backing store: %w", unmapErr)
	}

	s.data.Store(MMap{})

	if closeErr := s.file.Close(); closeErr != nil {
		return fmt.Errorf("closing backing file: %w", closeErr)
	}

	s.log.Debugw("backing store closed")
	return nil
}
