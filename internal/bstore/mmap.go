package bstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// MMap is the byte slice representation of the memory mapped file.
type MMap []byte

// mmap maps the given file's first length bytes into the process address
// space read-write and returns the backing slice.
func mmap(f *os.File, length int) (MMap, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return MMap(data), nil
}

// munmap unmaps a previously mapped region.
func munmap(m MMap) error {
	if len(m) == 0 {
		return nil
	}

	return unix.Munmap(m)
}

// flush drives msync over the mapped region so writes are durable without
// tearing down the mapping.
func flush(m MMap) error {
	if len(m) == 0 {
		return nil
	}

	return unix.Msync(m, unix.MS_SYNC)
}

// advise hints the kernel about the access pattern; best-effort only, a
// failure here never fails the caller's operation.
func advise(m MMap, advice int) {
	if len(m) == 0 {
		return
	}

	_ = unix.Madvise(m, advice)
}
