// Package record implements C2, the shared length-prefixed, magic-tagged
// record codec used by both the spacemap log (internal/spacemap) and the
// registry log (internal/registry). Every externally readable record is
// magic | size | payload, all multibyte integers little-endian, grounded on
// sirgallo-mari/Serialize.go's fixed-offset encode/decode helpers and on
// original_source/storage_allocator.hpp's SpaceMapRecord::Read/Write and
// cpp/registry.hpp's insert()/find() framing.
package record

import (
	"encoding/binary"
	"fmt"

	"github.com/saptarshi/persistds/internal/pderrors"
)

// Store is the minimal backing-store contract the codec needs; satisfied by
// *bstore.Store. Kept narrow so record has no import-time dependency on the
// concrete store implementation.
type Store interface {
	ReadAt(offset uint64, length int) ([]byte, error)
	WriteAt(offset uint64, buf []byte) error
}

const (
	magicSize32 = 4
	magicSize64 = 8
	sizeFieldSz = 8
)

// WriteU32 writes magic(u32) | size(u64) | payload at offset and returns the
// offset immediately following the record.
func WriteU32(s Store, offset uint64, magic uint32, payload []byte) (uint64, error) {
	header := make([]byte, magicSize32+sizeFieldSz)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint64(header[4:12], uint64(len(payload)))

	if err := s.WriteAt(offset, header); err != nil {
		return 0, fmt.Errorf("writing record header at %d: %w", offset, err)
	}

	if err := s.WriteAt(offset+uint64(len(header)), payload); err != nil {
		return 0, fmt.Errorf("writing record payload at %d: %w", offset+uint64(len(header)), err)
	}

	return offset + uint64(len(header)) + uint64(len(payload)), nil
}

// ReadU32 reads one record at offset. ok is false (with a nil payload,
// next equal to offset and a nil error) when the magic at offset does not
// match wantMagic,
// signaling "end of log" to callers doing sequential replay; it is not an
// error by itself.
func ReadU32(s Store, offset uint64, wantMagic uint32) (payload []byte, next uint64, ok bool, err error) {
	magicBuf, err := s.ReadAt(offset, magicSize32)
	if err != nil {
		return nil, 0, false, err
	}

	magic := binary.LittleEndian.Uint32(magicBuf)
	if magic != wantMagic {
		return nil, offset, false, nil
	}

	sizeBuf, err := s.ReadAt(offset+magicSize32, sizeFieldSz)
	if err != nil {
		return nil, 0, false, err
	}

	size := binary.LittleEndian.Uint64(sizeBuf)

	payload, err = s.ReadAt(offset+magicSize32+sizeFieldSz, int(size))
	if err != nil {
		return nil, 0, false, err
	}

	return payload, offset + magicSize32 + sizeFieldSz + size, true, nil
}

// WriteU64 is WriteU32's counterpart for a 64-bit magic tag, used by the
// registry log.
func WriteU64(s Store, offset uint64, magic uint64, payload []byte) (uint64, error) {
	header := make([]byte, magicSize64+sizeFieldSz)
	binary.LittleEndian.PutUint64(header[0:8], magic)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))

	if err := s.WriteAt(offset, header); err != nil {
		return 0, fmt.Errorf("writing record header at %d: %w", offset, err)
	}

	if err := s.WriteAt(offset+uint64(len(header)), payload); err != nil {
		return 0, fmt.Errorf("writing record payload at %d: %w", offset+uint64(len(header)), err)
	}

	return offset + uint64(len(header)) + uint64(len(payload)), nil
}

// ReadU64 is ReadU32's counterpart for a 64-bit magic tag.
func ReadU64(s Store, offset uint64, wantMagic uint64) (payload []byte, next uint64, ok bool, err error) {
	magicBuf, err := s.ReadAt(offset, magicSize64)
	if err != nil {
		return nil, 0, false, err
	}

	magic := binary.LittleEndian.Uint64(magicBuf)
	if magic != wantMagic {
		return nil, offset, false, nil
	}

	sizeBuf, err := s.ReadAt(offset+magicSize64, sizeFieldSz)
	if err != nil {
		return nil, 0, false, err
	}

	size := binary.LittleEndian.Uint64(sizeBuf)

	payload, err = s.ReadAt(offset+magicSize64+sizeFieldSz, int(size))
	if err != nil {
		return nil, 0, false, err
	}

	return payload, offset + magicSize64 + sizeFieldSz + size, true, nil
}

// RewritePayloadU64 rewrites only the size+payload of an already-written
// record whose magic lives at recordOffset, without touching the magic
// word. maxPayload is the payload length reserved at insert time; an
// oversize rewrite fails as ErrCorruption per spec section 9's resolution
// of the bump-allocator truncation hazard.
func RewritePayloadU64(s Store, recordOffset uint64, payload []byte, maxPayload int) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("payload %d exceeds reserved slot %d at offset %d: %w", len(payload), maxPayload, recordOffset, pderrors.ErrCorruption)
	}

	pos := recordOffset + magicSize64
	sizeBuf := make([]byte, sizeFieldSz)
	binary.LittleEndian.PutUint64(sizeBuf, uint64(len(payload)))

	if err := s.WriteAt(pos, sizeBuf); err != nil {
		return fmt.Errorf("rewriting record size at %d: %w", pos, err)
	}

	if err := s.WriteAt(pos+sizeFieldSz, payload); err != nil {
		return fmt.Errorf("rewriting record payload at %d: %w", pos+sizeFieldSz, err)
	}

	return nil
}
