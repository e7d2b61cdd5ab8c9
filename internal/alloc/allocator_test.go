package alloc_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saptarshi/persistds/internal/alloc"
	"github.com/saptarshi/persistds/internal/bstore"
	"github.com/saptarshi/persistds/internal/pderrors"
)

func openAllocator(t *testing.T, metaslabs int) *alloc.Allocator {
	t.Helper()

	fileSize := uint64(metaslabs) * alloc.MetaslabSize
	s, err := bstore.Open(filepath.Join(t.TempDir(), "alloc.db"), int64(fileSize), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	a, err := alloc.Open(s, fileSize, nil)
	require.NoError(t, err)
	return a
}

func TestOpenRejectsFileSmallerThanOneMetaslab(t *testing.T) {
	s, err := bstore.Open(filepath.Join(t.TempDir(), "alloc.db"), int64(alloc.MetaslabSize-1), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = alloc.Open(s, alloc.MetaslabSize-1, nil)
	require.ErrorIs(t, err, pderrors.ErrInvalidArgument)
}

func TestOpenPartitionsMetaslabs(t *testing.T) {
	a := openAllocator(t, 2)
	require.Len(t, a.Metaslabs(), 2)
}

func TestAllocateAndDeallocateRoundTrip(t *testing.T) {
	a := openAllocator(t, 1)

	ext, err := a.Allocate(4096)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), ext.Size)

	require.NoError(t, a.DeAllocate(ext.Base, ext.Size))
}

func TestAllocateSpansMultipleMetaslabs(t *testing.T) {
	a := openAllocator(t, 2)

	for i := 0; i < 4; i++ {
		_, err := a.Allocate(alloc.MetaslabSize / 4)
		require.NoError(t, err)
	}
}
