package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/pkg/types"
)

// Test_Coalesce_AdjacentNonBuddiesStaySplit frees [16,32) and [32,48): adjacent,
// equal-sized, but children of different parents. They must not merge.
func Test_Coalesce_AdjacentNonBuddiesStaySplit(t *testing.T) {
	b := newTestBuddy(t, 64)

	var starts []uint32
	for range 4 {
		s, err := b.Allocate(16)
		require.NoError(t, err)
		starts = append(starts, s)
	}
	require.Equal(t, []uint32{0, 16, 32, 48}, starts)
	require.Empty(t, b.FreeBlocks())

	require.NoError(t, b.Deallocate(16, 16))
	require.NoError(t, b.Deallocate(32, 16))

	assert.Equal(t, []types.Region{
		{Start: 16, End: 32},
		{Start: 32, End: 48},
	}, b.FreeBlocks())
	require.NoError(t, b.Validate())

	// A 32-byte request cannot be served from two non-buddy 16-byte blocks.
	_, err := b.Allocate(32)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func Test_Coalesce_BuddiesMergeUpward(t *testing.T) {
	b := newTestBuddy(t, 64)
	for range 4 {
		_, err := b.Allocate(16)
		require.NoError(t, err)
	}

	require.NoError(t, b.Deallocate(0, 16))
	require.NoError(t, b.Deallocate(16, 16))
	assert.Equal(t, []types.Region{{Start: 0, End: 32}}, b.FreeBlocks())

	require.NoError(t, b.Deallocate(48, 16))
	assert.Equal(t, []types.Region{{Start: 0, End: 32}, {Start: 48, End: 64}}, b.FreeBlocks())

	// Freeing 32 merges with 48, then the pair merges with [0,32).
	require.NoError(t, b.Deallocate(32, 16))
	requireSingleFreeBlock(t, b)
}

func Test_Coalesce_MixedOrders(t *testing.T) {
	b := newTestBuddy(t, 1024)

	big, err := b.Allocate(256) // 0
	require.NoError(t, err)
	small, err := b.Allocate(8) // 256
	require.NoError(t, err)
	mid, err := b.Allocate(128) // 384
	require.NoError(t, err)
	require.Equal(t, uint32(0), big)
	require.Equal(t, uint32(256), small)
	require.Equal(t, uint32(384), mid)

	require.NoError(t, b.Deallocate(small, 8))
	require.NoError(t, b.Validate())
	// [256,384) is whole again but its buddy [384,512) is still allocated.
	assert.Contains(t, b.FreeBlocks(), types.Region{Start: 256, End: 384})

	require.NoError(t, b.Deallocate(mid, 128))
	require.NoError(t, b.Deallocate(big, 256))
	requireSingleFreeBlock(t, b)
}
