package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/buddykit/pkg/types"
)

func newTestManager(t *testing.T, arenaSize uint32) *Manager {
	t.Helper()
	m, err := New(&Options{ArenaSize: arenaSize, CheckInvariants: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m
}

func Test_Manager_New_Defaults(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	defer m.Close()

	s := m.Stats()
	assert.Equal(t, uint32(types.DefaultArenaSize), s.ArenaSize)
	assert.Equal(t, uint64(types.DefaultArenaSize), s.FreeBytes)
	assert.Equal(t, 1, s.FreeBlocks)
	assert.Equal(t, 0, m.Len())
}

func Test_Manager_New_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(&Options{ArenaSize: 1000})
	require.ErrorIs(t, err, types.ErrInvalidSize)
}

// Insert "Hello" into a 5-byte request, then grow it to "Goodbye" in place.
func Test_Manager_InsertUpdateFind_InPlace(t *testing.T) {
	m := newTestManager(t, 65536)

	id, err := m.Insert(5, []byte("Hello"))
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)

	blk, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello"), blk.Data)
	assert.Equal(t, uint32(5), blk.Length)
	assert.Equal(t, uint32(8), blk.Size())

	// 7 bytes fit the padded 8-byte block, so the region stays put.
	require.NoError(t, m.Update(id, []byte("Goodbye")))
	after, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("Goodbye"), after.Data)
	assert.Equal(t, blk.Region, after.Region)

	raw, err := m.ArenaSlice(after.Region)
	require.NoError(t, err)
	assert.Equal(t, []byte("Goodbye\x00"), raw)
}

// A deleted id is gone for good.
func Test_Manager_DeleteThenFind(t *testing.T) {
	m := newTestManager(t, 65536)

	id, err := m.Insert(10, []byte("HelloWorld"))
	require.NoError(t, err)
	require.NoError(t, m.Delete(id))

	_, err = m.Find(id)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.ErrorIs(t, m.Delete(id), types.ErrNotFound)
	require.ErrorIs(t, m.Update(id, []byte("x")), types.ErrNotFound)
}

// Zero-size inserts are rejected.
func Test_Manager_InsertZero(t *testing.T) {
	m := newTestManager(t, 65536)

	_, err := m.Insert(0, []byte{})
	require.ErrorIs(t, err, types.ErrInvalidSize)

	// The failed insert does not consume an id.
	id, err := m.Insert(1, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)
}

func Test_Manager_Insert_PayloadLargerThanBlock(t *testing.T) {
	m := newTestManager(t, 65536)
	_, err := m.Insert(4, []byte("HelloWorld"))
	require.ErrorIs(t, err, types.ErrInvalidSize)
	assert.Equal(t, 0, m.Len())
}

func Test_Manager_Insert_PayloadFillsRoundedBlock(t *testing.T) {
	m := newTestManager(t, 65536)
	// 5 rounds to 8, so an 8-byte payload is accepted.
	id, err := m.Insert(5, []byte("12345678"))
	require.NoError(t, err)
	blk, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678"), blk.Data)
}

func Test_Manager_Insert_OutOfMemory(t *testing.T) {
	m := newTestManager(t, 64)

	_, err := m.Insert(32, nil)
	require.NoError(t, err)
	_, err = m.Insert(32, nil)
	require.NoError(t, err)
	_, err = m.Insert(1, []byte("x"))
	require.ErrorIs(t, err, types.ErrOutOfMemory)
	_, err = m.Insert(128, nil)
	require.ErrorIs(t, err, types.ErrOutOfMemory)
}

func Test_Manager_IDsAreMonotonicAndNeverReused(t *testing.T) {
	m := newTestManager(t, 1024)

	a, err := m.Insert(8, []byte("a"))
	require.NoError(t, err)
	b, err := m.Insert(8, []byte("b"))
	require.NoError(t, err)
	require.NoError(t, m.Delete(a))

	c, err := m.Insert(8, []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []ID{0, 1, 2}, []ID{a, b, c})
}

func Test_Manager_Update_InPlaceKeepsRegion(t *testing.T) {
	m := newTestManager(t, 1024)

	id, err := m.Insert(16, []byte("0123456789abcdef"))
	require.NoError(t, err)
	before, err := m.Find(id)
	require.NoError(t, err)

	for _, p := range []string{"short", "0123456789ABCDEF", "x"} {
		require.NoError(t, m.Update(id, []byte(p)))
		blk, err := m.Find(id)
		require.NoError(t, err)
		assert.Equal(t, before.Region, blk.Region, "update to %q moved the block", p)
		assert.Equal(t, []byte(p), blk.Data)

		// The tail of the block is zero again after a shrink.
		raw, err := m.ArenaSlice(blk.Region)
		require.NoError(t, err)
		for i := len(p); i < len(raw); i++ {
			require.Zero(t, raw[i], "byte %d not cleared after update to %q", i, p)
		}
	}
}

func Test_Manager_Update_RelocatesAndKeepsID(t *testing.T) {
	m := newTestManager(t, 1024)

	id, err := m.Insert(10, []byte("HelloWorld"))
	require.NoError(t, err)
	neighbour, err := m.Insert(16, []byte("neighbour"))
	require.NoError(t, err)
	before, err := m.Find(id)
	require.NoError(t, err)

	payload := []byte("ModifiedDataThatNeedsMoreThanSixteenBytes")
	require.NoError(t, m.Update(id, payload))

	after, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, id, after.ID)
	assert.NotEqual(t, before.Region, after.Region)
	assert.Equal(t, uint32(64), after.Size())
	assert.Equal(t, payload, after.Data)

	raw, err := m.ArenaSlice(after.Region)
	require.NoError(t, err)
	assert.Equal(t, payload, raw[:len(payload)])

	// The neighbour is untouched and the old block is free again.
	nb, err := m.Find(neighbour)
	require.NoError(t, err)
	assert.Equal(t, []byte("neighbour"), nb.Data)
	assert.Equal(t, uint64(1024-16-64), m.Stats().FreeBytes)
}

func Test_Manager_Update_OutOfMemoryKeepsOldData(t *testing.T) {
	m := newTestManager(t, 64)

	id, err := m.Insert(32, []byte("first"))
	require.NoError(t, err)
	_, err = m.Insert(16, []byte("second"))
	require.NoError(t, err)

	err = m.Update(id, make([]byte, 33))
	require.ErrorIs(t, err, types.ErrOutOfMemory)

	blk, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), blk.Data)
	assert.Equal(t, types.Region{Start: 0, End: 32}, blk.Region)

	err = m.Update(id, make([]byte, 100))
	require.ErrorIs(t, err, types.ErrOutOfMemory)
}

func Test_Manager_Update_Empty(t *testing.T) {
	m := newTestManager(t, 1024)
	id, err := m.Insert(4, []byte("abcd"))
	require.NoError(t, err)

	require.ErrorIs(t, m.Update(id, nil), types.ErrInvalidSize)
	blk, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), blk.Data)
}

func Test_Manager_Find_ReturnsCopy(t *testing.T) {
	m := newTestManager(t, 1024)
	id, err := m.Insert(4, []byte("abcd"))
	require.NoError(t, err)

	blk, err := m.Find(id)
	require.NoError(t, err)
	blk.Data[0] = 'z'

	again, err := m.Find(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), again.Data)
}

func Test_Manager_Find_Unknown(t *testing.T) {
	m := newTestManager(t, 1024)
	_, err := m.Find(42)
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.ErrKindNotFound, types.KindOf(err))
}

func Test_Manager_Dump_OrderedByAddress(t *testing.T) {
	m := newTestManager(t, 256)

	a, err := m.Insert(32, []byte("alpha"))
	require.NoError(t, err)
	b, err := m.Insert(64, []byte("beta"))
	require.NoError(t, err)
	require.NoError(t, m.Delete(a))

	dump := m.Dump()
	require.Len(t, dump, 3)

	assert.Equal(t, DumpEntry{Kind: types.BlockFree, Region: types.Region{Start: 0, End: 64}}, dump[0])
	assert.Equal(t, types.BlockAllocated, dump[1].Kind)
	assert.Equal(t, b, dump[1].ID)
	assert.Equal(t, types.Region{Start: 64, End: 128}, dump[1].Region)
	assert.Equal(t, []byte("beta"), dump[1].Data)
	assert.Equal(t, uint32(4), dump[1].Length)
	assert.Equal(t, types.Region{Start: 128, End: 256}, dump[2].Region)
	assert.Equal(t, types.BlockFree, dump[2].Kind)

	var total uint32
	for _, d := range dump {
		total += d.Size()
	}
	assert.Equal(t, uint32(256), total)
}

func Test_Manager_ArenaSlice_OutOfRange(t *testing.T) {
	m := newTestManager(t, 64)
	_, err := m.ArenaSlice(types.Region{Start: 32, End: 128})
	require.ErrorIs(t, err, types.ErrInvalidRange)
}

func Test_Manager_Stats(t *testing.T) {
	m := newTestManager(t, 1024)
	_, err := m.Insert(5, []byte("Hello"))
	require.NoError(t, err)
	_, err = m.Insert(100, []byte("World"))
	require.NoError(t, err)

	s := m.Stats()
	assert.Equal(t, uint64(8+128), s.AllocatedBytes)
	assert.Equal(t, uint64(10), s.PayloadBytes)
	assert.Equal(t, uint64(1024-8-128), s.FreeBytes)
	assert.Equal(t, 2, s.AllocatedBlocks)
	assert.Equal(t, ID(2), s.NextID)
	assert.Equal(t, uint32(512), s.LargestFree)
	assert.Equal(t, 2, s.Alloc.AllocCalls)
}

func Test_Manager_Closed(t *testing.T) {
	m, err := New(&Options{ArenaSize: 64})
	require.NoError(t, err)
	id, err := m.Insert(4, []byte("abcd"))
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.Insert(4, nil)
	require.ErrorIs(t, err, ErrClosed)
	_, err = m.Find(id)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, m.Delete(id), ErrClosed)
	require.ErrorIs(t, m.Update(id, []byte("x")), ErrClosed)
	require.ErrorIs(t, m.Validate(), ErrClosed)
	assert.Nil(t, m.Dump())
}
