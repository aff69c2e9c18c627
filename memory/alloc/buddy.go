package alloc

import (
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/joshuapare/buddykit/pkg/types"
)

// Runtime debug flag for split/merge tracing - controlled by BUDDY_LOG_ALLOC env var.
var logAlloc = os.Getenv("BUDDY_LOG_ALLOC") != ""

// Buddy is a binary buddy allocator over the address range [0, size).
//   - free[o] holds the start offsets of free blocks of size 1<<o
//   - the smallest non-empty order >= the request gives the best fit
//   - Minimum() on that bitmap gives the lowest-address tie-break
type Buddy struct {
	size      uint32
	maxOrder  uint8
	free      []*roaring.Bitmap
	freeBytes uint64

	stats Stats
	log   *slog.Logger
}

// New creates a buddy allocator for an arena of arenaSize bytes.
// The whole arena starts as one free block (0, arenaSize).
//
// Parameters:
//   - arenaSize: a power of two (uint32 caps it at types.MaxArenaSize)
//   - logger: destination for split/merge tracing (nil discards)
func New(arenaSize uint32, logger *slog.Logger) (*Buddy, error) {
	if !IsPowerOfTwo(arenaSize) {
		return nil, types.Errorf(types.ErrKindInvalidSize,
			"alloc: arena size %d is not a power of two", arenaSize)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxOrder := Order(arenaSize)
	b := &Buddy{
		size:     arenaSize,
		maxOrder: maxOrder,
		free:     make([]*roaring.Bitmap, maxOrder+1),
		log:      logger,
	}
	for o := range b.free {
		b.free[o] = roaring.New()
	}
	b.free[maxOrder].Add(0)
	b.freeBytes = uint64(arenaSize)
	return b, nil
}

// Allocate reserves a block of NextPowerOfTwo(size) bytes and returns its start.
func (b *Buddy) Allocate(size uint32) (uint32, error) {
	b.stats.AllocCalls++

	if size == 0 {
		b.stats.Failures++
		return 0, types.Errorf(types.ErrKindInvalidSize, "alloc: invalid size 0")
	}
	if size > b.size {
		b.stats.Failures++
		return 0, types.Errorf(types.ErrKindOutOfMemory,
			"alloc: request of %d bytes exceeds arena size %d", size, b.size)
	}

	want := Order(size)
	aligned := blockSize(want)

	// Smallest order with a free block; no scan limit needed, there are at most 32.
	order := want
	for order <= b.maxOrder && b.free[order].IsEmpty() {
		order++
	}
	if order > b.maxOrder {
		b.stats.Failures++
		return 0, types.Errorf(types.ErrKindOutOfMemory,
			"alloc: no free block for %d bytes (largest free %d)", aligned, b.LargestFree())
	}

	start := b.free[order].Minimum()
	if start&(blockSize(order)-1) != 0 || uint64(start)+uint64(blockSize(order)) > uint64(b.size) {
		return 0, types.Errorf(types.ErrKindInvariant,
			"alloc: free block 0x%X of order %d is misaligned", start, order)
	}
	b.free[order].Remove(start)

	// Bisect, keeping the upper half free at each step.
	for order > want {
		order--
		upper := start + blockSize(order)
		b.free[order].Add(upper)
		b.stats.Splits++
		if logAlloc {
			b.log.Debug("alloc: split", "start", start, "upper", upper, "order", order)
		}
	}

	b.freeBytes -= uint64(aligned)
	b.stats.BytesAllocated += int64(aligned)
	return start, nil
}

// Deallocate returns [start, start+NextPowerOfTwo(size)) to the free set and
// merges it with its buddy for as long as the buddy is free.
// The range is validated before the free set is touched.
func (b *Buddy) Deallocate(start, size uint32) error {
	b.stats.FreeCalls++

	if err := b.checkRange(start, size); err != nil {
		b.stats.Failures++
		return err
	}

	order := Order(size)
	aligned := blockSize(order)
	addr := start
	for order < b.maxOrder {
		buddy := addr ^ blockSize(order)
		if !b.free[order].Contains(buddy) {
			break
		}
		b.free[order].Remove(buddy)
		if logAlloc {
			b.log.Debug("alloc: merge", "start", addr, "buddy", buddy, "order", order)
		}
		addr &^= blockSize(order)
		order++
		b.stats.Merges++
	}
	b.free[order].Add(addr)

	b.freeBytes += uint64(aligned)
	b.stats.BytesFreed += int64(aligned)
	return nil
}

// checkRange validates a deallocation request without mutating state.
func (b *Buddy) checkRange(start, size uint32) error {
	if size == 0 {
		return types.Errorf(types.ErrKindInvalidRange, "alloc: invalid size 0 for deallocation")
	}
	if size > b.size {
		return types.Errorf(types.ErrKindInvalidRange,
			"alloc: size %d exceeds arena size %d", size, b.size)
	}
	aligned := NextPowerOfTwo(size)
	end := uint64(start) + uint64(aligned)
	if end > uint64(b.size) {
		return types.Errorf(types.ErrKindInvalidRange,
			"alloc: range 0x%X-0x%X outside arena of %d bytes", start, end, b.size)
	}
	if start&(aligned-1) != 0 {
		return types.Errorf(types.ErrKindInvalidRange,
			"alloc: start 0x%X not aligned to block size %d", start, aligned)
	}
	if b.overlapsFree(start, uint32(end-1)) {
		return types.Errorf(types.ErrKindInvalidRange,
			"alloc: range 0x%X-0x%X overlaps a free block", start, end)
	}
	return nil
}

// overlapsFree reports whether any free block intersects [first, last].
// Blocks at least as large as the range can only contain it at their aligned
// start; smaller ones are counted with Rank.
func (b *Buddy) overlapsFree(first, last uint32) bool {
	span := uint64(last) - uint64(first) + 1
	for o := uint8(0); o <= b.maxOrder; o++ {
		bm := b.free[o]
		if bm.IsEmpty() {
			continue
		}
		if uint64(blockSize(o)) >= span {
			if bm.Contains(first &^ (blockSize(o) - 1)) {
				return true
			}
			continue
		}
		var before uint64
		if first > 0 {
			before = bm.Rank(first - 1)
		}
		if bm.Rank(last) > before {
			return true
		}
	}
	return false
}

// FreeBlocks returns every free block ordered by start address.
func (b *Buddy) FreeBlocks() []types.Region {
	var out []types.Region
	for o := uint8(0); o <= b.maxOrder; o++ {
		sz := blockSize(o)
		it := b.free[o].Iterator()
		for it.HasNext() {
			s := it.Next()
			out = append(out, types.Region{Start: s, End: s + sz})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// FreeBytes returns the total size of all free blocks.
func (b *Buddy) FreeBytes() uint64 {
	return b.freeBytes
}

// LargestFree returns the size of the largest free block, or 0 when the arena is full.
func (b *Buddy) LargestFree() uint32 {
	for o := int(b.maxOrder); o >= 0; o-- {
		if !b.free[o].IsEmpty() {
			return blockSize(uint8(o))
		}
	}
	return 0
}

// FreeCount returns the number of free blocks.
func (b *Buddy) FreeCount() int {
	n := 0
	for _, bm := range b.free {
		n += int(bm.GetCardinality())
	}
	return n
}

// Size returns the arena size.
func (b *Buddy) Size() uint32 {
	return b.size
}

// Stats returns a snapshot of the allocator counters.
func (b *Buddy) Stats() Stats {
	return b.stats
}

// Reset returns every block to the free set and clears the counters.
func (b *Buddy) Reset() {
	for _, bm := range b.free {
		bm.Clear()
	}
	b.free[b.maxOrder].Add(0)
	b.freeBytes = uint64(b.size)
	b.stats = Stats{}
}
