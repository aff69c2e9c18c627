package alloc

import "github.com/joshuapare/buddykit/pkg/types"

// Validate checks the free-set invariants:
//   - every free block is aligned to its size and lies inside the arena
//   - free blocks do not overlap
//   - no two free blocks are buddies of each other
//   - the free byte counter matches the blocks
//
// A non-nil result is always ErrKindInvariant and indicates an allocator bug.
func (b *Buddy) Validate() error {
	var total uint64
	for o := uint8(0); o <= b.maxOrder; o++ {
		sz := blockSize(o)
		it := b.free[o].Iterator()
		for it.HasNext() {
			s := it.Next()
			if s&(sz-1) != 0 {
				return types.Errorf(types.ErrKindInvariant,
					"alloc: free block 0x%X of order %d is misaligned", s, o)
			}
			if uint64(s)+uint64(sz) > uint64(b.size) {
				return types.Errorf(types.ErrKindInvariant,
					"alloc: free block 0x%X of order %d exceeds arena", s, o)
			}
			if o < b.maxOrder && b.free[o].Contains(s^sz) {
				return types.Errorf(types.ErrKindInvariant,
					"alloc: free buddies 0x%X and 0x%X of order %d not merged", s, s^sz, o)
			}
			total += uint64(sz)
		}
	}
	if total != b.freeBytes {
		return types.Errorf(types.ErrKindInvariant,
			"alloc: free bytes %d, counter says %d", total, b.freeBytes)
	}

	blocks := b.FreeBlocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i-1].End > blocks[i].Start {
			return types.Errorf(types.ErrKindInvariant,
				"alloc: free blocks %s and %s overlap", blocks[i-1], blocks[i])
		}
	}
	return nil
}
