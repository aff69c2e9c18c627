// Package alloc provides a binary buddy allocator over a fixed power-of-two
// address range.
//
// # Overview
//
// The allocator owns the free set of an arena of N bytes (N a power of two)
// and hands out address ranges whose size is a power of two and whose start is
// a multiple of that size. It never touches the bytes themselves; the block
// table in package memory copies data into the arena buffer.
//
// # Allocation
//
//	b, err := alloc.New(65536, nil)
//	if err != nil {
//	    return err
//	}
//	start, err := b.Allocate(10) // rounded up to 16 bytes
//	if err != nil {
//	    return err
//	}
//	err = b.Deallocate(start, 10)
//
// Allocate picks the smallest free block that fits the rounded-up size, lowest
// start address first. Larger blocks are bisected, and each upper half is kept
// as a free block of the next lower order.
//
// # Coalescing
//
// Deallocate returns the block and merges it with its buddy, the block at
// start XOR size, while that buddy is free and of the same order. Two adjacent
// free blocks of equal size that are not buddies are never merged:
//
//	[0x00-0x10 free][0x10-0x20 free]  -> buddies, merged into 0x00-0x20
//	[0x10-0x20 free][0x20-0x30 free]  -> adjacent, different parents, kept apart
//
// # Orders
//
//	Order 0:  1 byte
//	Order 4: 16 bytes
//	Order 16: 64 KiB (the default arena)
//	Order 31: 2 GiB (MaxArenaSize)
//
// # Free Set
//
// Free blocks are stored as one roaring bitmap of start offsets per order.
// That gives a deterministic lowest-address pick (Bitmap.Minimum), an O(1)
// buddy lookup (Bitmap.Contains) and cheap overlap checks for double frees
// (Bitmap.Rank).
//
// # Thread Safety
//
// Buddy instances are not thread-safe. The memory.Manager serializes access
// with a single lock; other callers must synchronize externally.
//
// # Debugging
//
// Set BUDDY_LOG_ALLOC to a non-empty value to trace every split and merge to
// the allocator's logger at debug level.
package alloc
