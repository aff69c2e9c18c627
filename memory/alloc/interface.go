package alloc

import "github.com/joshuapare/buddykit/pkg/types"

// Allocator defines the address-range allocation contract used by the block table.
//
// Implementations:
//   - Buddy: binary buddy allocator with per-order free sets
type Allocator interface {
	// Allocate reserves a block of at least size bytes and returns its start.
	// The block size is size rounded up to the next power of two.
	Allocate(size uint32) (uint32, error)

	// Deallocate returns the block [start, start+NextPowerOfTwo(size)) and
	// coalesces it with its free buddies.
	Deallocate(start, size uint32) error

	// FreeBlocks returns every free block ordered by start address.
	FreeBlocks() []types.Region

	// FreeBytes returns the total size of all free blocks.
	FreeBytes() uint64

	// FreeCount returns the number of free blocks.
	FreeCount() int

	// LargestFree returns the size of the largest free block, or 0 when full.
	LargestFree() uint32

	// Size returns the arena size managed by the allocator.
	Size() uint32

	// Stats returns a snapshot of the allocator counters.
	Stats() Stats

	// Validate checks the free-set invariants.
	Validate() error
}

var _ Allocator = (*Buddy)(nil)
