package alloc

import "github.com/joshuapare/buddykit/pkg/types"

var (
	// ErrInvalidSize indicates a zero-byte request or an arena size that is not a power of two.
	ErrInvalidSize = types.ErrInvalidSize

	// ErrOutOfMemory indicates that no free block is large enough, even after splitting.
	ErrOutOfMemory = types.ErrOutOfMemory

	// ErrInvalidRange indicates a deallocation outside the arena, misaligned, or already free.
	ErrInvalidRange = types.ErrInvalidRange

	// ErrInvariantViolation indicates the free set is corrupt. Never caller-triggerable.
	ErrInvariantViolation = types.ErrInvariantViolation
)
