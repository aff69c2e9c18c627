package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindInvalidSize ErrKind = iota + 1 // zero-byte request, or payload larger than its block
	ErrKindOutOfMemory                    // no free block large enough, even after splitting
	ErrKindNotFound                       // id unknown, deleted, or never assigned
	ErrKindInvalidRange                   // range outside the arena, misaligned, or already free
	ErrKindInvariant                      // internal free-set/table corruption (a bug, not caller input)
)

// String returns the short name of the error kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidSize:
		return "InvalidSize"
	case ErrKindOutOfMemory:
		return "OutOfMemory"
	case ErrKindNotFound:
		return "NotFound"
	case ErrKindInvalidRange:
		return "InvalidRange"
	case ErrKindInvariant:
		return "InvariantViolation"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so detailed errors
// built with Errorf match the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Sentinels commonly returned by implementations.
var (
	// ErrInvalidSize indicates a zero-byte allocation or update.
	ErrInvalidSize = &Error{Kind: ErrKindInvalidSize, Msg: "invalid size"}
	// ErrOutOfMemory indicates that no free block can satisfy the request.
	ErrOutOfMemory = &Error{Kind: ErrKindOutOfMemory, Msg: "out of memory"}
	// ErrNotFound indicates an unknown or deleted id.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "block not found"}
	// ErrInvalidRange indicates a deallocation or slice outside valid bounds.
	ErrInvalidRange = &Error{Kind: ErrKindInvalidRange, Msg: "invalid range"}
	// ErrInvariantViolation indicates the allocator or table state is corrupt.
	ErrInvariantViolation = &Error{Kind: ErrKindInvariant, Msg: "invariant violation"}
)

// -----------------------------------------------------------------------------
// Regions
// -----------------------------------------------------------------------------

// Region is the half-open address range [Start, End) inside an arena.
type Region struct {
	Start uint32
	End   uint32
}

// Size returns End - Start.
func (r Region) Size() uint32 { return r.End - r.Start }

// Overlaps reports whether r and o share at least one byte.
func (r Region) Overlaps(o Region) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("0x%04X - 0x%04X", r.Start, r.End)
}

// BlockKind tags an entry of an arena dump.
type BlockKind uint8

const (
	BlockFree BlockKind = iota
	BlockAllocated
)

func (k BlockKind) String() string {
	if k == BlockAllocated {
		return "ALLOCATED"
	}
	return "FREE"
}
