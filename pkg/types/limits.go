package types

// ============================================================================
// Arena Limits
// ============================================================================

const (
	// DefaultArenaSize is the arena size used when none is configured (64 KiB).
	DefaultArenaSize = 1 << 16

	// MaxArenaSize is the largest supported arena. Offsets are uint32, so the
	// largest power of two whose end offset still fits is 2^31.
	MaxArenaSize = 1 << 31
)
