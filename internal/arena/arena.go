// Package arena provides the fixed-size byte store that backs every block
// handed out by the buddy allocator.
//
// On Linux and macOS the store is an anonymous private mapping, so the pages
// live outside the Go heap and are returned to the OS on Close. Elsewhere it
// falls back to a heap slice.
package arena

import (
	"github.com/joshuapare/buddykit/pkg/types"
)

// Arena is a fixed-size byte buffer addressed by offsets in [0, Len()).
// It is not thread-safe; the block table owns it and serializes access.
type Arena struct {
	data    []byte
	release func() error
}

// New allocates a zeroed arena of size bytes.
func New(size uint32) (*Arena, error) {
	if size == 0 {
		return nil, types.Errorf(types.ErrKindInvalidSize, "arena: size must be > 0")
	}
	data, release, err := mapAnon(int(size))
	if err != nil {
		return nil, err
	}
	return &Arena{data: data, release: release}, nil
}

// Len returns the arena size in bytes. Zero after Close.
func (a *Arena) Len() int {
	return len(a.data)
}

// Write copies p to start and zero-fills the rest of the block, so that
// [start, start+blockSize) holds exactly p followed by padding.
func (a *Arena) Write(start uint32, p []byte, blockSize uint32) error {
	if uint64(len(p)) > uint64(blockSize) {
		return types.Errorf(types.ErrKindInvalidSize,
			"arena: payload of %d bytes exceeds block size %d", len(p), blockSize)
	}
	dst, err := a.Bytes(start, start+blockSize)
	if err != nil {
		return err
	}
	n := copy(dst, p)
	clear(dst[n:])
	return nil
}

// Copy returns a copy of [start, end).
func (a *Arena) Copy(start, end uint32) ([]byte, error) {
	src, err := a.Bytes(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Bytes returns the live view of [start, end). The slice aliases the arena
// and must not be retained past Close.
func (a *Arena) Bytes(start, end uint32) ([]byte, error) {
	if start > end || uint64(end) > uint64(len(a.data)) {
		return nil, types.Errorf(types.ErrKindInvalidRange,
			"arena: range 0x%X-0x%X outside arena of %d bytes", start, end, len(a.data))
	}
	return a.data[start:end:end], nil
}

// Close releases the backing memory. Safe to call more than once.
func (a *Arena) Close() error {
	if a.release == nil {
		return nil
	}
	err := a.release()
	a.data, a.release = nil, nil
	return err
}
