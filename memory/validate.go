package memory

import (
	"bytes"
	"sort"

	"github.com/joshuapare/buddykit/pkg/types"
)

// Validate checks the whole structure:
//   - the allocator's free set is consistent
//   - free and allocated blocks partition the arena with no gaps or overlaps
//   - every id has stored bytes of its block size, and payload <= block size
//   - the arena holds a byte-identical copy of every stored block
//
// A non-nil result is always types.ErrKindInvariant.
func (m *Manager) Validate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.validateLocked()
}

func (m *Manager) validateLocked() error {
	if err := m.alloc.Validate(); err != nil {
		return err
	}

	regions := m.alloc.FreeBlocks()
	var allocated uint64
	for id, e := range m.blocks {
		size := e.region.Size()
		if size == 0 || size&(size-1) != 0 || e.region.Start%size != 0 {
			return types.Errorf(types.ErrKindInvariant,
				"memory: block %d has invalid region %s", id, e.region)
		}
		if e.length > size {
			return types.Errorf(types.ErrKindInvariant,
				"memory: block %d payload %d exceeds block size %d", id, e.length, size)
		}
		buf, ok := m.store.get(id)
		if !ok || uint32(len(buf)) != size {
			return types.Errorf(types.ErrKindInvariant,
				"memory: block %d stored data has %d bytes, want %d", id, len(buf), size)
		}
		view, err := m.arena.Bytes(e.region.Start, e.region.End)
		if err != nil {
			return &types.Error{Kind: types.ErrKindInvariant, Msg: "memory: arena view", Err: err}
		}
		if !bytes.Equal(view, buf) {
			return types.Errorf(types.ErrKindInvariant,
				"memory: block %d arena bytes differ from stored data", id)
		}
		regions = append(regions, e.region)
		allocated += uint64(size)
	}
	if m.store.len() != len(m.blocks) {
		return types.Errorf(types.ErrKindInvariant,
			"memory: %d stored buffers for %d blocks", m.store.len(), len(m.blocks))
	}

	arenaSize := uint64(m.alloc.Size())
	if m.alloc.FreeBytes()+allocated != arenaSize {
		return types.Errorf(types.ErrKindInvariant,
			"memory: free %d + allocated %d != arena %d", m.alloc.FreeBytes(), allocated, arenaSize)
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	var pos uint64
	for _, r := range regions {
		if uint64(r.Start) != pos {
			return types.Errorf(types.ErrKindInvariant,
				"memory: gap or overlap at 0x%X (next block %s)", pos, r)
		}
		pos = uint64(r.End)
	}
	if pos != arenaSize {
		return types.Errorf(types.ErrKindInvariant,
			"memory: blocks end at 0x%X, arena is %d bytes", pos, arenaSize)
	}
	return nil
}
