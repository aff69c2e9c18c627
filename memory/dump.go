package memory

import (
	"sort"

	"github.com/joshuapare/buddykit/memory/alloc"
	"github.com/joshuapare/buddykit/pkg/types"
)

// Stats is a snapshot of the arena and table.
type Stats struct {
	ArenaSize       uint32
	FreeBytes       uint64
	AllocatedBytes  uint64 // block bytes, padding included
	PayloadBytes    uint64 // bytes actually stored by callers
	FreeBlocks      int
	AllocatedBlocks int
	LargestFree     uint32
	NextID          ID
	Alloc           alloc.Stats
}

// Dump returns every free and allocated block ordered by start address.
// Data is a copy of the payload of allocated blocks.
func (m *Manager) Dump() []DumpEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	free := m.alloc.FreeBlocks()
	out := make([]DumpEntry, 0, len(free)+len(m.blocks))
	for _, r := range free {
		out = append(out, DumpEntry{Kind: types.BlockFree, Region: r})
	}
	for id, e := range m.blocks {
		out = append(out, DumpEntry{
			Kind:   types.BlockAllocated,
			Region: e.region,
			ID:     id,
			Length: e.length,
			Data:   m.payloadLocked(id, e),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region.Start < out[j].Region.Start })
	return out
}

// ArenaSlice returns a copy of the arena bytes in r, padding included.
//
// Errors: types.ErrInvalidRange when r lies outside the arena.
func (m *Manager) ArenaSlice(r types.Region) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.arena.Copy(r.Start, r.End)
}

// Stats returns a snapshot of arena usage.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

func (m *Manager) statsLocked() Stats {
	s := Stats{
		ArenaSize:       m.alloc.Size(),
		FreeBytes:       m.alloc.FreeBytes(),
		FreeBlocks:      m.alloc.FreeCount(),
		AllocatedBlocks: len(m.blocks),
		LargestFree:     m.alloc.LargestFree(),
		NextID:          m.nextID,
		Alloc:           m.alloc.Stats(),
	}
	for _, e := range m.blocks {
		s.AllocatedBytes += uint64(e.region.Size())
		s.PayloadBytes += uint64(e.length)
	}
	return s
}
