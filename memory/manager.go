package memory

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/joshuapare/buddykit/internal/arena"
	"github.com/joshuapare/buddykit/memory/alloc"
	"github.com/joshuapare/buddykit/pkg/types"
)

// Options configures a Manager. The zero value is usable.
type Options struct {
	// ArenaSize is the arena size in bytes, a power of two.
	// Zero selects types.DefaultArenaSize (64 KiB).
	ArenaSize uint32

	// Logger receives debug records for every operation and warnings for
	// invariant failures. Nil discards.
	Logger *slog.Logger

	// Observer receives per-operation metrics. Nil selects NoopObserver.
	Observer Observer

	// CheckInvariants validates the whole table after every mutation and
	// reports a failure as types.ErrInvariantViolation. Costs O(blocks).
	CheckInvariants bool
}

// Manager is the block table. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	alloc  alloc.Allocator
	arena  *arena.Arena
	blocks map[ID]*entry
	store  *dataStore
	nextID ID
	closed bool

	log             *slog.Logger
	observer        Observer
	checkInvariants bool
}

// New creates a Manager with an empty arena. opts may be nil.
func New(opts *Options) (*Manager, error) {
	if opts == nil {
		opts = &Options{}
	}
	size := opts.ArenaSize
	if size == 0 {
		size = types.DefaultArenaSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	observer := opts.Observer
	if observer == nil {
		observer = NoopObserver{}
	}

	b, err := alloc.New(size, logger)
	if err != nil {
		return nil, err
	}
	a, err := arena.New(size)
	if err != nil {
		return nil, err
	}

	return &Manager{
		alloc:           b,
		arena:           a,
		blocks:          make(map[ID]*entry),
		store:           newDataStore(),
		log:             logger,
		observer:        observer,
		checkInvariants: opts.CheckInvariants,
	}, nil
}

// Insert allocates a block for size bytes, stores data in it zero-padded to
// the block size, and returns the new id.
//
// Errors: types.ErrInvalidSize when size is 0 or data does not fit the
// rounded-up block; types.ErrOutOfMemory when no free block is large enough.
func (m *Manager) Insert(size uint32, data []byte) (id ID, err error) {
	t0 := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.observer.OnInsert(time.Since(t0), size, err) }()

	if m.closed {
		return 0, ErrClosed
	}
	if size == 0 {
		return 0, types.Errorf(types.ErrKindInvalidSize, "memory: insert of size 0")
	}
	blockSize := alloc.NextPowerOfTwo(size)
	if blockSize != 0 && uint64(len(data)) > uint64(blockSize) {
		return 0, types.Errorf(types.ErrKindInvalidSize,
			"memory: payload of %d bytes exceeds block of %d bytes", len(data), blockSize)
	}

	start, err := m.alloc.Allocate(size)
	if err != nil {
		return 0, err
	}
	region := types.Region{Start: start, End: start + blockSize}
	if err = m.arena.Write(start, data, blockSize); err != nil {
		_ = m.alloc.Deallocate(start, size)
		return 0, err
	}

	id = m.nextID
	m.nextID++
	m.blocks[id] = &entry{region: region, length: uint32(len(data))}
	m.store.put(id, data, blockSize)

	if err = m.verify("insert"); err != nil {
		return 0, err
	}
	m.log.Debug("memory: insert", "id", id, "region", region.String(), "length", len(data))
	m.observer.OnArenaStatus(m.statsLocked())
	return id, nil
}

// Delete frees the block of id and discards its data. The id is never reassigned.
//
// Errors: types.ErrNotFound when id is unknown or already deleted.
func (m *Manager) Delete(id ID) (err error) {
	t0 := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.observer.OnDelete(time.Since(t0), err) }()

	if m.closed {
		return ErrClosed
	}
	e, ok := m.blocks[id]
	if !ok {
		return types.Errorf(types.ErrKindNotFound, "memory: block %d not found", id)
	}
	if err = m.alloc.Deallocate(e.region.Start, e.region.Size()); err != nil {
		// The table and the allocator disagree about this block.
		m.log.Warn("memory: delete rejected by allocator", "id", id, "err", err)
		return &types.Error{Kind: types.ErrKindInvariant, Msg: "memory: delete", Err: err}
	}
	delete(m.blocks, id)
	m.store.drop(id)

	if err = m.verify("delete"); err != nil {
		return err
	}
	m.log.Debug("memory: delete", "id", id, "region", e.region.String())
	m.observer.OnArenaStatus(m.statsLocked())
	return nil
}

// Update replaces the data of id. Data that fits the current block is written
// in place and the region is unchanged; larger data moves to a new block and
// the old one is freed. The id is preserved either way.
//
// Errors: types.ErrNotFound for an unknown id, types.ErrInvalidSize for empty
// data, types.ErrOutOfMemory when a larger block cannot be allocated (the old
// data stays in place).
func (m *Manager) Update(id ID, data []byte) (err error) {
	t0 := time.Now()
	relocated := false
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.observer.OnUpdate(time.Since(t0), relocated, err) }()

	if m.closed {
		return ErrClosed
	}
	e, ok := m.blocks[id]
	if !ok {
		return types.Errorf(types.ErrKindNotFound, "memory: block %d not found", id)
	}
	if len(data) == 0 {
		return types.Errorf(types.ErrKindInvalidSize, "memory: update of block %d to size 0", id)
	}
	if uint64(len(data)) > uint64(m.alloc.Size()) {
		return types.Errorf(types.ErrKindOutOfMemory,
			"memory: payload of %d bytes exceeds arena size %d", len(data), m.alloc.Size())
	}

	n := uint32(len(data))
	cur := e.region.Size()
	if n > cur {
		if err = m.relocate(id, e, data); err != nil {
			return err
		}
		relocated = true
	} else {
		if err = m.arena.Write(e.region.Start, data, cur); err != nil {
			return err
		}
		m.store.overwrite(id, data)
	}
	e.length = n

	if err = m.verify("update"); err != nil {
		return err
	}
	m.log.Debug("memory: update", "id", id, "region", e.region.String(),
		"length", n, "relocated", relocated)
	m.observer.OnArenaStatus(m.statsLocked())
	return nil
}

// relocate moves id to a new block sized for data. The new block is
// allocated before the old one is released, so a failed allocation leaves the
// binding untouched.
func (m *Manager) relocate(id ID, e *entry, data []byte) error {
	n := uint32(len(data))
	start, err := m.alloc.Allocate(n)
	if err != nil {
		return err
	}
	blockSize := alloc.NextPowerOfTwo(n)
	if err := m.arena.Write(start, data, blockSize); err != nil {
		_ = m.alloc.Deallocate(start, n)
		return err
	}
	if err := m.alloc.Deallocate(e.region.Start, e.region.Size()); err != nil {
		_ = m.alloc.Deallocate(start, n)
		m.log.Warn("memory: relocation release rejected by allocator", "id", id, "err", err)
		return &types.Error{Kind: types.ErrKindInvariant, Msg: "memory: update", Err: err}
	}

	m.log.Debug("memory: relocate", "id", id, "from", e.region.String(),
		"to", types.Region{Start: start, End: start + blockSize}.String())
	e.region = types.Region{Start: start, End: start + blockSize}
	m.store.put(id, data, blockSize)
	return nil
}

// Find returns the region and a copy of the payload of id.
//
// Errors: types.ErrNotFound when id is unknown or deleted.
func (m *Manager) Find(id ID) (blk Block, err error) {
	t0 := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.observer.OnFind(time.Since(t0), err) }()

	if m.closed {
		return Block{}, ErrClosed
	}
	e, ok := m.blocks[id]
	if !ok {
		return Block{}, types.Errorf(types.ErrKindNotFound, "memory: block %d not found", id)
	}
	return Block{
		ID:     id,
		Region: e.region,
		Length: e.length,
		Data:   m.payloadLocked(id, e),
	}, nil
}

// payloadLocked returns a copy of the unpadded stored bytes of id.
func (m *Manager) payloadLocked(id ID, e *entry) []byte {
	buf, _ := m.store.get(id)
	out := make([]byte, e.length)
	copy(out, buf)
	return out
}

// Len returns the number of allocated blocks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

// Close releases the arena and every stored buffer. Later calls return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.store.reset()
	m.blocks = nil
	return m.arena.Close()
}

// verify runs the full validation when invariant checks are enabled.
func (m *Manager) verify(op string) error {
	if !m.checkInvariants {
		return nil
	}
	if err := m.validateLocked(); err != nil {
		m.log.Warn("memory: invariant violation", "op", op, "err", err)
		return &types.Error{Kind: types.ErrKindInvariant, Msg: "memory: " + op, Err: err}
	}
	return nil
}
