package memory

import (
	"sync/atomic"
	"time"
)

// Observer receives operational metrics from a Manager.
// Implement this interface to integrate with monitoring systems; see
// package memory/metrics for a Prometheus implementation.
//
// Callbacks run while the Manager lock is held and must not call back into it.
type Observer interface {
	// OnInsert is called after each Insert. size is the requested size.
	OnInsert(duration time.Duration, size uint32, err error)

	// OnDelete is called after each Delete.
	OnDelete(duration time.Duration, err error)

	// OnUpdate is called after each Update. relocated reports whether the
	// data moved to a new block.
	OnUpdate(duration time.Duration, relocated bool, err error)

	// OnFind is called after each Find.
	OnFind(duration time.Duration, err error)

	// OnArenaStatus is called after every successful mutation.
	OnArenaStatus(stats Stats)
}

// NoopObserver is a no-op implementation of Observer.
type NoopObserver struct{}

func (NoopObserver) OnInsert(time.Duration, uint32, error) {}
func (NoopObserver) OnDelete(time.Duration, error)         {}
func (NoopObserver) OnUpdate(time.Duration, bool, error)   {}
func (NoopObserver) OnFind(time.Duration, error)           {}
func (NoopObserver) OnArenaStatus(Stats)                   {}

// BasicObserver provides simple in-memory counters.
// Useful for tests and debugging without external dependencies.
type BasicObserver struct {
	InsertCount     atomic.Int64
	InsertErrors    atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
	UpdateCount     atomic.Int64
	UpdateErrors    atomic.Int64
	Relocations     atomic.Int64
	FindCount       atomic.Int64
	FindErrors      atomic.Int64
	FreeBytes       atomic.Uint64
	AllocatedBlocks atomic.Int64
}

// OnInsert implements Observer.
func (b *BasicObserver) OnInsert(_ time.Duration, _ uint32, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// OnDelete implements Observer.
func (b *BasicObserver) OnDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// OnUpdate implements Observer.
func (b *BasicObserver) OnUpdate(_ time.Duration, relocated bool, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
	if relocated {
		b.Relocations.Add(1)
	}
}

// OnFind implements Observer.
func (b *BasicObserver) OnFind(_ time.Duration, err error) {
	b.FindCount.Add(1)
	if err != nil {
		b.FindErrors.Add(1)
	}
}

// OnArenaStatus implements Observer.
func (b *BasicObserver) OnArenaStatus(s Stats) {
	b.FreeBytes.Store(s.FreeBytes)
	b.AllocatedBlocks.Store(int64(s.AllocatedBlocks))
}
