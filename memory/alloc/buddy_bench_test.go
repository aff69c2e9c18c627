package alloc

import (
	"math/rand"
	"testing"
)

// Benchmark_Buddy_AllocFree_Pair allocates and immediately frees one small
// block, exercising a full split and merge chain each iteration.
func Benchmark_Buddy_AllocFree_Pair(b *testing.B) {
	a, err := New(1<<20, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()

	for b.Loop() {
		addr, allocErr := a.Allocate(64)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		if freeErr := a.Deallocate(addr, 64); freeErr != nil {
			b.Fatal(freeErr)
		}
	}
}

// Benchmark_Buddy_SteadyState keeps roughly 500 live blocks of mixed sizes.
func Benchmark_Buddy_SteadyState(b *testing.B) {
	a, err := New(1<<24, nil)
	if err != nil {
		b.Fatal(err)
	}

	type live struct{ addr, size uint32 }
	allocated := make([]live, 0, 1000)
	for range 500 {
		addr, _ := a.Allocate(128)
		allocated = append(allocated, live{addr, 128})
	}

	b.ReportAllocs()

	rng := rand.New(rand.NewSource(42))

	for b.Loop() {
		shouldAlloc := len(allocated) < 500 || (len(allocated) < 700 && rng.Float32() < 0.5)

		if !shouldAlloc {
			idx := rng.Intn(len(allocated))
			if freeErr := a.Deallocate(allocated[idx].addr, allocated[idx].size); freeErr != nil {
				b.Fatal(freeErr)
			}
			allocated[idx] = allocated[len(allocated)-1]
			allocated = allocated[:len(allocated)-1]
		} else {
			size := uint32(16 + rng.Intn(4096))
			addr, allocErr := a.Allocate(size)
			if allocErr != nil {
				b.Fatal(allocErr)
			}
			allocated = append(allocated, live{addr, size})
		}
	}
}

// Benchmark_Buddy_Validate measures a full free-set check on a fragmented arena.
func Benchmark_Buddy_Validate(b *testing.B) {
	a, err := New(1<<20, nil)
	if err != nil {
		b.Fatal(err)
	}
	for i := uint32(0); i < 1<<20; i += 64 {
		if _, allocErr := a.Allocate(32); allocErr != nil {
			b.Fatal(allocErr)
		}
	}

	for b.Loop() {
		if vErr := a.Validate(); vErr != nil {
			b.Fatal(vErr)
		}
	}
}
