package alloc

import (
	"fmt"
	"io"
)

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls     int   // Allocate() calls, including failed ones
	FreeCalls      int   // Deallocate() calls, including rejected ones
	Failures       int   // calls that returned an error
	Splits         int   // block bisections performed by Allocate()
	Merges         int   // buddy merges performed by Deallocate()
	BytesAllocated int64 // block bytes handed out (rounded sizes)
	BytesFreed     int64 // block bytes returned (rounded sizes)
}

// Fprint writes a human-readable summary of s to w.
func (s Stats) Fprint(w io.Writer) {
	fmt.Fprintf(w, "=== BUDDY ALLOCATOR STATISTICS ===\n")
	fmt.Fprintf(w, "Alloc calls:     %d\n", s.AllocCalls)
	fmt.Fprintf(w, "Free calls:      %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Failures:        %d\n", s.Failures)
	fmt.Fprintf(w, "Splits:          %d\n", s.Splits)
	fmt.Fprintf(w, "Merges:          %d\n", s.Merges)
	fmt.Fprintf(w, "Bytes allocated: %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:     %d\n", s.BytesFreed)
}
