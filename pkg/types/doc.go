// Package types defines the shared value types and typed errors used by the
// buddy allocator, the block table and their collaborators.
//
// Design goals:
//   - Small, copyable values (Region, Kind) instead of pointers into state.
//   - Typed errors with stable categories so callers branch with errors.Is.
//   - Never panic on caller-supplied input.
//
// This package has no dependencies beyond the standard library.
package types
