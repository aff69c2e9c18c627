// Package memory implements the block table: a manager that maps logical ids
// to blocks handed out by a buddy allocator and keeps the bytes stored in them.
//
// # Overview
//
// A Manager owns three pieces of state, all guarded by one lock:
//
//   - the buddy allocator (package memory/alloc), which decides addresses
//   - the arena buffer, a fixed-size byte store holding every block's bytes
//   - the table itself: id -> region + payload length, and id -> stored bytes
//
// Every public operation takes the lock for its whole duration, so the
// intermediate states of a split, a merge or a relocation are never visible.
//
// # Usage Example
//
//	m, err := memory.New(nil) // 64 KiB arena
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	id, err := m.Insert(5, []byte("Hello")) // 8-byte block, id 0
//	if err != nil {
//	    return err
//	}
//	err = m.Update(id, []byte("Goodbye")) // still fits, written in place
//	blk, err := m.Find(id)                // blk.Data == "Goodbye"
//	err = m.Delete(id)
//
// # Ids
//
// Ids start at 0 and increase by one for every successful Insert. They are
// never reused, and Update keeps the id even when the data moves to a new block.
//
// # Padding
//
// Blocks are powers of two. The stored bytes and the arena copy are padded with
// zeros up to the block size; Find and Dump report the payload length and
// strip the padding.
//
// # Errors
//
// Operations return *types.Error values; match them with errors.Is against
// types.ErrInvalidSize, types.ErrOutOfMemory, types.ErrNotFound,
// types.ErrInvalidRange and types.ErrInvariantViolation.
package memory
