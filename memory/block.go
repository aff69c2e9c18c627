package memory

import (
	"github.com/joshuapare/buddykit/pkg/types"
)

// ID is the caller-facing handle of an allocated block.
type ID uint64

// entry is the table record for one id.
type entry struct {
	region types.Region
	length uint32 // payload length as last stored; <= region.Size()
}

// Block is the result of Find: where the data lives and what it is.
type Block struct {
	ID     ID
	Region types.Region
	Length uint32 // payload length, excluding zero padding
	Data   []byte // copy of the payload
}

// Size returns the block size, a power of two >= Length.
func (b Block) Size() uint32 {
	return b.Region.Size()
}

// DumpEntry is one free or allocated block in a Dump snapshot.
// ID, Length and Data are only set for allocated blocks.
type DumpEntry struct {
	Kind   types.BlockKind
	Region types.Region
	ID     ID
	Length uint32
	Data   []byte
}

// Size returns the block size.
func (d DumpEntry) Size() uint32 {
	return d.Region.Size()
}
