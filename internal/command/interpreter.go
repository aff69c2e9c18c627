package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/buddykit/memory"
	"github.com/joshuapare/buddykit/pkg/types"
)

// MaxLineSize bounds a single input line.
const MaxLineSize = 16 << 20

// Table is the subset of *memory.Manager the interpreter drives.
type Table interface {
	Insert(size uint32, data []byte) (memory.ID, error)
	Delete(id memory.ID) error
	Update(id memory.ID, data []byte) error
	Find(id memory.ID) (memory.Block, error)
	Dump() []memory.DumpEntry
}

var _ Table = (*memory.Manager)(nil)

// Summary counts the outcome of a Run.
type Summary struct {
	Executed int // commands that succeeded
	Failed   int // commands rejected by the block table
	Rejected int // lines that did not parse
}

// Total is the number of commands seen, comments excluded.
func (s Summary) Total() int { return s.Executed + s.Failed + s.Rejected }

// Interpreter executes commands against a Table and writes one result per
// command to out.
type Interpreter struct {
	table Table
	out   io.Writer
	log   *slog.Logger

	// Encoding names the input encoding for Run. Empty means UTF-8.
	Encoding string
}

// NewInterpreter creates an interpreter. logger may be nil.
func NewInterpreter(table Table, out io.Writer, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interpreter{table: table, out: out, log: logger}
}

// Exec parses and executes one line. The returned error is nil on success,
// ErrInvalidCommand or *ParseError for rejected lines, or the block table
// error. In every case the outcome has already been written to out.
func (in *Interpreter) Exec(line string) error {
	_, err := in.exec(line)
	return err
}

// exec is Exec that also reports the parsed op.
func (in *Interpreter) exec(line string) (Op, error) {
	cmd, err := Parse(line)
	if err != nil {
		in.log.Debug("command: rejected", "line", line, "err", err)
		if errors.Is(err, ErrInvalidCommand) {
			fmt.Fprintf(in.out, "Invalid command: %s\n", line)
		} else {
			fmt.Fprintf(in.out, "Error: %v\n", err)
		}
		return cmd.Op, err
	}
	if cmd.Op == OpNone {
		return OpNone, nil
	}

	in.log.Debug("command: exec", "op", cmd.Op.String(), "line", line)
	if err := in.execute(cmd); err != nil {
		fmt.Fprintf(in.out, "Error: %v\n", err)
		return cmd.Op, err
	}
	return cmd.Op, nil
}

func (in *Interpreter) execute(cmd Command) error {
	switch cmd.Op {
	case OpInsert:
		id, err := in.table.Insert(cmd.Size, cmd.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(in.out, "Allocated block with ID %d\n", id)

	case OpDelete:
		if err := in.table.Delete(cmd.ID); err != nil {
			return err
		}
		fmt.Fprintf(in.out, "Deleted block with ID %d\n", cmd.ID)

	case OpRead:
		blk, err := in.table.Find(cmd.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(in.out, "Block %d: %s (Size: %d, Length: %d) Data: %q\n",
			blk.ID, blk.Region, blk.Size(), blk.Length, blk.Data)

	case OpUpdate:
		if err := in.table.Update(cmd.ID, cmd.Data); err != nil {
			return err
		}
		fmt.Fprintf(in.out, "Updated block with ID %d\n", cmd.ID)

	case OpDump:
		for _, e := range in.table.Dump() {
			size := humanize.IBytes(uint64(e.Size()))
			if e.Kind == types.BlockFree {
				fmt.Fprintf(in.out, "Free Block: %s (Size: %s)\n", e.Region, size)
			} else {
				fmt.Fprintf(in.out, "Allocated Block ID %d: %s (Size: %s, Length: %d)\n",
					e.ID, e.Region, size, e.Length)
			}
		}
	}
	return nil
}

// Run executes r line by line until EOF, continuing past failed commands.
// ctx is checked between lines; a cancelled run returns ctx.Err() with the
// summary so far.
func (in *Interpreter) Run(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary
	dec, err := DecodeReader(r, in.Encoding)
	if err != nil {
		return sum, err
	}

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		lineNo++
		line := sc.Text()

		op, err := in.exec(line)
		var pe *ParseError
		switch {
		case err == nil:
			if op != OpNone {
				sum.Executed++
			}
		case errors.Is(err, ErrInvalidCommand), errors.As(err, &pe):
			sum.Rejected++
			in.log.Warn("command: rejected line", "line_no", lineNo, "err", err)
		default:
			sum.Failed++
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("read line %d: %w", lineNo+1, err)
	}
	in.log.Info("command: run complete",
		"executed", sum.Executed, "failed", sum.Failed, "rejected", sum.Rejected)
	return sum, nil
}
