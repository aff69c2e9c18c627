// Package command parses and executes the buddyctl line protocol:
//
//	INSERT <size> <data>
//	DELETE <id>
//	READ <id>
//	UPDATE <id> <data>
//	DUMP
//
// Verbs are case-sensitive and fields are separated by whitespace, so a data
// token cannot contain spaces. Blank lines and lines starting with '#' are
// ignored.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/buddykit/memory"
)

// Op identifies a command verb.
type Op int

const (
	OpNone Op = iota // blank or comment line
	OpInsert
	OpDelete
	OpRead
	OpUpdate
	OpDump
)

var opNames = map[Op]string{
	OpNone:   "NONE",
	OpInsert: "INSERT",
	OpDelete: "DELETE",
	OpRead:   "READ",
	OpUpdate: "UPDATE",
	OpDump:   "DUMP",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ErrInvalidCommand is returned for lines whose verb is not recognized.
var ErrInvalidCommand = errors.New("invalid command")

// ParseError reports a recognized verb with missing or malformed arguments.
type ParseError struct {
	Op     Op
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Command is one parsed line.
type Command struct {
	Op   Op
	Size uint32    // INSERT
	ID   memory.ID // DELETE, READ, UPDATE
	Data []byte    // INSERT, UPDATE
	Line string    // the raw line
}

// Parse parses a single line. Blank and comment lines yield Op == OpNone.
func Parse(line string) (Command, error) {
	cmd := Command{Line: line}
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return cmd, nil
	}

	verb, args := fields[0], fields[1:]
	switch verb {
	case "INSERT":
		cmd.Op = OpInsert
		if err := arity(cmd, args, 2, "INSERT <size> <data>"); err != nil {
			return cmd, err
		}
		n, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return cmd, &ParseError{Op: cmd.Op, Line: line, Reason: fmt.Sprintf("size %q is not a 32-bit unsigned integer", args[0])}
		}
		cmd.Size = uint32(n)
		cmd.Data = []byte(args[1])

	case "DELETE", "READ":
		cmd.Op = OpDelete
		if verb == "READ" {
			cmd.Op = OpRead
		}
		if err := arity(cmd, args, 1, verb+" <id>"); err != nil {
			return cmd, err
		}
		id, err := parseID(cmd, args[0])
		if err != nil {
			return cmd, err
		}
		cmd.ID = id

	case "UPDATE":
		cmd.Op = OpUpdate
		if err := arity(cmd, args, 2, "UPDATE <id> <data>"); err != nil {
			return cmd, err
		}
		id, err := parseID(cmd, args[0])
		if err != nil {
			return cmd, err
		}
		cmd.ID = id
		cmd.Data = []byte(args[1])

	case "DUMP":
		cmd.Op = OpDump
		if err := arity(cmd, args, 0, "DUMP"); err != nil {
			return cmd, err
		}

	default:
		return cmd, fmt.Errorf("%w: %q", ErrInvalidCommand, verb)
	}
	return cmd, nil
}

func arity(cmd Command, args []string, want int, usage string) error {
	if len(args) != want {
		return &ParseError{
			Op:     cmd.Op,
			Line:   cmd.Line,
			Reason: fmt.Sprintf("expected %d argument(s), got %d (usage: %s)", want, len(args), usage),
		}
	}
	return nil
}

func parseID(cmd Command, s string) (memory.ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Op: cmd.Op, Line: cmd.Line, Reason: fmt.Sprintf("id %q is not an unsigned integer", s)}
	}
	return memory.ID(id), nil
}
