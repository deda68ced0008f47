// Package trace reads text access traces and replays them on a cache and MMU
// subsystem.
//
// Each line holds one operation. Numbers may be decimal or 0x-prefixed hex.
// Blank lines and text after '#' are ignored.
//
//	I addr              instruction fetch
//	R addr len          data read
//	W addr len value    data write
//	S addr len          snoop invalidation
//	F                   flush both caches
//	C value             cache control register write
//	X ctx               MMU context switch
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OpKind is the letter that starts a trace line.
type OpKind byte

// The operations a trace can hold.
const (
	OpFetch   OpKind = 'I'
	OpRead    OpKind = 'R'
	OpWrite   OpKind = 'W'
	OpSnoop   OpKind = 'S'
	OpFlush   OpKind = 'F'
	OpCCR     OpKind = 'C'
	OpContext OpKind = 'X'
)

func (k OpKind) String() string {
	return string(k)
}

var numArgs = map[OpKind]int{
	OpFetch:   1,
	OpRead:    2,
	OpWrite:   3,
	OpSnoop:   2,
	OpFlush:   0,
	OpCCR:     1,
	OpContext: 1,
}

// An Op is one line of a trace.
type Op struct {
	Kind   OpKind
	Addr   uint32
	Length uint32
	Value  uint64

	// Line is the line number in the trace file, starting from 1.
	Line int
}

// A SyntaxError reports a malformed trace line.
type SyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("trace line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Parse reads a whole trace.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op

	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		op, ok, err := ParseLine(scanner.Text(), lineNum)
		if err != nil {
			return nil, err
		}

		if ok {
			ops = append(ops, op)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ops, nil
}

// ParseLine parses one trace line. It reports false for lines that hold no
// operation.
func ParseLine(text string, lineNum int) (Op, bool, error) {
	content, _, _ := strings.Cut(text, "#")

	fields := strings.Fields(content)
	if len(fields) == 0 {
		return Op{}, false, nil
	}

	syntaxErr := func(reason string) error {
		return &SyntaxError{Line: lineNum, Text: text, Reason: reason}
	}

	if len(fields[0]) != 1 {
		return Op{}, false, syntaxErr("unknown operation")
	}

	op := Op{Kind: OpKind(strings.ToUpper(fields[0])[0]), Line: lineNum}

	n, known := numArgs[op.Kind]
	if !known {
		return Op{}, false, syntaxErr("unknown operation")
	}

	if len(fields)-1 != n {
		return Op{}, false, syntaxErr(
			fmt.Sprintf("want %d arguments, got %d", n, len(fields)-1))
	}

	args := make([]uint64, n)
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 0, 64)
		if err != nil {
			return Op{}, false, syntaxErr(err.Error())
		}

		args[i] = v
	}

	if err := op.assign(args); err != nil {
		return Op{}, false, syntaxErr(err.Error())
	}

	return op, true, nil
}

func (op *Op) assign(args []uint64) error {
	switch op.Kind {
	case OpFlush:
		return nil
	case OpCCR, OpContext:
		op.Value = args[0]
		return checkWidth(op.Value, 32)
	}

	if err := checkWidth(args[0], 32); err != nil {
		return err
	}

	op.Addr = uint32(args[0])

	if op.Kind == OpFetch {
		op.Length = 4
		return nil
	}

	if err := checkWidth(args[1], 32); err != nil {
		return err
	}

	op.Length = uint32(args[1])

	if op.Kind != OpWrite {
		return nil
	}

	if op.Length > 8 {
		return fmt.Errorf("write length %d is larger than 8", op.Length)
	}

	op.Value = args[2]

	return checkWidth(op.Value, 8*op.Length)
}

func checkWidth(v uint64, bits uint32) error {
	if bits < 64 && v>>bits != 0 {
		return fmt.Errorf("0x%x does not fit in %d bits", v, bits)
	}

	return nil
}

// Bytes returns the data of a write, big-endian.
func (op Op) Bytes() []byte {
	data := make([]byte, op.Length)
	for i := range data {
		data[i] = byte(op.Value >> (8 * (int(op.Length) - 1 - i)))
	}

	return data
}

func (op Op) String() string {
	switch op.Kind {
	case OpFetch:
		return fmt.Sprintf("I 0x%08x", op.Addr)
	case OpRead, OpSnoop:
		return fmt.Sprintf("%s 0x%08x %d", op.Kind, op.Addr, op.Length)
	case OpWrite:
		return fmt.Sprintf("W 0x%08x %d 0x%x", op.Addr, op.Length, op.Value)
	case OpCCR, OpContext:
		return fmt.Sprintf("%s 0x%x", op.Kind, op.Value)
	default:
		return string(op.Kind)
	}
}
