// Package trace reads access traces, replays them against a hierarchy and
// records the resulting cache events.
//
// A trace is a text file with one access per line:
//
//	R addr              read the line holding addr
//	W addr data         write the whole line
//	P addr lo hi data   write bits [lo, hi] of the line
//	E addr              evict the line from the active context
//	C ctx               make a context active
//	T on|off            enter or leave the temporary state
//
// Numbers take Go literal syntax (0x10, 0b101, 42). Text after # is ignored.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// Op is the kind of a trace record.
type Op byte

// Trace operations.
const (
	OpRead    Op = 'R'
	OpWrite   Op = 'W'
	OpPartial Op = 'P'
	OpEvict   Op = 'E'
	OpContext Op = 'C'
	OpTemp    Op = 'T'
)

var operands = map[Op]int{
	OpRead:    1,
	OpWrite:   2,
	OpPartial: 4,
	OpEvict:   1,
	OpContext: 1,
	OpTemp:    1,
}

// Record is one trace line.
type Record struct {
	Op      Op
	Addr    uint64
	Lo, Hi  int
	Data    *big.Int
	Context int
	On      bool

	// Line is the 1-based source line, 0 for generated records.
	Line int
}

func (r Record) String() string {
	switch r.Op {
	case OpRead, OpEvict:
		return fmt.Sprintf("%c 0x%x", r.Op, r.Addr)
	case OpWrite:
		return fmt.Sprintf("W 0x%x 0x%s", r.Addr, r.Data.Text(16))
	case OpPartial:
		return fmt.Sprintf("P 0x%x %d %d 0x%s", r.Addr, r.Lo, r.Hi, r.Data.Text(16))
	case OpContext:
		return fmt.Sprintf("C %d", r.Context)
	case OpTemp:
		if r.On {
			return "T on"
		}

		return "T off"
	default:
		return fmt.Sprintf("%c?", r.Op)
	}
}

// Parse reads a whole trace.
func Parse(r io.Reader) ([]Record, error) {
	var recs []Record

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	n := 0
	for sc.Scan() {
		n++

		rec, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}

		if ok {
			rec.Line = n
			recs = append(recs, rec)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return recs, nil
}

// ParseLine parses one line. It returns false for blank and comment lines.
func ParseLine(line string) (Record, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, false, nil
	}

	if len(fields[0]) != 1 {
		return Record{}, false, fmt.Errorf("unknown operation %q", fields[0])
	}

	op := Op(strings.ToUpper(fields[0])[0])

	want, known := operands[op]
	if !known {
		return Record{}, false, fmt.Errorf("unknown operation %q", fields[0])
	}

	args := fields[1:]
	if len(args) != want {
		return Record{}, false, fmt.Errorf("%c takes %d operands, got %d",
			op, want, len(args))
	}

	rec, err := parseArgs(op, args)
	if err != nil {
		return Record{}, false, err
	}

	return rec, true, nil
}

func parseArgs(op Op, args []string) (Record, error) {
	rec := Record{Op: op}

	var err error

	switch op {
	case OpContext:
		rec.Context, err = strconv.Atoi(args[0])
		if err != nil || rec.Context < 0 {
			return rec, fmt.Errorf("invalid context %q", args[0])
		}

		return rec, nil
	case OpTemp:
		switch strings.ToLower(args[0]) {
		case "on":
			rec.On = true
		case "off":
		default:
			return rec, fmt.Errorf("T takes on or off, got %q", args[0])
		}

		return rec, nil
	}

	rec.Addr, err = strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid address %q", args[0])
	}

	switch op {
	case OpWrite:
		rec.Data, err = parseData(args[1])
	case OpPartial:
		rec.Lo, rec.Hi, err = parseRange(args[1], args[2])
		if err == nil {
			rec.Data, err = parseData(args[3])
		}
	}

	return rec, err
}

func parseRange(loText, hiText string) (lo, hi int, err error) {
	lo, err = strconv.Atoi(loText)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bit index %q", loText)
	}

	hi, err = strconv.Atoi(hiText)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bit index %q", hiText)
	}

	if lo < 0 || hi < lo {
		return 0, 0, fmt.Errorf("invalid bit range [%d, %d]", lo, hi)
	}

	return lo, hi, nil
}

func parseData(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid data %q", s)
	}

	return v, nil
}
