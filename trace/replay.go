package trace

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/hierarchy"
)

// Target is what a trace is replayed against. *hierarchy.Session is one.
type Target interface {
	Read(addr uint64) (bitvec.BitVector, error)
	Write(addr uint64, data bitvec.BitVector) error
	WritePartial(addr uint64, lo, hi int, data bitvec.BitVector) error
	Evict(addr uint64) (bool, error)
	SelectContext(id int) error
	SetUseTempState(on bool)
}

// Result counts the replayed records.
type Result struct {
	Reads     int
	Writes    int
	Partials  int
	Evictions int
	Switches  int

	// Unbacked counts reads of data nothing ever wrote. They do not stop the
	// replay.
	Unbacked int
}

// Replay applies the records in order. Read results are written to out when
// it is not nil. The replay stops at the first failing record or when ctx is
// done.
func Replay(ctx context.Context, t Target, recs []Record, out io.Writer) (Result, error) {
	var res Result

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := apply(t, rec, &res, out); err != nil {
			return res, fmt.Errorf("trace line %d (%s): %w", rec.Line, rec, err)
		}
	}

	return res, nil
}

func apply(t Target, rec Record, res *Result, out io.Writer) error {
	switch rec.Op {
	case OpRead:
		res.Reads++

		v, err := t.Read(rec.Addr)
		if errors.Is(err, hierarchy.ErrUnbacked) {
			res.Unbacked++
			return nil
		}

		if err != nil {
			return err
		}

		if out != nil {
			_, _ = fmt.Fprintf(out, "0x%x %s\n", rec.Addr, v)
		}

		return nil
	case OpWrite:
		res.Writes++
		return t.Write(rec.Addr, bitvec.FromBig(max(rec.Data.BitLen(), 1), rec.Data))
	case OpPartial:
		res.Partials++
		return t.WritePartial(rec.Addr, rec.Lo, rec.Hi,
			bitvec.FromBig(rec.Hi-rec.Lo+1, rec.Data))
	case OpEvict:
		res.Evictions++
		_, err := t.Evict(rec.Addr)

		return err
	case OpContext:
		res.Switches++
		return t.SelectContext(rec.Context)
	case OpTemp:
		t.SetUseTempState(rec.On)
		return nil
	default:
		return fmt.Errorf("unknown operation %c", rec.Op)
	}
}
