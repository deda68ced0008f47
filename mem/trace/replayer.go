package trace

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/vcache/mem/cache"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/mmucache"
)

const flushBoth = cache.CCRFI | cache.CCRFD

// An Outcome is the result of one replayed operation.
type Outcome struct {
	Op    Op
	Flags mem.DebugFlags
	Data  []byte
	Err   error
}

// A Summary counts the outcomes of a replay.
type Summary struct {
	Ops    int
	Errors int
}

// A Replayer applies trace operations to a subsystem.
type Replayer struct {
	comp   *mmucache.Comp
	logger *log.Logger

	// KeepGoing makes Replay continue after failed operations.
	KeepGoing bool

	// OnOutcome, if set, is called after every operation.
	OnOutcome func(Outcome)
}

// NewReplayer creates a replayer that logs every outcome to logger. A nil
// logger discards the log.
func NewReplayer(c *mmucache.Comp, logger *log.Logger) *Replayer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Replayer{comp: c, logger: logger}
}

// Replay applies all the operations in order. Unless KeepGoing is set, it
// stops at the first failed operation and returns its error.
func (r *Replayer) Replay(ctx context.Context, ops []Op) (Summary, error) {
	s := Summary{}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		out := r.Step(ctx, op)

		s.Ops++
		if out.Err != nil {
			s.Errors++

			if !r.KeepGoing {
				return s, fmt.Errorf("line %d: %w", op.Line, out.Err)
			}
		}
	}

	return s, nil
}

// Step applies one operation.
func (r *Replayer) Step(ctx context.Context, op Op) Outcome {
	out := Outcome{Op: op}
	c := r.comp

	switch op.Kind {
	case OpFetch:
		var inst uint32
		inst, out.Flags, out.Err = c.InstructionFetch(ctx, op.Addr)
		out.Data = []byte{
			byte(inst >> 24), byte(inst >> 16), byte(inst >> 8), byte(inst)}
	case OpRead:
		out.Data, out.Flags, out.Err = c.DataRead(ctx, op.Addr, op.Length)
	case OpWrite:
		out.Flags, out.Err = c.DataWrite(ctx, op.Addr, op.Bytes())
	case OpSnoop:
		c.Snoop(op.Addr, op.Length)
	case OpFlush:
		out.Err = c.WriteCCR(ctx, c.ReadCCR()|flushBoth)
	case OpCCR:
		out.Err = c.WriteCCR(ctx, uint32(op.Value))
	case OpContext:
		out.Err = c.ASIWrite(ctx, mmucache.ASIMMURegs,
			mmucache.MMURegContext, uint32(op.Value))
	default:
		panic("never")
	}

	if out.Err != nil {
		out.Data = nil
	}

	r.log(out)

	if r.OnOutcome != nil {
		r.OnOutcome(out)
	}

	return out
}

func (r *Replayer) log(out Outcome) {
	if out.Err != nil {
		r.logger.Printf("%d, %s, error, %v", out.Op.Line, out.Op, out.Err)
		return
	}

	if out.Data != nil {
		r.logger.Printf("%d, %s, %s, %x",
			out.Op.Line, out.Op, out.Flags, out.Data)
		return
	}

	r.logger.Printf("%d, %s, %s", out.Op.Line, out.Op, out.Flags)
}
