package mem

import (
	"context"
	"fmt"
	"strings"
)

// DebugFlags reports what happened during one access. The set that served a
// hit or received a refill is encoded in bits [1:0].
type DebugFlags uint32

// The debug flags. Bits [1:0] hold a set index.
const (
	ReadHit DebugFlags = 1 << (iota + 2)
	ReadMiss
	WriteHit
	WriteMiss
	FrozenMiss
	Bypass
	Scratchpad
	TLBHit
	TLBMiss
)

const debugSetMask DebugFlags = 0x3

// ReadHitIn returns the flags of a read hit in the given set.
func ReadHitIn(set int) DebugFlags {
	return ReadHit | DebugFlags(set)&debugSetMask
}

// ReadMissIn returns the flags of a read miss refilled into the given set.
func ReadMissIn(set int) DebugFlags {
	return ReadMiss | DebugFlags(set)&debugSetMask
}

// WriteHitIn returns the flags of a write hit in the given set.
func WriteHitIn(set int) DebugFlags {
	return WriteHit | DebugFlags(set)&debugSetMask
}

// Set returns the set index carried in bits [1:0].
func (f DebugFlags) Set() int {
	return int(f & debugSetMask)
}

// Has checks if all the bits in flag are set.
func (f DebugFlags) Has(flag DebugFlags) bool {
	return f&flag == flag
}

var debugFlagNames = []struct {
	flag DebugFlags
	name string
}{
	{ReadHit, "READHIT"},
	{ReadMiss, "READMISS"},
	{WriteHit, "WRITEHIT"},
	{WriteMiss, "WRITEMISS"},
	{FrozenMiss, "FROZEN_MISS"},
	{Bypass, "BYPASS"},
	{Scratchpad, "SCRATCHPAD"},
	{TLBHit, "TLBHIT"},
	{TLBMiss, "TLBMISS"},
}

func (f DebugFlags) String() string {
	names := []string{}

	for _, n := range debugFlagNames {
		if !f.Has(n.flag) {
			continue
		}

		if n.flag == ReadHit || n.flag == ReadMiss || n.flag == WriteHit {
			names = append(names, fmt.Sprintf("%s(%d)", n.name, f.Set()))
			continue
		}

		names = append(names, n.name)
	}

	if len(names) == 0 {
		return "NONE"
	}

	return strings.Join(names, "|")
}

type debugSinkKey struct{}

// WithDebugSink returns a context that collects the debug flags reported by
// the adaptors called with it.
func WithDebugSink(ctx context.Context, sink *DebugFlags) context.Context {
	return context.WithValue(ctx, debugSinkKey{}, sink)
}

// ReportDebug ORs flags into the sink attached to ctx, if any.
func ReportDebug(ctx context.Context, flags DebugFlags) {
	sink, ok := ctx.Value(debugSinkKey{}).(*DebugFlags)
	if !ok || sink == nil {
		return
	}

	*sink |= flags
}
