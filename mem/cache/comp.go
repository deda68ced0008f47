// Package cache provides the set-associative write-through cache engine used
// for both the instruction and the data cache of a processor.
package cache

import (
	"sync"

	"github.com/sarchlab/vcache/mem/cache/internal/tagging"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/sim/hooking"
)

// HookPosAccess marks a read or a write served by a cache.
var HookPosAccess = &hooking.HookPos{Name: "Cache Access"}

// HookPosFlush marks a completed flush.
var HookPosFlush = &hooking.HookPos{Name: "Cache Flush"}

// HookPosSnoop marks a snoop invalidation.
var HookPosSnoop = &hooking.HookPos{Name: "Cache Snoop"}

// Comp is a cache engine. All operations run to completion under one lock,
// including the memory adaptor calls made on a miss.
type Comp struct {
	hooking.HookableBase

	lock sync.Mutex

	name    string
	kind    Kind
	adaptor mem.MemoryAdaptor
	ccr     *ControlRegister

	sets         []tagging.Set
	victimFinder tagging.VictimFinder
	policy       ReplacementPolicy

	numSets      int
	setSizeKB    int
	wordsPerLine int
	linesPerSet  int
	offsetBits   uint
	idxBits      uint
	tagWidth     uint

	lockEnabled   bool
	burstEnabled  bool
	allowWrites   bool
	writeAllocate bool
	snooping      bool
	mmuPresent    bool
	localRAM      LocalRAM
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// Kind returns whether this is an instruction or a data cache.
func (c *Comp) Kind() Kind {
	return c.kind
}

// NumSets returns the associativity.
func (c *Comp) NumSets() int {
	return c.numSets
}

// LinesPerSet returns the number of lines in each set.
func (c *Comp) LinesPerSet() int {
	return c.linesPerSet
}

// WordsPerLine returns the line size in words.
func (c *Comp) WordsPerLine() int {
	return c.wordsPerLine
}

// ControlRegister returns the control register the cache follows.
func (c *Comp) ControlRegister() *ControlRegister {
	return c.ccr
}

// Mode returns the current cache mode.
func (c *Comp) Mode() Mode {
	return c.ccr.Mode(c.kind)
}

// SetMode changes the cache mode.
func (c *Comp) SetMode(mode Mode) {
	c.ccr.SetMode(c.kind, mode)
}

func (c *Comp) lineBytes() uint32 {
	return uint32(c.wordsPerLine * 4)
}

func (c *Comp) decompose(addr uint32) (tag, idx, off uint32) {
	off = addr & (1<<c.offsetBits - 1)
	idx = addr >> c.offsetBits & (1<<c.idxBits - 1)
	tag = addr >> (c.offsetBits + c.idxBits)

	return tag, idx, off
}

func (c *Comp) lineAddr(tag, idx uint32) uint32 {
	return tag<<(c.offsetBits+c.idxBits) | idx<<c.offsetBits
}

func checkAccess(addr uint32, length uint32) error {
	switch length {
	case 1, 2, 4, 8:
	default:
		return ErrInvalidAccess
	}

	if addr%length != 0 {
		return ErrInvalidAccess
	}

	return nil
}

func (c *Comp) traceAccess(kind hooking.AccessKind, addr, length uint32,
	flags mem.DebugFlags, err error,
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item: hooking.AccessEvent{
			Kind:   kind,
			Addr:   addr,
			Length: length,
			Flags:  flags,
			Err:    err,
		},
	})
}
