// Package mmucache composes the instruction cache, the data cache, the cache
// control register, an optional MMU and an optional scratchpad RAM into the
// memory subsystem of one processor.
package mmucache

import (
	"context"
	"encoding/binary"

	"github.com/sarchlab/vcache/mem/cache"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/vm/mmu"
	"github.com/sarchlab/vcache/sim/hooking"
)

// Comp is the memory subsystem of one processor.
type Comp struct {
	name     string
	ccr      *cache.ControlRegister
	icache   *cache.Comp
	dcache   *cache.Comp
	mmu      *mmu.Comp
	physical mem.MemoryAdaptor
	local    *mem.RangeAdaptorMapper
}

// Name returns the name of the subsystem.
func (c *Comp) Name() string {
	return c.name
}

// ICache returns the instruction cache.
func (c *Comp) ICache() *cache.Comp {
	return c.icache
}

// DCache returns the data cache.
func (c *Comp) DCache() *cache.Comp {
	return c.dcache
}

// MMU returns the MMU, or nil if there is none.
func (c *Comp) MMU() *mmu.Comp {
	return c.mmu
}

// ControlRegister returns the cache control register.
func (c *Comp) ControlRegister() *cache.ControlRegister {
	return c.ccr
}

// Hookables lists the parts that report events.
func (c *Comp) Hookables() []hooking.Hookable {
	hookables := []hooking.Hookable{c.icache, c.dcache}
	if c.mmu != nil {
		hookables = append(hookables, c.mmu)
	}

	return hookables
}

// AcceptHook registers a hook with every part.
func (c *Comp) AcceptHook(hook hooking.Hook) {
	for _, h := range c.Hookables() {
		h.AcceptHook(hook)
	}
}

// InstructionFetch reads one instruction word.
func (c *Comp) InstructionFetch(
	ctx context.Context,
	addr uint32,
) (uint32, mem.DebugFlags, error) {
	data, flags, err := c.icache.Read(ctx, addr, 4)
	if err != nil {
		return 0, flags, err
	}

	return binary.BigEndian.Uint32(data), flags, nil
}

// DataRead reads through the data cache, or from the scratchpad if addr is
// in the local RAM range.
func (c *Comp) DataRead(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, mem.DebugFlags, error) {
	if a := c.local.Find(addr); a != nil {
		data, err := a.Read(ctx, addr, length)
		return data, mem.Scratchpad, err
	}

	return c.dcache.Read(ctx, addr, length)
}

// DataWrite writes through the data cache, or to the scratchpad if addr is
// in the local RAM range.
func (c *Comp) DataWrite(
	ctx context.Context,
	addr uint32,
	data []byte,
) (mem.DebugFlags, error) {
	if a := c.local.Find(addr); a != nil {
		return mem.Scratchpad, a.Write(ctx, addr, data)
	}

	return c.dcache.Write(ctx, addr, data)
}

// Snoop invalidates the words another bus master wrote.
func (c *Comp) Snoop(addr, length uint32) {
	c.icache.SnoopInvalidate(addr, length)
	c.dcache.SnoopInvalidate(addr, length)
}

// ReadCCR returns the cache control register.
func (c *Comp) ReadCCR() uint32 {
	return c.ccr.Read()
}

// WriteCCR updates the cache control register and runs the flushes that the
// FI and FD bits request.
func (c *Comp) WriteCCR(ctx context.Context, value uint32) error {
	flushI, flushD := c.ccr.Write(value)

	if flushI {
		if err := c.icache.Flush(ctx); err != nil {
			return err
		}
	}

	if flushD {
		if err := c.dcache.Flush(ctx); err != nil {
			return err
		}
	}

	return nil
}
