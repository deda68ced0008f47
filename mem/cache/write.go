package cache

import (
	"context"

	"github.com/sarchlab/vcache/mem/cache/internal/tagging"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/sim/hooking"
)

// Write stores data at addr. The cache is write-through: every write reaches
// the memory adaptor. A hit also updates the cached line. A miss does not
// allocate a line unless write-allocate is enabled.
func (c *Comp) Write(
	ctx context.Context,
	addr uint32,
	data []byte,
) (flags mem.DebugFlags, err error) {
	if !c.allowWrites {
		return 0, ErrWriteNotAllowed
	}

	length := uint32(len(data))
	if err = checkAccess(addr, length); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	defer func() {
		c.traceAccess(hooking.AccessWrite, addr, length, flags, err)
	}()

	ctx = mem.WithDebugSink(ctx, &flags)

	mode := c.Mode()
	if !mode.IsEnabled() {
		flags |= mem.Bypass
		err = c.adaptor.Write(ctx, addr, data)

		return flags, err
	}

	if err = c.adaptor.Write(ctx, addr, data); err != nil {
		return flags, err
	}

	tag, idx, off := c.decompose(addr)
	mask := tagging.WordMask(off, length)
	lines := tagging.Candidates(c.sets, idx)

	if set, hit := c.lookup(lines, tag, mask); hit {
		copy(lines[set].Data[off:], data)
		c.victimFinder.Visit(lines, set)
		flags |= mem.WriteHitIn(set)

		return flags, nil
	}

	flags |= mem.WriteMiss

	if c.writeAllocate {
		err = c.allocate(ctx, tag, idx, off, length, mode)
	}

	return flags, err
}

func (c *Comp) allocate(
	ctx context.Context,
	tag, idx, off, length uint32,
	mode Mode,
) error {
	refillOff, fetched, err := c.fetch(ctx, tag, idx, off, length)
	if err != nil {
		return err
	}

	_, _, err = c.fill(idx, tag, refillOff, fetched, mode)

	return err
}
