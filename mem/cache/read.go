package cache

import (
	"context"
	"fmt"

	"github.com/sarchlab/vcache/mem/cache/internal/tagging"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/sim/hooking"
)

// Read returns length bytes at addr. On a miss, the missing words are fetched
// through the memory adaptor and, unless the cache is frozen, stored in a
// line.
func (c *Comp) Read(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, mem.DebugFlags, error) {
	return c.read(ctx, addr, length, false)
}

// ReadForceMiss reads like Read but never hits. The fetched words still
// refill the cache.
func (c *Comp) ReadForceMiss(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, mem.DebugFlags, error) {
	return c.read(ctx, addr, length, true)
}

func (c *Comp) read(
	ctx context.Context,
	addr uint32,
	length uint32,
	forceMiss bool,
) (data []byte, flags mem.DebugFlags, err error) {
	if err = checkAccess(addr, length); err != nil {
		return nil, 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	defer func() {
		c.traceAccess(hooking.AccessRead, addr, length, flags, err)
	}()

	ctx = mem.WithDebugSink(ctx, &flags)

	mode := c.Mode()
	if !mode.IsEnabled() {
		flags |= mem.Bypass
		data, err = c.adaptor.Read(ctx, addr, length)

		return data, flags, err
	}

	tag, idx, off := c.decompose(addr)
	mask := tagging.WordMask(off, length)
	lines := tagging.Candidates(c.sets, idx)

	if !forceMiss {
		if set, hit := c.lookup(lines, tag, mask); hit {
			c.victimFinder.Visit(lines, set)
			flags |= mem.ReadHitIn(set)

			line := lines[set]
			data = make([]byte, length)
			copy(data, line.Data[off:off+length])

			return data, flags, nil
		}
	}

	return c.readMiss(ctx, addr, length, mode, &flags)
}

func (c *Comp) lookup(
	lines []*tagging.Line,
	tag uint32,
	mask uint8,
) (set int, hit bool) {
	for i, l := range lines {
		if l.Tag == tag && l.AllValid(mask) {
			return i, true
		}
	}

	return 0, false
}

func (c *Comp) readMiss(
	ctx context.Context,
	addr uint32,
	length uint32,
	mode Mode,
	flags *mem.DebugFlags,
) ([]byte, mem.DebugFlags, error) {
	tag, idx, off := c.decompose(addr)
	refillOff, fetched, err := c.fetch(ctx, tag, idx, off, length)
	if err != nil {
		return nil, *flags, err
	}

	set, filled, err := c.fill(idx, tag, refillOff, fetched, mode)
	if err != nil {
		return nil, *flags, err
	}

	if filled {
		*flags |= mem.ReadMissIn(set)
	} else {
		*flags |= mem.FrozenMiss
	}

	start := off - refillOff
	data := make([]byte, length)
	copy(data, fetched[start:start+length])

	return data, *flags, nil
}

// fetch reads the words a refill brings in. Without burst, only the words
// covering the access are read. With burst, the refill runs from the first
// requested word to the end of the line.
func (c *Comp) fetch(
	ctx context.Context,
	tag, idx, off, length uint32,
) (refillOff uint32, data []byte, err error) {
	refillOff = off &^ 3
	refillLen := (off+length+3)&^3 - refillOff

	if c.burstEnabled && c.ccr.BurstFetch() {
		refillLen = c.lineBytes() - refillOff
	}

	data, err = c.adaptor.Read(ctx, c.lineAddr(tag, idx)|refillOff, refillLen)
	if err != nil {
		return 0, nil, err
	}

	return refillOff, data, nil
}

// fill stores the fetched words in a line of the given index. It reports
// false if a frozen cache had no line it could grow.
func (c *Comp) fill(
	idx, tag, refillOff uint32,
	fetched []byte,
	mode Mode,
) (set int, filled bool, err error) {
	lines := tagging.Candidates(c.sets, idx)
	mask := tagging.WordMask(refillOff, uint32(len(fetched)))

	set, grow := c.findLineToGrow(lines, tag)
	if !grow {
		if mode.IsFrozen() {
			return 0, false, nil
		}

		set, err = c.findVictim(lines, mask)
		if err != nil {
			return 0, false, fmt.Errorf("refill of index %d: %w", idx, err)
		}
	}

	line := lines[set]
	if !grow {
		line.Tag = tag
		line.Valid = 0
		c.victimFinder.Fill(lines, set)
	}

	copy(line.Data[refillOff:], fetched)
	line.Valid |= mask

	return set, true, nil
}

// findLineToGrow finds a line that already holds other words of the same
// memory line.
func (c *Comp) findLineToGrow(
	lines []*tagging.Line,
	tag uint32,
) (int, bool) {
	for i, l := range lines {
		if !l.IsEmpty() && l.Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// findVictim prefers an unlocked line that holds none of the refilled words,
// so that no valid data is dropped. Otherwise the replacement policy
// decides.
func (c *Comp) findVictim(lines []*tagging.Line, mask uint8) (int, error) {
	for i, l := range lines {
		if !l.Lock && l.Valid&mask == 0 {
			return i, nil
		}
	}

	return c.victimFinder.FindVictim(lines)
}
