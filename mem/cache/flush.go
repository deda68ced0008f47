package cache

import (
	"context"

	"github.com/sarchlab/vcache/sim/hooking"
)

// Flush writes every valid word back through the memory adaptor and then
// invalidates all lines. The flush-pending bit of the control register is
// set while the flush runs.
func (c *Comp) Flush(ctx context.Context) (err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.ccr.setFlushPending(c.kind, true)
	defer c.ccr.setFlushPending(c.kind, false)

	numWords := 0

	defer func() {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosFlush,
			Item: hooking.AccessEvent{
				Kind:   hooking.AccessFlush,
				Length: uint32(numWords * 4),
				Err:    err,
			},
		})
	}()

	for s := range c.sets {
		lines := c.sets[s].Lines
		for idx := range lines {
			line := &lines[idx]

			for w := 0; w < c.wordsPerLine; w++ {
				if !line.IsValid(w) {
					continue
				}

				addr := c.lineAddr(line.Tag, uint32(idx)) | uint32(w*4)
				err = c.adaptor.Write(ctx, addr, line.Data[w*4:w*4+4])
				if err != nil {
					return err
				}

				numWords++
			}

			line.Invalidate()
		}
	}

	return nil
}

// SnoopInvalidate invalidates every cached word in [addr, addr+length). It
// serves writes seen on the bus and only acts while the cache is fully
// enabled.
func (c *Comp) SnoopInvalidate(addr uint32, length uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Mode() != ModeEnabled {
		return
	}

	start := addr &^ 3
	end := uint64(addr) + uint64(length)

	for a := uint64(start); a < end; a += 4 {
		tag, idx, off := c.decompose(uint32(a))
		word := off / 4

		for s := range c.sets {
			line := &c.sets[s].Lines[idx]
			if line.Tag == tag && line.IsValid(int(word)) {
				line.Valid &^= 1 << word
			}
		}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosSnoop,
		Item: hooking.AccessEvent{
			Kind:   hooking.AccessSnoop,
			Addr:   addr,
			Length: length,
		},
	})
}
