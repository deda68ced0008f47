package mmu

import (
	"context"

	"github.com/sarchlab/vcache/mem/mem"
)

// Adaptor returns a MemoryAdaptor that translates the addresses of one side
// before reaching physical memory. While translation is disabled, addresses
// pass through unchanged.
func (m *Comp) Adaptor(side Side) mem.MemoryAdaptor {
	return &sideAdaptor{mmu: m, side: side}
}

type sideAdaptor struct {
	mmu  *Comp
	side Side
}

func (a *sideAdaptor) physicalAddr(
	ctx context.Context,
	vaddr uint32,
	write bool,
) (paddr uint32, translated bool, err error) {
	m := a.mmu

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.control&CtrlE == 0 {
		return vaddr, false, nil
	}

	paddr, err = m.translate(ctx, a.side, vaddr, write)

	return paddr, true, err
}

func (a *sideAdaptor) Read(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, error) {
	paddr, translated, err := a.physicalAddr(ctx, addr, false)
	if err != nil {
		return nil, err
	}

	data, err := a.mmu.adaptor.Read(ctx, paddr, length)
	if err != nil && translated {
		a.mmu.accessFault(ctx, a.side, addr, false, err)
	}

	return data, err
}

func (a *sideAdaptor) Write(
	ctx context.Context,
	addr uint32,
	data []byte,
) error {
	paddr, translated, err := a.physicalAddr(ctx, addr, true)
	if err != nil {
		return err
	}

	err = a.mmu.adaptor.Write(ctx, paddr, data)
	if err != nil && translated {
		a.mmu.accessFault(ctx, a.side, addr, true, err)
	}

	return err
}

// accessFault records a bus error of a translated access.
func (m *Comp) accessFault(
	ctx context.Context,
	side Side,
	vaddr uint32,
	write bool,
	err error,
) {
	if ctx.Err() != nil {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	f := &PageTableFault{VAddr: vaddr, Type: FaultAccessBusError, Err: err}
	m.recordFault(f, accessType(side, write))
	m.traceFault(f)
}
