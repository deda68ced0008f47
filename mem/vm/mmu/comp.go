// Package mmu provides a SPARC reference MMU: a TLB in front of a three
// level page table walk.
package mmu

import (
	"context"
	"errors"
	"sync"

	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/vm"
	"github.com/sarchlab/vcache/mem/vm/tlb"
	"github.com/sarchlab/vcache/sim/hooking"
)

// Side tells apart instruction fetches and data accesses.
type Side int

// The two sides of the MMU.
const (
	InstructionSide Side = iota
	DataSide
)

func (s Side) String() string {
	if s == InstructionSide {
		return "instruction"
	}

	return "data"
}

// HookPosTranslate marks a completed translation.
var HookPosTranslate = &hooking.HookPos{Name: "MMU Translate"}

// HookPosFault marks a translation or access fault.
var HookPosFault = &hooking.HookPos{Name: "MMU Fault"}

// Comp is an MMU. Register accesses and translations are serialized by one
// lock, which is held during table walks.
type Comp struct {
	hooking.HookableBase

	lock sync.Mutex

	name     string
	adaptor  mem.MemoryAdaptor
	pageSize vm.PageSize

	// itlb and dtlb point to the same store unless the TLBs are separate.
	itlb *tlb.Store
	dtlb *tlb.Store

	control uint32
	context uint32
	ctp     uint32
	fsr     uint32
	far     uint32
}

// Name returns the name of the MMU.
func (m *Comp) Name() string {
	return m.name
}

// PageSize returns the page size.
func (m *Comp) PageSize() vm.PageSize {
	return m.pageSize
}

// TLB returns the TLB store that serves a side.
func (m *Comp) TLB(side Side) *tlb.Store {
	if side == InstructionSide {
		return m.itlb
	}

	return m.dtlb
}

// FlushTLB drops all TLB entries.
func (m *Comp) FlushTLB() {
	m.itlb.Flush()

	if m.dtlb != m.itlb {
		m.dtlb.Flush()
	}
}

// Translate maps a virtual address to a physical address, whether or not
// translation is enabled. TLBHIT or TLBMISS is reported to the debug sink
// of ctx. A failed walk returns a *PageTableFault.
func (m *Comp) Translate(
	ctx context.Context,
	side Side,
	vaddr uint32,
) (uint32, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.translate(ctx, side, vaddr, false)
}

func (m *Comp) translate(
	ctx context.Context,
	side Side,
	vaddr uint32,
	write bool,
) (uint32, error) {
	store := m.TLB(side)
	vpn := m.pageSize.VPN(vaddr)
	useTLB := m.control&CtrlTD == 0

	if useTLB {
		e, found := store.Lookup(vpn)
		if found && e.Context == m.context {
			paddr := m.pageSize.PhysicalAddr(e.PTE, e.Level, vaddr)
			mem.ReportDebug(ctx, mem.TLBHit)
			m.traceTranslate(vaddr, paddr, mem.TLBHit)

			return paddr, nil
		}
	}

	mem.ReportDebug(ctx, mem.TLBMiss)

	pte, level, err := m.walk(ctx, vaddr)
	if err != nil {
		var fault *PageTableFault
		if errors.As(err, &fault) {
			m.recordFault(fault, accessType(side, write))
			m.traceFault(fault)
		}

		return 0, err
	}

	if useTLB {
		store.Insert(tlb.Entry{
			VPN:     vpn,
			Context: m.context,
			PTE:     pte,
			Level:   level,
		})
	}

	paddr := m.pageSize.PhysicalAddr(pte, level, vaddr)
	m.traceTranslate(vaddr, paddr, mem.TLBMiss)

	return paddr, nil
}

// walk reads the table entries of vaddr until it finds a PTE. A PTD at the
// last level ends the walk with a translation error.
func (m *Comp) walk(
	ctx context.Context,
	vaddr uint32,
) (uint32, int, error) {
	table := m.ctp

	for level := 1; ; level++ {
		addr := vm.EntryAddr(table, m.pageSize.Index(vaddr, level))

		entry, err := vm.ReadEntry(ctx, m.adaptor, addr)
		if err != nil {
			if ctx.Err() != nil {
				return 0, 0, err
			}

			return 0, 0, &PageTableFault{
				VAddr: vaddr,
				Level: level,
				Type:  FaultTranslationError,
				Err:   err,
			}
		}

		switch vm.TypeOf(entry) {
		case vm.EntryPTE:
			return entry, level, nil
		case vm.EntryPTD:
			if level == vm.NumLevels {
				return 0, 0, m.walkFault(vaddr, level, entry,
					FaultTranslationError)
			}

			table = vm.TablePointer(entry)
		case vm.EntryInvalid:
			return 0, 0, m.walkFault(vaddr, level, entry, FaultInvalidAddress)
		default:
			return 0, 0, m.walkFault(vaddr, level, entry,
				FaultTranslationError)
		}
	}
}

func (m *Comp) walkFault(
	vaddr uint32,
	level int,
	entry uint32,
	t FaultType,
) *PageTableFault {
	return &PageTableFault{VAddr: vaddr, Level: level, Type: t, Entry: entry}
}

func (m *Comp) traceTranslate(vaddr, paddr uint32, flags mem.DebugFlags) {
	if m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosTranslate,
		Item: hooking.AccessEvent{
			Kind:   hooking.AccessTranslate,
			Addr:   vaddr,
			Result: paddr,
			Flags:  flags,
		},
	})
}

func (m *Comp) traceFault(f *PageTableFault) {
	if m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosFault,
		Item: hooking.AccessEvent{
			Kind: hooking.AccessFault,
			Addr: f.VAddr,
			Err:  f,
		},
		Detail: f.Type,
	})
}
