package vm

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/vcache/mem/mem"
)

// EntryType is the type field in the low 2 bits of a table entry.
type EntryType uint32

// The table entry types.
const (
	EntryInvalid EntryType = iota
	EntryPTD
	EntryPTE
	EntryReserved
)

// EntrySize is the size of a table entry in bytes.
const EntrySize = 4

// PTE permission and status bits.
const (
	PTECacheable  uint32 = 1 << 7
	PTEModified   uint32 = 1 << 6
	PTEReferenced uint32 = 1 << 5
	PTEACCShift          = 2
)

// TypeOf returns the type of a table entry.
func TypeOf(entry uint32) EntryType {
	return EntryType(entry & 0x3)
}

// MakePTD returns a descriptor that points to the table at tableAddr.
func MakePTD(tableAddr uint32) uint32 {
	return tableAddr&^0x3 | uint32(EntryPTD)
}

// MakePTE returns a page table entry for the physical page number ppn.
func MakePTE(ppn uint32, flags uint32) uint32 {
	return ppn<<8 | flags&0xfc | uint32(EntryPTE)
}

// TablePointer returns the address of the next table a PTD points to.
func TablePointer(ptd uint32) uint32 {
	return ptd &^ 0x3
}

// PPN returns the physical page number of a PTE.
func PPN(pte uint32) uint32 {
	return pte >> 8
}

// EntryAddr returns the address of the entry idx of the table at tableAddr.
func EntryAddr(tableAddr, idx uint32) uint32 {
	return tableAddr + idx*EntrySize
}

// PhysicalAddr builds the physical address that vaddr maps to through a PTE
// found at a level. A level 1 or 2 PTE maps its whole region: the address
// bits under RegionMask come from vaddr and the PPN bits there are ignored.
func (p PageSize) PhysicalAddr(pte uint32, level int, vaddr uint32) uint32 {
	mask := p.RegionMask(level)
	return PPN(pte)<<p.OffsetBits()&^mask | vaddr&mask
}

// ReadEntry reads one big-endian table entry.
func ReadEntry(
	ctx context.Context,
	a mem.MemoryAdaptor,
	addr uint32,
) (uint32, error) {
	data, err := a.Read(ctx, addr, EntrySize)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(data), nil
}

// WriteEntry writes one big-endian table entry.
func WriteEntry(
	ctx context.Context,
	a mem.MemoryAdaptor,
	addr uint32,
	entry uint32,
) error {
	data := make([]byte, EntrySize)
	binary.BigEndian.PutUint32(data, entry)

	return a.Write(ctx, addr, data)
}

// A TableWriter builds page tables in memory. Tables are carved out of a
// memory area starting at the root table.
type TableWriter struct {
	adaptor  mem.MemoryAdaptor
	pageSize PageSize
	root     uint32
	next     uint32
}

// NewTableWriter creates a TableWriter whose level 1 table is at root.
// Further tables are allocated right after it. The root table is expected to
// be zeroed; call Clear if it may hold stale entries.
func NewTableWriter(
	a mem.MemoryAdaptor,
	pageSize PageSize,
	root uint32,
) *TableWriter {
	w := &TableWriter{
		adaptor:  a,
		pageSize: pageSize,
		root:     root,
	}
	w.next = root + w.tableBytes(1)

	return w
}

// Root returns the address of the level 1 table, the value of the context
// table pointer.
func (w *TableWriter) Root() uint32 {
	return w.root
}

// Clear zeroes the root table and forgets all allocated tables.
func (w *TableWriter) Clear(ctx context.Context) error {
	w.next = w.root + w.tableBytes(1)

	return w.adaptor.Write(ctx, w.root, make([]byte, w.tableBytes(1)))
}

func (w *TableWriter) tableBytes(level int) uint32 {
	return EntrySize << w.pageSize.IndexWidth(level)
}

func (w *TableWriter) allocate(level int) uint32 {
	size := w.tableBytes(level)
	addr := (w.next + size - 1) &^ (size - 1)
	w.next = addr + size

	return addr
}

// Map makes vaddr translate to paddr. The PTE is placed at level, so a level
// 1 or 2 mapping covers a whole region. Missing tables on the way are
// allocated and zeroed.
func (w *TableWriter) Map(
	ctx context.Context,
	vaddr, paddr uint32,
	level int,
	flags uint32,
) error {
	if level < 1 || level > NumLevels {
		return fmt.Errorf("invalid page table level %d", level)
	}

	table := w.root
	for l := 1; l < level; l++ {
		addr := EntryAddr(table, w.pageSize.Index(vaddr, l))

		entry, err := ReadEntry(ctx, w.adaptor, addr)
		if err != nil {
			return err
		}

		switch TypeOf(entry) {
		case EntryPTD:
			table = TablePointer(entry)
			continue
		case EntryPTE:
			return fmt.Errorf("0x%08x is already mapped at level %d", vaddr, l)
		}

		next, err := w.newTable(ctx, l+1)
		if err != nil {
			return err
		}

		if err := WriteEntry(ctx, w.adaptor, addr, MakePTD(next)); err != nil {
			return err
		}

		table = next
	}

	addr := EntryAddr(table, w.pageSize.Index(vaddr, level))
	pte := MakePTE(paddr>>w.pageSize.OffsetBits(), flags)

	return WriteEntry(ctx, w.adaptor, addr, pte)
}

// Unmap writes an invalid entry where the walk of vaddr ends.
func (w *TableWriter) Unmap(ctx context.Context, vaddr uint32) error {
	table := w.root
	for l := 1; l <= NumLevels; l++ {
		addr := EntryAddr(table, w.pageSize.Index(vaddr, l))

		entry, err := ReadEntry(ctx, w.adaptor, addr)
		if err != nil {
			return err
		}

		if TypeOf(entry) != EntryPTD {
			return WriteEntry(ctx, w.adaptor, addr, 0)
		}

		table = TablePointer(entry)
	}

	return nil
}

func (w *TableWriter) newTable(ctx context.Context, level int) (uint32, error) {
	addr := w.allocate(level)
	zeros := make([]byte, w.tableBytes(level))

	if err := w.adaptor.Write(ctx, addr, zeros); err != nil {
		return 0, err
	}

	return addr, nil
}
