// Package vm defines the virtual memory layout shared by the MMU and the
// tools that build page tables: page sizes, table indices and table entries.
package vm

import (
	"fmt"
)

// PageSize selects one of the four supported page sizes. The value is the
// PSZ field of the MMU control register.
type PageSize uint8

// The supported page sizes.
const (
	PageSize4K PageSize = iota
	PageSize8K
	PageSize16K
	PageSize32K
)

// NumLevels is the depth of a page table.
const NumLevels = 3

var indexWidths = [...][NumLevels]uint{
	PageSize4K:  {8, 6, 6},
	PageSize8K:  {7, 6, 6},
	PageSize16K: {6, 6, 6},
	PageSize32K: {4, 7, 6},
}

// ParsePageSize converts a page size in bytes.
func ParsePageSize(bytes int) (PageSize, error) {
	for p := PageSize4K; p <= PageSize32K; p++ {
		if p.Bytes() == uint32(bytes) {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unsupported page size %d", bytes)
}

// Valid tells if the page size is one of the supported ones.
func (p PageSize) Valid() bool {
	return p <= PageSize32K
}

// Bytes returns the page size in bytes.
func (p PageSize) Bytes() uint32 {
	return 1 << p.OffsetBits()
}

// OffsetBits returns the number of page offset bits.
func (p PageSize) OffsetBits() uint {
	return 12 + uint(p)
}

// VTagWidth returns the number of virtual page number bits.
func (p PageSize) VTagWidth() uint {
	return 32 - p.OffsetBits()
}

// IndexWidth returns the number of index bits of a table level, from 1 to 3.
func (p PageSize) IndexWidth(level int) uint {
	return indexWidths[p][level-1]
}

// VPN returns the virtual page number of vaddr.
func (p PageSize) VPN(vaddr uint32) uint32 {
	return vaddr >> p.OffsetBits()
}

// Offset returns the page offset of vaddr.
func (p PageSize) Offset(vaddr uint32) uint32 {
	return vaddr & (p.Bytes() - 1)
}

// Index returns the table index that vaddr uses at a level, from 1 to 3.
func (p PageSize) Index(vaddr uint32, level int) uint32 {
	shift := p.OffsetBits()
	for l := NumLevels; l > level; l-- {
		shift += p.IndexWidth(l)
	}

	return vaddr >> shift & (1<<p.IndexWidth(level) - 1)
}

// RegionMask returns the mask of the virtual address bits that pass
// untranslated when a PTE is found at the given level. A level 3 PTE maps one
// page. Level 1 and 2 PTEs map larger regions.
func (p PageSize) RegionMask(level int) uint32 {
	bits := p.OffsetBits()
	for l := NumLevels; l > level; l-- {
		bits += p.IndexWidth(l)
	}

	return uint32(1<<bits - 1)
}

func (p PageSize) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PageSize(%d)", uint8(p))
	}

	return fmt.Sprintf("%dk", p.Bytes()/1024)
}
