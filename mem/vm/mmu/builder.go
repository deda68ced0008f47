package mmu

import (
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/vm"
	"github.com/sarchlab/vcache/mem/vm/tlb"
)

// A Builder can build MMU components.
type Builder struct {
	pageSize    vm.PageSize
	itlbEntries int
	dtlbEntries int
	separateTLB bool
	eviction    tlb.EvictionPolicy
	adaptor     mem.MemoryAdaptor
}

// MakeBuilder creates a new builder for an MMU with 4k pages and one shared
// 8-entry TLB.
func MakeBuilder() Builder {
	return Builder{
		pageSize:    vm.PageSize4K,
		itlbEntries: 8,
		dtlbEntries: 8,
		eviction:    tlb.EvictFIFO,
	}
}

// WithPageSize sets the page size.
func (b Builder) WithPageSize(p vm.PageSize) Builder {
	b.pageSize = p
	return b
}

// WithTLBEntries sets the number of instruction and data TLB entries. A
// shared TLB uses the instruction TLB size.
func (b Builder) WithTLBEntries(itlb, dtlb int) Builder {
	b.itlbEntries = itlb
	b.dtlbEntries = dtlb

	return b
}

// WithSeparateTLB gives the instruction and the data side their own TLB.
func (b Builder) WithSeparateTLB(separate bool) Builder {
	b.separateTLB = separate
	return b
}

// WithEvictionPolicy sets how full TLBs pick the entry to drop.
func (b Builder) WithEvictionPolicy(p tlb.EvictionPolicy) Builder {
	b.eviction = p
	return b
}

// WithMemoryAdaptor sets the physical memory that holds the page tables and
// serves translated accesses.
func (b Builder) WithMemoryAdaptor(a mem.MemoryAdaptor) Builder {
	b.adaptor = a
	return b
}

// Build returns a newly created MMU, or a *ConfigurationError.
func (b Builder) Build(name string) (*Comp, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	m := &Comp{
		name:     name,
		adaptor:  b.adaptor,
		pageSize: b.pageSize,
	}

	m.itlb = tlb.NewStore(b.itlbEntries, b.eviction)
	m.dtlb = m.itlb

	if b.separateTLB {
		m.dtlb = tlb.NewStore(b.dtlbEntries, b.eviction)
	}

	return m, nil
}

// MustBuild is Build that panics on configuration errors.
func (b Builder) MustBuild(name string) *Comp {
	m, err := b.Build(name)
	if err != nil {
		panic(err)
	}

	return m
}

func validTLBSize(n int) bool {
	return n >= 1 && n <= 128 && n&(n-1) == 0
}

func (b Builder) validate() error {
	if !b.pageSize.Valid() {
		return &ConfigurationError{"pagesize", int(b.pageSize),
			"must be 4k, 8k, 16k or 32k"}
	}

	if !validTLBSize(b.itlbEntries) {
		return &ConfigurationError{"itlb", b.itlbEntries,
			"must be a power of two from 1 to 128"}
	}

	if b.separateTLB && !validTLBSize(b.dtlbEntries) {
		return &ConfigurationError{"dtlb", b.dtlbEntries,
			"must be a power of two from 1 to 128"}
	}

	if b.eviction != tlb.EvictFIFO && b.eviction != tlb.EvictLRU {
		return &ConfigurationError{"eviction", int(b.eviction),
			"unknown eviction policy"}
	}

	if b.adaptor == nil {
		return &ConfigurationError{"adaptor", 0, "memory adaptor is missing"}
	}

	return nil
}
