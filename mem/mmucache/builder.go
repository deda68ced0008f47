package mmucache

import (
	"github.com/sarchlab/vcache/mem/cache"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/vm/mmu"
	"github.com/sarchlab/vcache/sim/naming"
)

// A Builder can build the cache and MMU subsystem of one processor.
type Builder struct {
	icache     cache.Builder
	dcache     cache.Builder
	mmu        mmu.Builder
	useMMU     bool
	adaptor    mem.MemoryAdaptor
	localRAM   cache.LocalRAM
	scratchpad mem.MemoryAdaptor
}

// MakeBuilder creates a builder with default caches and no MMU.
func MakeBuilder() Builder {
	return Builder{
		icache: cache.MakeBuilder(),
		dcache: cache.MakeBuilder(),
		mmu:    mmu.MakeBuilder(),
	}
}

// WithICache sets the parameters of the instruction cache.
func (b Builder) WithICache(c cache.Builder) Builder {
	b.icache = c
	return b
}

// WithDCache sets the parameters of the data cache.
func (b Builder) WithDCache(c cache.Builder) Builder {
	b.dcache = c
	return b
}

// WithMMU places an MMU between the caches and memory.
func (b Builder) WithMMU(m mmu.Builder) Builder {
	b.mmu = m
	b.useMMU = true

	return b
}

// WithMemoryAdaptor sets the physical memory.
func (b Builder) WithMemoryAdaptor(a mem.MemoryAdaptor) Builder {
	b.adaptor = a
	return b
}

// WithScratchpad routes data accesses to the local RAM range to a, around
// the data cache and the MMU.
func (b Builder) WithScratchpad(ram cache.LocalRAM, a mem.MemoryAdaptor) Builder {
	b.localRAM = ram
	b.scratchpad = a

	return b
}

// Build creates the subsystem. Parameter errors of any part are returned.
func (b Builder) Build(name string) (*Comp, error) {
	if b.adaptor == nil {
		return nil, &cache.ConfigurationError{
			Param: "adaptor", Reason: "memory adaptor is missing"}
	}

	if err := naming.Validate(name); err != nil {
		return nil, err
	}

	if err := b.validateScratchpad(); err != nil {
		return nil, err
	}

	c := &Comp{
		name:     name,
		ccr:      cache.NewControlRegister(),
		physical: b.adaptor,
		local:    &mem.RangeAdaptorMapper{},
	}

	iAdaptor, dAdaptor := b.adaptor, b.adaptor

	if b.useMMU {
		m, err := b.mmu.WithMemoryAdaptor(b.adaptor).Build(naming.BuildName(name, "MMU"))
		if err != nil {
			return nil, err
		}

		c.mmu = m
		iAdaptor = m.Adaptor(mmu.InstructionSide)
		dAdaptor = m.Adaptor(mmu.DataSide)
	}

	ic, err := b.icache.
		AsInstructionCache().
		WithControlRegister(c.ccr).
		WithMMUPresent(b.useMMU).
		WithMemoryAdaptor(iAdaptor).
		Build(naming.BuildName(name, "ICache"))
	if err != nil {
		return nil, err
	}

	dc, err := b.dcache.
		AsDataCache().
		WithControlRegister(c.ccr).
		WithMMUPresent(b.useMMU).
		WithLocalRAM(b.localRAM).
		WithMemoryAdaptor(dAdaptor).
		Build(naming.BuildName(name, "DCache"))
	if err != nil {
		return nil, err
	}

	c.icache = ic
	c.dcache = dc

	if b.localRAM.Enabled {
		low := uint64(b.localRAM.Start)
		c.local.AddRange(
			mem.AddressRange{Low: low, High: low + uint64(b.localRAM.SizeKB)*1024},
			b.scratchpad)
	}

	return c, nil
}

// MustBuild is Build that panics on configuration errors.
func (b Builder) MustBuild(name string) *Comp {
	c, err := b.Build(name)
	if err != nil {
		panic(err)
	}

	return c
}

func (b Builder) validateScratchpad() error {
	ram := b.localRAM
	if !ram.Enabled {
		return nil
	}

	if b.scratchpad == nil {
		return &cache.ConfigurationError{
			Param: "scratchpad", Reason: "scratchpad adaptor is missing"}
	}

	if ram.SizeKB < 1 || ram.SizeKB > 512 || ram.SizeKB&(ram.SizeKB-1) != 0 {
		return &cache.ConfigurationError{Param: "lramsize", Value: ram.SizeKB,
			Reason: "must be a power of two from 1 to 512 KiB"}
	}

	if ram.Start&0xffffff != 0 {
		return &cache.ConfigurationError{Param: "lramstart",
			Value:  int(ram.Start >> 24),
			Reason: "must be aligned to 16 MiB"}
	}

	return nil
}
