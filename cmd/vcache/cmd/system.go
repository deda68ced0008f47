package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vcache/config"
	"github.com/sarchlab/vcache/mem/mem"
	"github.com/sarchlab/vcache/mem/mmucache"
	"github.com/sarchlab/vcache/mem/vm"
	"github.com/sarchlab/vcache/mem/vm/mmu"
)

// system is a subsystem together with the memory behind it.
type system struct {
	comp       *mmucache.Comp
	memory     *mem.StorageAdaptor
	scratchpad *mem.StorageAdaptor
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	c := config.DefaultConfig()
	if path != "" {
		var err error

		c, err = config.Load(path)
		if err != nil {
			return c, err
		}
	}

	if err := c.ApplyEnv(); err != nil {
		return c, err
	}

	return c, c.Validate()
}

func buildSystem(c config.Config) (*system, error) {
	s := &system{
		memory: mem.NewStorageAdaptor(mem.NewStorage(c.Memory.SizeBytes)),
	}

	var scratchpad mem.MemoryAdaptor
	if c.LocalRAM.Enabled {
		s.scratchpad = mem.NewStorageAdaptor(mem.NewStorage(1 << 32))
		scratchpad = s.scratchpad
	}

	physical := &mem.RangeAdaptorMapper{}
	physical.AddRange(mem.AddressRange{High: c.Memory.SizeBytes}, s.memory)

	b, err := c.Builder(mem.MappedAdaptor{Mapper: physical}, scratchpad)
	if err != nil {
		return nil, err
	}

	s.comp, err = b.Build("Core")
	if err != nil {
		return nil, err
	}

	return s, nil
}

// identityMap builds a page table at the top of memory that maps the whole
// address space onto itself with level-1 entries, and turns the MMU on.
func (s *system) identityMap(ctx context.Context) error {
	m := s.comp.MMU()
	if m == nil {
		return mmucache.ErrNoMMU
	}

	p := m.PageSize()
	tableBytes := uint64(vm.EntrySize) << p.IndexWidth(1)

	capacity := s.memory.Storage().Capacity()
	if capacity < tableBytes {
		return fmt.Errorf("memory of %d bytes cannot hold a page table",
			capacity)
	}

	root := uint32(capacity - tableBytes)
	w := vm.NewTableWriter(s.memory, p, root)

	step := uint64(p.RegionMask(1)) + 1
	for addr := uint64(0); addr < 1<<32; addr += step {
		err := w.Map(ctx, uint32(addr), uint32(addr), 1, vm.PTECacheable)
		if err != nil {
			return err
		}
	}

	m.WriteContextTablePointer(w.Root())
	m.WriteControl(m.ReadControl() | mmu.CtrlE)

	return nil
}
