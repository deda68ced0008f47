package mem

import (
	"context"
)

// AddressMapper helps a cache or an MMU find the adaptor that holds the data
// at a certain physical address.
type AddressMapper interface {
	Find(address uint32) MemoryAdaptor
}

// An AddressRange is a half-open physical address range [Low, High).
type AddressRange struct {
	Low  uint64
	High uint64
}

// Contains checks if addr is in the range.
func (r AddressRange) Contains(addr uint32) bool {
	a := uint64(addr)
	return a >= r.Low && a < r.High
}

// RangeAdaptorMapper routes address ranges to dedicated adaptors and all
// other addresses to a default one.
type RangeAdaptorMapper struct {
	Ranges   []AddressRange
	Adaptors []MemoryAdaptor
	Default  MemoryAdaptor
}

// AddRange maps an address range to an adaptor.
func (f *RangeAdaptorMapper) AddRange(r AddressRange, a MemoryAdaptor) {
	f.Ranges = append(f.Ranges, r)
	f.Adaptors = append(f.Adaptors, a)
}

// Find returns the adaptor mapped at address. It returns nil if no range
// matches and no default is set.
func (f *RangeAdaptorMapper) Find(address uint32) MemoryAdaptor {
	for i, r := range f.Ranges {
		if r.Contains(address) {
			return f.Adaptors[i]
		}
	}

	return f.Default
}

// MappedAdaptor is a MemoryAdaptor that forwards every access to the adaptor
// the mapper finds for its address.
type MappedAdaptor struct {
	Mapper AddressMapper
}

// Read forwards the read.
func (m MappedAdaptor) Read(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, error) {
	a := m.Mapper.Find(addr)
	if a == nil {
		return nil, &AccessError{Addr: addr, Length: length, Err: ErrUnmapped}
	}

	return a.Read(ctx, addr, length)
}

// Write forwards the write.
func (m MappedAdaptor) Write(ctx context.Context, addr uint32, data []byte) error {
	a := m.Mapper.Find(addr)
	if a == nil {
		return &AccessError{
			Addr:   addr,
			Length: uint32(len(data)),
			Write:  true,
			Err:    ErrUnmapped,
		}
	}

	return a.Write(ctx, addr, data)
}
