package mmu

import (
	"fmt"
)

// FaultType is the FT field of the fault status register.
type FaultType uint32

// The fault types the MMU reports.
const (
	FaultNone             FaultType = 0
	FaultInvalidAddress   FaultType = 1
	FaultTranslationError FaultType = 4
	FaultAccessBusError   FaultType = 5
)

func (t FaultType) String() string {
	switch t {
	case FaultNone:
		return "none"
	case FaultInvalidAddress:
		return "invalid address"
	case FaultTranslationError:
		return "translation error"
	case FaultAccessBusError:
		return "access bus error"
	default:
		return fmt.Sprintf("FaultType(%d)", uint32(t))
	}
}

// A PageTableFault is returned when a translation cannot complete. The fault
// status and fault address registers hold the same information.
type PageTableFault struct {
	VAddr uint32
	Level int
	Type  FaultType

	// Entry is the table entry that ended the walk. It is 0 if the entry
	// could not be read.
	Entry uint32

	// Err is the memory error behind a bus fault.
	Err error
}

func (f *PageTableFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("page table fault at 0x%08x, level %d: %s: %v",
			f.VAddr, f.Level, f.Type, f.Err)
	}

	return fmt.Sprintf("page table fault at 0x%08x, level %d: %s, entry 0x%08x",
		f.VAddr, f.Level, f.Type, f.Entry)
}

func (f *PageTableFault) Unwrap() error {
	return f.Err
}

// A ConfigurationError reports an illegal MMU parameter found when building.
type ConfigurationError struct {
	Param  string
	Value  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid MMU configuration %s=%d: %s",
		e.Param, e.Value, e.Reason)
}
