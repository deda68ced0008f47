package mmu

import (
	"math/bits"
)

// The fields of the MMU control register.
const (
	CtrlE         uint32 = 1 << 0
	CtrlNF        uint32 = 1 << 1
	CtrlST        uint32 = 1 << 14
	CtrlTD        uint32 = 1 << 15
	CtrlPSZShift         = 16
	CtrlDTLBShift        = 18
	CtrlITLBShift        = 21

	ctrlWritable = CtrlTD | CtrlNF | CtrlE
)

// The fields of the fault status register.
const (
	FSROW      uint32 = 1 << 0
	FSRFAV     uint32 = 1 << 1
	FSRFTShift        = 2
	FSRATShift        = 5
	FSRLShift         = 8
)

// The access types recorded in the fault status register. Accesses are
// always made in supervisor mode.
const (
	AccessTypeLoadData  uint32 = 1
	AccessTypeFetch     uint32 = 3
	AccessTypeStoreData uint32 = 5
)

func accessType(side Side, write bool) uint32 {
	switch {
	case write:
		return AccessTypeStoreData
	case side == InstructionSide:
		return AccessTypeFetch
	default:
		return AccessTypeLoadData
	}
}

// ReadControl returns the control register. The fields other than TD, NF
// and E describe the configuration and cannot change.
func (m *Comp) ReadControl() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()

	value := m.control |
		uint32(m.pageSize)<<CtrlPSZShift |
		uint32(bits.TrailingZeros(uint(m.itlb.Capacity())))<<CtrlITLBShift |
		uint32(bits.TrailingZeros(uint(m.dtlb.Capacity())))<<CtrlDTLBShift

	if m.itlb != m.dtlb {
		value |= CtrlST
	}

	return value
}

// WriteControl updates the TD, NF and E bits.
func (m *Comp) WriteControl(value uint32) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.control = value & ctrlWritable
}

// Enabled tells if translation is on.
func (m *Comp) Enabled() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.control&CtrlE != 0
}

// ReadContext returns the current context number.
func (m *Comp) ReadContext() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.context
}

// WriteContext switches to another context.
func (m *Comp) WriteContext(value uint32) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.context = value
}

// ReadContextTablePointer returns the address of the level 1 table.
func (m *Comp) ReadContextTablePointer() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.ctp
}

// WriteContextTablePointer sets the address of the level 1 table. The low 2
// bits are always 0.
func (m *Comp) WriteContextTablePointer(value uint32) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.ctp = value &^ 0x3
}

// ReadFaultStatus returns the fault status register. Reading clears the FAV
// and OW bits, so a later fault is not reported as an overwrite.
func (m *Comp) ReadFaultStatus() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()

	value := m.fsr
	m.fsr &^= FSRFAV | FSROW

	return value
}

// ReadFaultAddress returns the virtual address of the last fault.
func (m *Comp) ReadFaultAddress() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.far
}

// recordFault must be called with the lock held.
func (m *Comp) recordFault(f *PageTableFault, at uint32) {
	fsr := uint32(f.Level)<<FSRLShift |
		at<<FSRATShift |
		uint32(f.Type)<<FSRFTShift |
		FSRFAV

	if m.fsr&FSRFAV != 0 {
		fsr |= FSROW
	}

	m.fsr = fsr
	m.far = f.VAddr
}
