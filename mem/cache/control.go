package cache

import (
	"sync"
)

// Kind tells apart the instruction and the data side of a cache pair.
type Kind int

// The two cache kinds.
const (
	InstructionCache Kind = iota
	DataCache
)

func (k Kind) String() string {
	if k == InstructionCache {
		return "icache"
	}

	return "dcache"
}

// Mode is the 2-bit cache state field of the control register.
type Mode uint8

// The cache modes. Both 00 and 10 disable the cache.
const (
	ModeDisabled  Mode = 0b00
	ModeFrozen    Mode = 0b01
	ModeDisabled2 Mode = 0b10
	ModeEnabled   Mode = 0b11
)

// IsEnabled tells if lookups are performed. Frozen caches still hit.
func (m Mode) IsEnabled() bool {
	return m&0b01 != 0
}

// IsFrozen tells if the cache keeps hitting but stops replacing lines.
func (m Mode) IsFrozen() bool {
	return m == ModeFrozen
}

// The fields of the cache control register.
const (
	CCRICSShift = 0
	CCRDCSShift = 2

	CCRIF uint32 = 1 << 4
	CCRDF uint32 = 1 << 5
	CCRDP uint32 = 1 << 14
	CCRIP uint32 = 1 << 15
	CCRIB uint32 = 1 << 16
	CCRFI uint32 = 1 << 21
	CCRFD uint32 = 1 << 22
	CCRDS uint32 = 1 << 23

	ccrWritable = 0xf | CCRIF | CCRDF | CCRIB | CCRDS
)

// A ControlRegister is the cache control register shared by the instruction
// and data caches of one processor.
type ControlRegister struct {
	lock  sync.Mutex
	value uint32
}

// NewControlRegister returns a register with both caches disabled.
func NewControlRegister() *ControlRegister {
	return &ControlRegister{}
}

// Read returns the current register value.
func (r *ControlRegister) Read() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.value
}

// Write updates the writable fields. The flush bits are not stored; they are
// returned so that the owner can start the flushes.
func (r *ControlRegister) Write(value uint32) (flushI, flushD bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	readOnly := r.value &^ ccrWritable
	r.value = readOnly | value&ccrWritable

	return value&CCRFI != 0, value&CCRFD != 0
}

func modeShift(kind Kind) uint {
	if kind == InstructionCache {
		return CCRICSShift
	}

	return CCRDCSShift
}

// Mode returns the mode of one cache.
func (r *ControlRegister) Mode(kind Kind) Mode {
	r.lock.Lock()
	defer r.lock.Unlock()

	return Mode(r.value >> modeShift(kind) & 0b11)
}

// SetMode changes the mode of one cache.
func (r *ControlRegister) SetMode(kind Kind, mode Mode) {
	r.lock.Lock()
	defer r.lock.Unlock()

	shift := modeShift(kind)
	r.value = r.value&^(0b11<<shift) | uint32(mode&0b11)<<shift
}

// BurstFetch tells if instruction burst fetch is enabled.
func (r *ControlRegister) BurstFetch() bool {
	return r.Read()&CCRIB != 0
}

// FlushPending tells if a flush of one cache is in progress.
func (r *ControlRegister) FlushPending(kind Kind) bool {
	return r.Read()&flushPendingBit(kind) != 0
}

func flushPendingBit(kind Kind) uint32 {
	if kind == InstructionCache {
		return CCRIP
	}

	return CCRDP
}

func (r *ControlRegister) setFlushPending(kind Kind, pending bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	bit := flushPendingBit(kind)
	if pending {
		r.value |= bit
	} else {
		r.value &^= bit
	}
}
