package cache

import (
	"math/bits"
)

// The fields of a diagnostic tag word.
const (
	TagValidMask uint32 = 0xff
	TagLockBit   uint32 = 1 << 8
	TagLRRBit    uint32 = 1 << 9
	TagATagShift        = 10
	tagATagMask  uint32 = 1<<22 - 1
)

// The fields of the cache configuration register.
const (
	ConfigCL          uint32 = 1 << 31
	ConfigREPLShift          = 28
	ConfigSN          uint32 = 1 << 27
	ConfigSETSShift          = 24
	ConfigSSIZEShift         = 20
	ConfigLR          uint32 = 1 << 19
	ConfigLSIZEShift         = 16
	ConfigLRSIZEShift        = 12
	ConfigLRSTRShift         = 4
	ConfigM           uint32 = 1 << 3
)

func (c *Comp) checkCoordinate(set, line int) error {
	if set < 0 || set >= c.numSets || line < 0 || line >= c.linesPerSet {
		return ErrOutOfRange
	}

	return nil
}

// ReadTag returns the tag word of one line, packed as atag[31:10], lrr[9],
// lock[8] and valid[7:0].
func (c *Comp) ReadTag(set, line int) (uint32, error) {
	if err := c.checkCoordinate(set, line); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	l := &c.sets[set].Lines[line]
	value := (l.Tag&tagATagMask)<<TagATagShift | uint32(l.Valid)

	if l.LRR {
		value |= TagLRRBit
	}

	if l.Lock {
		value |= TagLockBit
	}

	return value, nil
}

// WriteTag overwrites the tag word of one line. The lock bit is only taken if
// line locking is enabled and the line is not in the last set.
func (c *Comp) WriteTag(set, line int, value uint32) error {
	if err := c.checkCoordinate(set, line); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	l := &c.sets[set].Lines[line]
	l.Tag = value >> TagATagShift & tagATagMask
	l.Valid = uint8(value&TagValidMask) & c.validMask()
	l.LRR = value&TagLRRBit != 0

	if c.lockEnabled && set != c.numSets-1 {
		l.Lock = value&TagLockBit != 0
	}

	return nil
}

func (c *Comp) validMask() uint8 {
	return uint8(1<<c.wordsPerLine - 1)
}

// ReadEntry returns one data word of a line.
func (c *Comp) ReadEntry(set, line, word int) (uint32, error) {
	if err := c.checkCoordinate(set, line); err != nil {
		return 0, err
	}

	if word < 0 || word >= c.wordsPerLine {
		return 0, ErrOutOfRange
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.sets[set].Lines[line].Word(word), nil
}

// WriteEntry overwrites one data word of a line. Valid bits are untouched.
func (c *Comp) WriteEntry(set, line, word int, value uint32) error {
	if err := c.checkCoordinate(set, line); err != nil {
		return err
	}

	if word < 0 || word >= c.wordsPerLine {
		return ErrOutOfRange
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.sets[set].Lines[line].SetWord(word, value)

	return nil
}

// ReadConfigReg packs the static parameters of the cache for software
// discovery.
func (c *Comp) ReadConfigReg() uint32 {
	value := uint32(c.policy)<<ConfigREPLShift |
		uint32(c.numSets-1)<<ConfigSETSShift |
		uint32(bits.TrailingZeros(uint(c.setSizeKB)))<<ConfigSSIZEShift |
		uint32(bits.TrailingZeros(uint(c.wordsPerLine)))<<ConfigLSIZEShift

	if c.lockEnabled {
		value |= ConfigCL
	}

	if c.snooping {
		value |= ConfigSN
	}

	if c.localRAM.Enabled {
		value |= ConfigLR
		value |= uint32(bits.Len(uint(c.localRAM.SizeKB))-1) << ConfigLRSIZEShift
		value |= (c.localRAM.Start >> 24) << ConfigLRSTRShift
	}

	if c.mmuPresent {
		value |= ConfigM
	}

	return value
}

// SplitDiagnosticAddress finds the coordinates a diagnostic ASI address
// selects. The line index comes from the index field, the set from the two
// bits above it and the word from the offset field.
func (c *Comp) SplitDiagnosticAddress(addr uint32) (set, line, word int) {
	line = int(addr >> c.offsetBits & (1<<c.idxBits - 1))
	set = int(addr >> (c.offsetBits + c.idxBits) & 0x3)
	word = int(addr >> 2 & uint32(c.wordsPerLine-1))

	return set, line, word
}
