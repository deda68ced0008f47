package mmucache

import (
	"context"
	"encoding/binary"

	"github.com/sarchlab/vcache/mem/cache"
)

// The supported address space identifiers.
const (
	ASIForceMiss   uint8 = 0x01
	ASICacheRegs   uint8 = 0x02
	ASIICacheTags  uint8 = 0x0c
	ASIICacheData  uint8 = 0x0d
	ASIDCacheTags  uint8 = 0x0e
	ASIDCacheData  uint8 = 0x0f
	ASIFlushICache uint8 = 0x10
	ASIFlushDCache uint8 = 0x11
	ASIFlushMMU    uint8 = 0x18
	ASIMMURegs     uint8 = 0x19
	ASIMMUBypass   uint8 = 0x1c
)

// Register offsets within ASICacheRegs.
const (
	CacheRegCCR      uint32 = 0x00
	CacheRegICConfig uint32 = 0x08
	CacheRegDCConfig uint32 = 0x0c
)

// Register offsets within ASIMMURegs.
const (
	MMURegControl             uint32 = 0x000
	MMURegContextTablePointer uint32 = 0x100
	MMURegContext             uint32 = 0x200
	MMURegFaultStatus         uint32 = 0x300
	MMURegFaultAddress        uint32 = 0x400
)

// ASIRead performs a 32-bit alternate space load.
func (c *Comp) ASIRead(ctx context.Context, asi uint8, addr uint32) (uint32, error) {
	switch asi {
	case ASIForceMiss:
		data, _, err := c.dcache.ReadForceMiss(ctx, addr, 4)
		if err != nil {
			return 0, err
		}

		return binary.BigEndian.Uint32(data), nil
	case ASICacheRegs:
		return c.readCacheReg(addr), nil
	case ASIICacheTags:
		return readTag(c.icache, addr)
	case ASIICacheData:
		return readEntry(c.icache, addr)
	case ASIDCacheTags:
		return readTag(c.dcache, addr)
	case ASIDCacheData:
		return readEntry(c.dcache, addr)
	case ASIMMURegs:
		return c.readMMUReg(addr)
	case ASIMMUBypass:
		data, err := c.physical.Read(ctx, addr, 4)
		if err != nil {
			return 0, err
		}

		return binary.BigEndian.Uint32(data), nil
	default:
		return 0, &UnsupportedASIError{ASI: asi}
	}
}

// ASIWrite performs a 32-bit alternate space store.
func (c *Comp) ASIWrite(
	ctx context.Context,
	asi uint8,
	addr uint32,
	value uint32,
) error {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, value)

	switch asi {
	case ASIForceMiss:
		_, err := c.dcache.Write(ctx, addr, data)
		return err
	case ASICacheRegs:
		if addr == CacheRegCCR {
			return c.WriteCCR(ctx, value)
		}

		return nil
	case ASIICacheTags:
		return writeTag(c.icache, addr, value)
	case ASIICacheData:
		return writeEntry(c.icache, addr, value)
	case ASIDCacheTags:
		return writeTag(c.dcache, addr, value)
	case ASIDCacheData:
		return writeEntry(c.dcache, addr, value)
	case ASIFlushICache:
		return c.icache.Flush(ctx)
	case ASIFlushDCache:
		return c.dcache.Flush(ctx)
	case ASIFlushMMU:
		if c.mmu == nil {
			return ErrNoMMU
		}

		c.mmu.FlushTLB()

		return nil
	case ASIMMURegs:
		return c.writeMMUReg(addr, value)
	case ASIMMUBypass:
		return c.physical.Write(ctx, addr, data)
	default:
		return &UnsupportedASIError{ASI: asi, Write: true}
	}
}

func (c *Comp) readCacheReg(addr uint32) uint32 {
	switch addr & 0xff {
	case CacheRegICConfig:
		return c.icache.ReadConfigReg()
	case CacheRegDCConfig:
		return c.dcache.ReadConfigReg()
	default:
		return c.ccr.Read()
	}
}

func readTag(cc *cache.Comp, addr uint32) (uint32, error) {
	set, line, _ := cc.SplitDiagnosticAddress(addr)
	return cc.ReadTag(set, line)
}

func writeTag(cc *cache.Comp, addr, value uint32) error {
	set, line, _ := cc.SplitDiagnosticAddress(addr)
	return cc.WriteTag(set, line, value)
}

func readEntry(cc *cache.Comp, addr uint32) (uint32, error) {
	set, line, word := cc.SplitDiagnosticAddress(addr)
	return cc.ReadEntry(set, line, word)
}

func writeEntry(cc *cache.Comp, addr, value uint32) error {
	set, line, word := cc.SplitDiagnosticAddress(addr)
	return cc.WriteEntry(set, line, word, value)
}

func (c *Comp) readMMUReg(addr uint32) (uint32, error) {
	if c.mmu == nil {
		return 0, ErrNoMMU
	}

	switch addr & 0xf00 {
	case MMURegControl:
		return c.mmu.ReadControl(), nil
	case MMURegContextTablePointer:
		return c.mmu.ReadContextTablePointer(), nil
	case MMURegContext:
		return c.mmu.ReadContext(), nil
	case MMURegFaultStatus:
		return c.mmu.ReadFaultStatus(), nil
	case MMURegFaultAddress:
		return c.mmu.ReadFaultAddress(), nil
	default:
		return 0, &UnsupportedASIError{ASI: ASIMMURegs}
	}
}

func (c *Comp) writeMMUReg(addr, value uint32) error {
	if c.mmu == nil {
		return ErrNoMMU
	}

	switch addr & 0xf00 {
	case MMURegControl:
		c.mmu.WriteControl(value)
	case MMURegContextTablePointer:
		c.mmu.WriteContextTablePointer(value)
	case MMURegContext:
		c.mmu.WriteContext(value)
	case MMURegFaultStatus, MMURegFaultAddress:
	default:
		return &UnsupportedASIError{ASI: ASIMMURegs, Write: true}
	}

	return nil
}
