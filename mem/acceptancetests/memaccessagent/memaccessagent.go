// Package memaccessagent checks a cache subsystem by issuing a large number of
// random reads and writes and comparing every read with the last written
// value.
package memaccessagent

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"

	"github.com/sarchlab/vcache/mem/mem"
)

// A Target is the data side of a memory subsystem.
type Target interface {
	DataRead(
		ctx context.Context,
		addr uint32,
		length uint32,
	) ([]byte, mem.DebugFlags, error)
	DataWrite(ctx context.Context, addr uint32, data []byte) (mem.DebugFlags, error)
}

// A MismatchError reports a read that did not return the last written value.
type MismatchError struct {
	Addr uint32
	Want uint32
	Got  uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("read 0x%08x: want 0x%08x, got 0x%08x",
		e.Addr, e.Want, e.Got)
}

// Result summarizes a run.
type Result struct {
	Reads      int
	Writes     int
	ReadHits   int
	ReadMisses int
	WriteHits  int
	TLBMisses  int
}

// A MemAccessAgent drives a Target with random word and byte accesses.
type MemAccessAgent struct {
	name        string
	target      Target
	baseAddress uint32
	maxAddress  uint32
	rng         *rand.Rand
	logger      *log.Logger

	WriteLeft     int
	ReadLeft      int
	KnownMemValue map[uint32]uint32

	knownAddrs []uint32
	result     Result
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Name returns the name of the agent.
func (a *MemAccessAgent) Name() string {
	return a.name
}

// Run issues all the remaining accesses. It stops at the first error or
// mismatch.
func (a *MemAccessAgent) Run(ctx context.Context) (Result, error) {
	for a.ReadLeft > 0 || a.WriteLeft > 0 {
		var err error

		if a.shouldRead() {
			err = a.doRead(ctx)
		} else {
			err = a.doWrite(ctx)
		}

		if err != nil {
			return a.result, err
		}
	}

	return a.result, nil
}

func (a *MemAccessAgent) shouldRead() bool {
	if len(a.knownAddrs) == 0 || a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rng.Float64() > 0.5
}

func (a *MemAccessAgent) doRead(ctx context.Context) error {
	addr := a.knownAddrs[a.rng.Intn(len(a.knownAddrs))]

	data, flags, err := a.target.DataRead(ctx, addr, 4)
	if err != nil {
		return fmt.Errorf("%s: read 0x%08x: %w", a.name, addr, err)
	}

	a.ReadLeft--
	a.result.Reads++
	a.count(flags)

	got := binary.BigEndian.Uint32(data)
	a.logger.Printf("%s, read, 0x%08X, 0x%08X, %s", a.name, addr, got, flags)

	if want := a.KnownMemValue[addr]; got != want {
		return &MismatchError{Addr: addr, Want: want, Got: got}
	}

	return nil
}

func (a *MemAccessAgent) randomWordAddress() uint32 {
	return a.baseAddress + uint32(a.rng.Int63n(int64(a.maxAddress/4)))*4
}

// doWrite writes a full word, or a single byte of a word that is already
// known.
func (a *MemAccessAgent) doWrite(ctx context.Context) error {
	if len(a.knownAddrs) > 0 && a.rng.Float64() < 0.25 {
		return a.doByteWrite(ctx)
	}

	addr := a.randomWordAddress()
	value := a.rng.Uint32()

	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, value)

	if err := a.write(ctx, addr, data); err != nil {
		return err
	}

	a.addKnownValue(addr, value)

	return nil
}

func (a *MemAccessAgent) doByteWrite(ctx context.Context) error {
	word := a.knownAddrs[a.rng.Intn(len(a.knownAddrs))]
	offset := uint32(a.rng.Intn(4))
	b := byte(a.rng.Intn(256))

	if err := a.write(ctx, word+offset, []byte{b}); err != nil {
		return err
	}

	shift := (3 - offset) * 8
	value := a.KnownMemValue[word]&^(0xff<<shift) | uint32(b)<<shift
	a.KnownMemValue[word] = value

	return nil
}

func (a *MemAccessAgent) write(ctx context.Context, addr uint32, data []byte) error {
	flags, err := a.target.DataWrite(ctx, addr, data)
	if err != nil {
		return fmt.Errorf("%s: write 0x%08x: %w", a.name, addr, err)
	}

	a.WriteLeft--
	a.result.Writes++
	a.count(flags)

	a.logger.Printf("%s, write, 0x%08X, %x, %s", a.name, addr, data, flags)

	return nil
}

func (a *MemAccessAgent) count(flags mem.DebugFlags) {
	if flags.Has(mem.ReadHit) {
		a.result.ReadHits++
	}

	if flags.Has(mem.ReadMiss) {
		a.result.ReadMisses++
	}

	if flags.Has(mem.WriteHit) {
		a.result.WriteHits++
	}

	if flags.Has(mem.TLBMiss) {
		a.result.TLBMisses++
	}
}

func (a *MemAccessAgent) addKnownValue(addr uint32, value uint32) {
	if _, exist := a.KnownMemValue[addr]; !exist {
		a.knownAddrs = append(a.knownAddrs, addr)
	}

	a.KnownMemValue[addr] = value
}
