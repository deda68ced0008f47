package mem

import (
	"context"
	"sync"
	"sync/atomic"
)

// A Storage keeps the contents of the simulated physical memory.
//
// The storage manages its space in units. Units that are never touched by
// Read or Write are never allocated, so a storage can model a full 4 GiB
// address space.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) createOrGetUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if address+length > s.capacity {
		return nil, ErrBeyondCapacity
	}

	s.Lock()
	defer s.Unlock()

	res := make([]byte, length)
	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		unit := s.createOrGetUnit(currAddr)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		copy(res[dataOffset:dataOffset+lenToRead],
			unit[inUnitAddr:inUnitAddr+lenToRead])

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write copies data into the storage starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	length := uint64(len(data))
	if address+length > s.capacity {
		return ErrBeyondCapacity
	}

	s.Lock()
	defer s.Unlock()

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		unit := s.createOrGetUnit(currAddr)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToWrite := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])

		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// A StorageAdaptor serves a Storage as a MemoryAdaptor and counts the
// accesses it receives.
type StorageAdaptor struct {
	storage *Storage

	numReads  atomic.Uint64
	numWrites atomic.Uint64
}

// NewStorageAdaptor wraps a storage.
func NewStorageAdaptor(storage *Storage) *StorageAdaptor {
	return &StorageAdaptor{storage: storage}
}

// Storage returns the wrapped storage.
func (a *StorageAdaptor) Storage() *Storage {
	return a.storage
}

// NumReads returns how many reads the adaptor has served.
func (a *StorageAdaptor) NumReads() uint64 {
	return a.numReads.Load()
}

// NumWrites returns how many writes the adaptor has served.
func (a *StorageAdaptor) NumWrites() uint64 {
	return a.numWrites.Load()
}

// Read reads from the storage.
func (a *StorageAdaptor) Read(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := a.storage.Read(uint64(addr), uint64(length))
	if err != nil {
		return nil, &AccessError{Addr: addr, Length: length, Err: err}
	}

	a.numReads.Add(1)

	return data, nil
}

// Write writes into the storage.
func (a *StorageAdaptor) Write(
	ctx context.Context,
	addr uint32,
	data []byte,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := a.storage.Write(uint64(addr), data)
	if err != nil {
		return &AccessError{
			Addr:   addr,
			Length: uint32(len(data)),
			Write:  true,
			Err:    err,
		}
	}

	a.numWrites.Add(1)

	return nil
}
