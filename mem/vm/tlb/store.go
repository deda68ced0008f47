// Package tlb provides the translation lookaside buffer used by the MMU.
package tlb

import (
	"container/list"
	"fmt"
	"sync"
)

// An Entry caches the result of one table walk.
type Entry struct {
	VPN     uint32
	Context uint32
	PTE     uint32

	// Level is the table level the PTE was found at.
	Level int
}

// EvictionPolicy decides which entry leaves a full store.
type EvictionPolicy int

// The eviction policies.
const (
	EvictFIFO EvictionPolicy = iota
	EvictLRU
)

func (p EvictionPolicy) String() string {
	switch p {
	case EvictFIFO:
		return "fifo"
	case EvictLRU:
		return "lru"
	default:
		return fmt.Sprintf("EvictionPolicy(%d)", int(p))
	}
}

// ParseEvictionPolicy converts a policy name, as printed by String.
func ParseEvictionPolicy(name string) (EvictionPolicy, error) {
	switch name {
	case "fifo":
		return EvictFIFO, nil
	case "lru":
		return EvictLRU, nil
	default:
		return 0, fmt.Errorf("unknown eviction policy %q", name)
	}
}

// A Store holds TLB entries keyed by virtual page number. It is safe to share
// between an instruction and a data side.
type Store struct {
	lock sync.Mutex

	capacity int
	policy   EvictionPolicy

	// order runs from the next entry to evict to the last one inserted or
	// used.
	order   *list.List
	entries map[uint32]*list.Element
}

// NewStore creates a store that holds up to capacity entries.
func NewStore(capacity int, policy EvictionPolicy) *Store {
	if capacity <= 0 {
		panic("TLB capacity must be positive")
	}

	return &Store{
		capacity: capacity,
		policy:   policy,
		order:    list.New(),
		entries:  make(map[uint32]*list.Element),
	}
}

// Capacity returns the maximum number of entries.
func (s *Store) Capacity() int {
	return s.capacity
}

// Policy returns the eviction policy.
func (s *Store) Policy() EvictionPolicy {
	return s.policy
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.order.Len()
}

// Lookup returns the entry of a virtual page number. The caller checks the
// context.
func (s *Store) Lookup(vpn uint32) (Entry, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	elem, found := s.entries[vpn]
	if !found {
		return Entry{}, false
	}

	if s.policy == EvictLRU {
		s.order.MoveToBack(elem)
	}

	return elem.Value.(Entry), true
}

// Insert adds an entry. An entry with the same virtual page number is
// overwritten in place, which is how a context miss is refilled. Otherwise a
// full store evicts one entry, which is returned.
func (s *Store) Insert(e Entry) (evicted Entry, didEvict bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if elem, found := s.entries[e.VPN]; found {
		elem.Value = e

		if s.policy == EvictLRU {
			s.order.MoveToBack(elem)
		}

		return Entry{}, false
	}

	if s.order.Len() >= s.capacity {
		front := s.order.Front()
		evicted = s.order.Remove(front).(Entry)
		delete(s.entries, evicted.VPN)
		didEvict = true
	}

	s.entries[e.VPN] = s.order.PushBack(e)

	return evicted, didEvict
}

// Remove drops the entry of a virtual page number.
func (s *Store) Remove(vpn uint32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	elem, found := s.entries[vpn]
	if !found {
		return false
	}

	s.order.Remove(elem)
	delete(s.entries, vpn)

	return true
}

// Flush drops all entries.
func (s *Store) Flush() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.order.Init()
	s.entries = make(map[uint32]*list.Element)
}

// Entries returns all entries, starting with the next one to be evicted.
func (s *Store) Entries() []Entry {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries := make([]Entry, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, elem.Value.(Entry))
	}

	return entries
}
