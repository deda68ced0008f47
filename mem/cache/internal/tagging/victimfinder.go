package tagging

import (
	"errors"
	"fmt"
)

// ErrReplacementStarvation is returned when every candidate line is locked.
var ErrReplacementStarvation = errors.New("all candidate lines are locked")

// Policy is the replacement policy. The values match the REPL field of the
// cache configuration register.
type Policy uint8

// The supported replacement policies.
const (
	DirectMapped Policy = iota
	LRU
	LRR
	Random
)

func (p Policy) String() string {
	switch p {
	case DirectMapped:
		return "direct"
	case LRU:
		return "lru"
	case LRR:
		return "lrr"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// A VictimFinder decides which set gives up its line when a refill needs
// room. All methods receive the lines found at one index, in set order.
type VictimFinder interface {
	// FindVictim returns the set whose line is replaced.
	FindVictim(lines []*Line) (int, error)

	// Visit updates the history after a hit in set.
	Visit(lines []*Line, set int)

	// Fill updates the history after a refill into set.
	Fill(lines []*Line, set int)
}

// NewVictimFinder creates the victim finder of a policy for a cache with
// numSets sets. The seed only matters for the random policy.
func NewVictimFinder(
	policy Policy,
	numSets int,
	seed uint64,
) (VictimFinder, error) {
	switch policy {
	case DirectMapped:
		return DirectMappedVictimFinder{}, nil
	case LRU:
		return NewLRUVictimFinder(numSets), nil
	case LRR:
		return LRRVictimFinder{}, nil
	case Random:
		return NewRandomVictimFinder(numSets, seed), nil
	default:
		return nil, fmt.Errorf("unknown replacement policy %d", policy)
	}
}

// DirectMappedVictimFinder always replaces set 0.
type DirectMappedVictimFinder struct{}

// FindVictim returns set 0 unless it is locked.
func (DirectMappedVictimFinder) FindVictim(lines []*Line) (int, error) {
	if lines[0].Lock {
		return 0, ErrReplacementStarvation
	}

	return 0, nil
}

// Visit does nothing.
func (DirectMappedVictimFinder) Visit(_ []*Line, _ int) {}

// Fill does nothing.
func (DirectMappedVictimFinder) Fill(_ []*Line, _ int) {}

// LRUVictimFinder keeps a saturating counter per line. The most recently
// used line holds MaxLRU and all other lines age towards 0.
type LRUVictimFinder struct {
	MaxLRU uint8
}

// NewLRUVictimFinder returns a newly constructed lru victim finder.
func NewLRUVictimFinder(numSets int) *LRUVictimFinder {
	return &LRUVictimFinder{MaxLRU: uint8(1<<numSets - 1)}
}

// FindVictim returns the unlocked line with the smallest counter. Ties go to
// the lowest set.
func (e *LRUVictimFinder) FindVictim(lines []*Line) (int, error) {
	victim := -1

	for i, l := range lines {
		if l.Lock {
			continue
		}

		if victim < 0 || l.LRU < lines[victim].LRU {
			victim = i
		}
	}

	if victim < 0 {
		return 0, ErrReplacementStarvation
	}

	return victim, nil
}

// Visit marks set as the most recently used one.
func (e *LRUVictimFinder) Visit(lines []*Line, set int) {
	for i, l := range lines {
		if i == set {
			l.LRU = e.MaxLRU
			continue
		}

		if l.LRU > 0 {
			l.LRU--
		}
	}
}

// Fill counts as a use of the refilled line.
func (e *LRUVictimFinder) Fill(lines []*Line, set int) {
	e.Visit(lines, set)
}

// LRRVictimFinder replaces the least recently replaced line of a 2-way
// cache.
type LRRVictimFinder struct{}

// FindVictim prefers the unlocked line whose LRR bit is clear.
func (LRRVictimFinder) FindVictim(lines []*Line) (int, error) {
	for i, l := range lines {
		if !l.Lock && !l.LRR {
			return i, nil
		}
	}

	for i, l := range lines {
		if !l.Lock {
			return i, nil
		}
	}

	return 0, ErrReplacementStarvation
}

// Visit does nothing. Hits do not change the replacement order.
func (LRRVictimFinder) Visit(_ []*Line, _ int) {}

// Fill marks set as the most recently replaced line.
func (LRRVictimFinder) Fill(lines []*Line, set int) {
	for i, l := range lines {
		l.LRR = i == set
	}
}

// RandomVictimFinder walks a modulo-N counter that advances on every call.
type RandomVictimFinder struct {
	numSets int
	counter int
}

// NewRandomVictimFinder creates a pseudo-random victim finder whose counter
// starts at seed modulo numSets.
func NewRandomVictimFinder(numSets int, seed uint64) *RandomVictimFinder {
	return &RandomVictimFinder{
		numSets: numSets,
		counter: int(seed % uint64(numSets)),
	}
}

// FindVictim returns the first unlocked set at or after the counter.
func (e *RandomVictimFinder) FindVictim(lines []*Line) (int, error) {
	start := e.counter
	e.counter = (e.counter + 1) % e.numSets

	for i := 0; i < e.numSets; i++ {
		set := (start + i) % e.numSets
		if !lines[set].Lock {
			return set, nil
		}
	}

	return 0, ErrReplacementStarvation
}

// Visit does nothing.
func (e *RandomVictimFinder) Visit(_ []*Line, _ int) {}

// Fill does nothing.
func (e *RandomVictimFinder) Fill(_ []*Line, _ int) {}
