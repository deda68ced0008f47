package hooking

import (
	"sort"
	"sync"

	"github.com/sarchlab/vcache/mem/mem"
)

// Stats summarizes the events that one component reported.
type Stats struct {
	Reads       uint64 `json:"reads"`
	Writes      uint64 `json:"writes"`
	ReadHits    uint64 `json:"read_hits"`
	ReadMisses  uint64 `json:"read_misses"`
	WriteHits   uint64 `json:"write_hits"`
	WriteMisses uint64 `json:"write_misses"`
	FrozenMiss  uint64 `json:"frozen_misses"`
	Bypasses    uint64 `json:"bypasses"`
	Scratchpad  uint64 `json:"scratchpad"`
	TLBHits     uint64 `json:"tlb_hits"`
	TLBMisses   uint64 `json:"tlb_misses"`
	Flushes     uint64 `json:"flushes"`
	Snoops      uint64 `json:"snoops"`
	Faults      uint64 `json:"faults"`
	Errors      uint64 `json:"errors"`
}

// ReadHitRate returns the fraction of cached reads that hit.
func (s Stats) ReadHitRate() float64 {
	total := s.ReadHits + s.ReadMisses
	if total == 0 {
		return 0
	}

	return float64(s.ReadHits) / float64(total)
}

// CountingHook counts access events per component.
type CountingHook struct {
	lock  sync.Mutex
	stats map[string]*Stats
}

// NewCountingHook creates a new CountingHook.
func NewCountingHook() *CountingHook {
	return &CountingHook{stats: make(map[string]*Stats)}
}

// Func counts the event.
func (h *CountingHook) Func(ctx HookCtx) {
	event, ok := ctx.Item.(AccessEvent)
	if !ok {
		return
	}

	name := ""
	if ctx.Domain != nil {
		name = ctx.Domain.Name()
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	s, found := h.stats[name]
	if !found {
		s = &Stats{}
		h.stats[name] = s
	}

	count(s, event)
}

func count(s *Stats, event AccessEvent) {
	if event.Err != nil {
		s.Errors++
	}

	switch event.Kind {
	case AccessRead:
		s.Reads++
	case AccessWrite:
		s.Writes++
	case AccessFlush:
		s.Flushes++
	case AccessSnoop:
		s.Snoops++
	case AccessFault:
		s.Faults++
	}

	f := event.Flags
	counters := []struct {
		flag    mem.DebugFlags
		counter *uint64
	}{
		{mem.ReadHit, &s.ReadHits},
		{mem.ReadMiss, &s.ReadMisses},
		{mem.WriteHit, &s.WriteHits},
		{mem.WriteMiss, &s.WriteMisses},
		{mem.FrozenMiss, &s.FrozenMiss},
		{mem.Bypass, &s.Bypasses},
		{mem.Scratchpad, &s.Scratchpad},
		{mem.TLBHit, &s.TLBHits},
		{mem.TLBMiss, &s.TLBMisses},
	}

	for _, c := range counters {
		if f.Has(c.flag) {
			*c.counter++
		}
	}
}

// Stats returns a copy of the statistics of one component.
func (h *CountingHook) Stats(name string) Stats {
	h.lock.Lock()
	defer h.lock.Unlock()

	s, found := h.stats[name]
	if !found {
		return Stats{}
	}

	return *s
}

// Names returns the sorted names of the components that reported events.
func (h *CountingHook) Names() []string {
	h.lock.Lock()
	defer h.lock.Unlock()

	names := make([]string, 0, len(h.stats))
	for n := range h.stats {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
