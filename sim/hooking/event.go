package hooking

import (
	"github.com/sarchlab/vcache/mem/mem"
)

// AccessKind names what a component was asked to do.
type AccessKind string

// The kinds of accesses that caches and MMUs report.
const (
	AccessRead      AccessKind = "read"
	AccessWrite     AccessKind = "write"
	AccessFlush     AccessKind = "flush"
	AccessSnoop     AccessKind = "snoop"
	AccessTranslate AccessKind = "translate"
	AccessFault     AccessKind = "fault"
)

// An AccessEvent is the Item of the hooks invoked by caches and MMUs.
type AccessEvent struct {
	Kind   AccessKind
	Addr   uint32
	Length uint32

	// Result holds the translated address of a translation.
	Result uint32
	Flags  mem.DebugFlags
	Err    error
}
