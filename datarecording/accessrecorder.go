package datarecording

import (
	"sync/atomic"

	"github.com/sarchlab/vcache/sim/hooking"
)

// AccessTableName is the table that holds one row per access event.
const AccessTableName = "access"

// An AccessRecord is one access reported by a cache or an MMU.
type AccessRecord struct {
	Seq       uint64
	Component string
	Kind      string
	Addr      uint32
	Length    uint32
	Result    uint32
	Flags     uint32
	FlagNames string
	Error     string
}

// An AccessRecorder is a hook that stores every access event it receives.
type AccessRecorder struct {
	recorder DataRecorder
	seq      atomic.Uint64
}

// NewAccessRecorder creates the access table in the recorder.
func NewAccessRecorder(recorder DataRecorder) *AccessRecorder {
	recorder.CreateTable(AccessTableName, AccessRecord{})

	return &AccessRecorder{recorder: recorder}
}

// Func stores the event, if it is an access event.
func (r *AccessRecorder) Func(ctx hooking.HookCtx) {
	event, ok := ctx.Item.(hooking.AccessEvent)
	if !ok {
		return
	}

	rec := AccessRecord{
		Kind:      string(event.Kind),
		Addr:      event.Addr,
		Length:    event.Length,
		Result:    event.Result,
		Flags:     uint32(event.Flags),
		FlagNames: event.Flags.String(),
	}

	if ctx.Domain != nil {
		rec.Component = ctx.Domain.Name()
	}

	if event.Err != nil {
		rec.Error = event.Err.Error()
	}

	rec.Seq = r.seq.Add(1)
	r.recorder.InsertData(AccessTableName, rec)
}
