package hooking

import (
	"log"
)

// A LogHook prints every access event it receives.
type LogHook struct {
	*log.Logger
}

// NewLogHook creates a LogHook that prints with logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func prints the event.
func (h *LogHook) Func(ctx HookCtx) {
	event, ok := ctx.Item.(AccessEvent)
	if !ok {
		return
	}

	name := ""
	if ctx.Domain != nil {
		name = ctx.Domain.Name()
	}

	if event.Err != nil {
		h.Printf("%s, %s, 0x%08x, %d, %s, error: %v",
			name, event.Kind, event.Addr, event.Length, event.Flags, event.Err)
		return
	}

	h.Printf("%s, %s, 0x%08x, %d, %s",
		name, event.Kind, event.Addr, event.Length, event.Flags)
}
