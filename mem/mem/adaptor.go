// Package mem defines the memory-side interfaces shared by the cache engine
// and the MMU, together with a simple backing storage.
package mem

import (
	"context"
)

// A MemoryAdaptor is the collaborator that caches and the MMU use to reach
// the memory below them. Calls may block while the surrounding system models
// bus latency. The context is the only cancellation point.
type MemoryAdaptor interface {
	// Read returns length bytes starting at the physical address addr.
	Read(ctx context.Context, addr uint32, length uint32) ([]byte, error)

	// Write stores data starting at the physical address addr.
	Write(ctx context.Context, addr uint32, data []byte) error
}

// AdaptorFuncs turns a pair of functions into a MemoryAdaptor.
type AdaptorFuncs struct {
	ReadFunc  func(ctx context.Context, addr uint32, length uint32) ([]byte, error)
	WriteFunc func(ctx context.Context, addr uint32, data []byte) error
}

// Read calls ReadFunc.
func (f AdaptorFuncs) Read(
	ctx context.Context,
	addr uint32,
	length uint32,
) ([]byte, error) {
	return f.ReadFunc(ctx, addr, length)
}

// Write calls WriteFunc.
func (f AdaptorFuncs) Write(ctx context.Context, addr uint32, data []byte) error {
	return f.WriteFunc(ctx, addr, data)
}
