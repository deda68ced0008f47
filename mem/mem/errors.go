package mem

import (
	"errors"
	"fmt"
)

// ErrBeyondCapacity is returned when an access reaches past the end of a
// storage.
var ErrBeyondCapacity = errors.New("access beyond the storage capacity")

// ErrUnmapped is returned when no adaptor is mapped at an address.
var ErrUnmapped = errors.New("address is not mapped")

// An AccessError reports a failed access on the memory side.
type AccessError struct {
	Addr   uint32
	Length uint32
	Write  bool
	Err    error
}

func (e *AccessError) Error() string {
	kind := "read"
	if e.Write {
		kind = "write"
	}

	return fmt.Sprintf("memory %s of %d bytes at 0x%08x: %v",
		kind, e.Length, e.Addr, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
