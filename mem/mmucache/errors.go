package mmucache

import (
	"errors"
	"fmt"
)

// ErrNoMMU is returned by MMU ASIs when no MMU is configured.
var ErrNoMMU = errors.New("no MMU configured")

// An UnsupportedASIError is returned for ASIs that are not implemented.
type UnsupportedASIError struct {
	ASI   uint8
	Write bool
}

func (e *UnsupportedASIError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}

	return fmt.Sprintf("unsupported ASI 0x%02x %s", e.ASI, op)
}
