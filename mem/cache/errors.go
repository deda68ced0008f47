package cache

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vcache/mem/cache/internal/tagging"
)

// ErrReplacementStarvation is returned when a refill finds every candidate
// line locked.
var ErrReplacementStarvation = tagging.ErrReplacementStarvation

// ErrWriteNotAllowed is returned when writing through an instruction cache.
var ErrWriteNotAllowed = errors.New("cache does not accept writes")

// ErrInvalidAccess is returned for unsupported lengths or misaligned
// addresses.
var ErrInvalidAccess = errors.New("invalid access")

// ErrOutOfRange is returned when a diagnostic access names a set, line or
// word that does not exist.
var ErrOutOfRange = errors.New("diagnostic coordinate out of range")

// A ConfigurationError reports an illegal parameter combination found when
// building a cache.
type ConfigurationError struct {
	Param  string
	Value  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid cache configuration %s=%d: %s",
		e.Param, e.Value, e.Reason)
}
