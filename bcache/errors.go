package bcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotHeld means a handle was used without holding its exclusive-use lock.
	ErrNotHeld = errors.New("bcache: exclusive-use lock not held")
	// ErrNoBuffers means every slot is referenced and nothing can be evicted.
	ErrNoBuffers = errors.New("bcache: no buffers")
	// ErrRefUnderflow means a reference count would drop below zero.
	ErrRefUnderflow = errors.New("bcache: reference count underflow")
	// ErrDevice wraps a driver failure.
	ErrDevice = errors.New("bcache: device transfer failed")
)

// FatalError is the panic value raised when a cache invariant is broken.
// The underlying sentinel is available through errors.Is / errors.Unwrap.
type FatalError struct {
	Op      string
	Dev     uint32
	BlockNo uint32
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s dev=%d block=%d: %v", e.Op, e.Dev, e.BlockNo, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
