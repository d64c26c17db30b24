package device

import (
	"context"
	"sync"

	"github.com/IvanBrykalov/bcache/bcache"
)

// Fault defines when a Faulty driver fails.
type Fault struct {
	FailReads  bool
	FailWrites bool
	// AfterOps lets this many transfers through before failing. -1 fails
	// nothing on count alone.
	AfterOps int64
	// Blocks fails every transfer of the listed block numbers.
	Blocks []uint32
	Err    error
}

// Faulty is a driver wrapper that can inject errors. Used to exercise the
// fatal device path.
type Faulty struct {
	next bcache.Driver

	mu    sync.Mutex
	fault Fault
	ops   int64
}

// NewFaulty wraps next with no fault armed.
func NewFaulty(next bcache.Driver) *Faulty {
	return &Faulty{next: next, fault: Fault{AfterOps: -1}}
}

// SetFault arms f and resets the transfer count.
func (f *Faulty) SetFault(fault Fault) {
	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	f.mu.Lock()
	f.fault = fault
	f.ops = 0
	f.mu.Unlock()
}

// Ops returns the transfers seen since the last SetFault.
func (f *Faulty) Ops() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops
}

// Transfer implements bcache.Driver.
func (f *Faulty) Transfer(ctx context.Context, dev, blockno uint32, data []byte, write bool) error {
	f.mu.Lock()
	fault := f.fault
	f.ops++
	n := f.ops
	f.mu.Unlock()

	if f.trips(fault, n, blockno, write) {
		return fault.Err
	}
	return f.next.Transfer(ctx, dev, blockno, data, write)
}

func (f *Faulty) trips(fault Fault, n int64, blockno uint32, write bool) bool {
	if fault.Err == nil {
		return false
	}
	if write && !fault.FailWrites || !write && !fault.FailReads {
		return false
	}
	for _, b := range fault.Blocks {
		if b == blockno {
			return true
		}
	}
	return fault.AfterOps >= 0 && n > fault.AfterOps
}
