// Package lock provides the two lock classes used by the block cache: short
// non-sleeping spin locks for metadata and sleeping locks that may be held
// across device I/O.
package lock

import (
	"runtime"
	"sync/atomic"

	"github.com/IvanBrykalov/bcache/internal/util"
)

// spinsBeforeYield bounds busy-waiting before the goroutine yields its P.
// Critical sections guarded by a SpinLock are a handful of pointer and
// counter updates, so a short spin almost always wins.
const spinsBeforeYield = 64

// SpinLock is a test-and-test-and-set lock for short critical sections.
// It must never be held across I/O or a SleepLock acquisition.
// The zero value is an unlocked lock.
type SpinLock struct {
	held atomic.Bool
	_    [util.CacheLineSize - 4]byte
}

// Lock spins until the lock is acquired.
func (l *SpinLock) Lock() {
	for spins := 0; ; spins++ {
		if !l.held.Load() && l.held.CompareAndSwap(false, true) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return !l.held.Load() && l.held.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking an unlocked SpinLock panics.
func (l *SpinLock) Unlock() {
	if !l.held.CompareAndSwap(true, false) {
		panic("lock: unlock of unlocked SpinLock")
	}
}

// Locked reports whether somebody holds the lock. Only meaningful for
// assertions made by the holder itself.
func (l *SpinLock) Locked() bool { return l.held.Load() }
