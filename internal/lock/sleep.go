package lock

import "sync"

// Owner identifies the holder of a SleepLock. Zero means "nobody".
type Owner uint64

// SleepLock is a blocking lock that parks waiters on a condition variable
// instead of spinning, so it may be held across device transfers.
// It records its holder so callers can assert ownership.
//
// A SleepLock must be initialised with Init before use.
type SleepLock struct {
	mu     sync.Mutex
	cond   sync.Cond
	locked bool
	holder Owner
	name   string
}

// Init prepares l for use. It must be called once, before any concurrent access.
func (l *SleepLock) Init(name string) {
	l.cond.L = &l.mu
	l.name = name
}

// Name returns the name given to Init.
func (l *SleepLock) Name() string { return l.name }

// Lock blocks until the lock is free and records o as its holder.
func (l *SleepLock) Lock(o Owner) {
	if o == 0 {
		panic("lock: SleepLock acquired by zero owner")
	}
	l.mu.Lock()
	for l.locked {
		l.cond.Wait()
	}
	l.locked = true
	l.holder = o
	l.mu.Unlock()
}

// Unlock releases the lock and wakes one waiter.
// It panics if o is not the current holder.
func (l *SleepLock) Unlock(o Owner) {
	l.mu.Lock()
	if !l.locked || l.holder != o {
		l.mu.Unlock()
		panic("lock: SleepLock " + l.name + " released by non-holder")
	}
	l.locked = false
	l.holder = 0
	l.mu.Unlock()
	l.cond.Signal()
}

// Holding reports whether o currently holds the lock.
func (l *SleepLock) Holding(o Owner) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked && o != 0 && l.holder == o
}
