package bcache

import "github.com/IvanBrykalov/bcache/internal/lock"

// nilSlot terminates a bucket list.
const nilSlot = -1

// slot is one entry of the fixed pool. Buckets link slots by index, so the
// pool never moves and a slot's address is stable for the cache's lifetime.
type slot struct {
	// ---- guarded by the home bucket lock (identity also by the arbiter) ----
	dev      uint32
	blockno  uint32
	assigned bool   // false until first bound, and again after Invalidate
	ref      int32  // holders + pins
	lastUsed uint64 // tick at which ref last dropped to zero
	bucket   int    // bucket this slot is linked into
	next     int32  // next slot index in the bucket list, or nilSlot

	// ---- guarded by lock (the exclusive-use lock) ----
	valid bool
	data  []byte

	lock lock.SleepLock
}

// matches reports whether s currently carries the identity (dev, blockno).
// Caller holds the slot's bucket lock or the arbiter.
func (s *slot) matches(dev, blockno uint32) bool {
	return s.assigned && s.dev == dev && s.blockno == blockno
}

// Buf is a caller's handle on an acquired slot. It is valid from Acquire
// until Release; after Release it may only be passed to Unpin.
type Buf struct {
	c     *Cache
	s     *slot
	owner lock.Owner
}

// Dev returns the device number of the block.
func (b *Buf) Dev() uint32 { return b.s.dev }

// BlockNo returns the block number.
func (b *Buf) BlockNo() uint32 { return b.s.blockno }

// Valid reports whether the content reflects the on-disk block.
// The caller must hold b.
func (b *Buf) Valid() bool {
	b.c.mustHold("valid", b)
	return b.s.valid
}

// Data returns the block content without filling it from the device.
// The caller must hold b; the slice must not be retained after Release.
func (b *Buf) Data() []byte {
	b.c.mustHold("data", b)
	return b.s.data
}
