package bcache

import (
	"github.com/IvanBrykalov/bcache/internal/lock"
	"github.com/IvanBrykalov/bcache/internal/util"
)

// bucket is one partition of the slot pool: a list of slot indices and the
// lock that guards the list and the metadata of every slot on it.
type bucket struct {
	// ---- guarded by mu ----
	mu   lock.SpinLock
	head int32 // first slot index, or nilSlot

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	fastHits    util.PaddedAtomicUint64
	arbiterHits util.PaddedAtomicUint64
	misses      util.PaddedAtomicUint64
	evicts      util.PaddedAtomicUint64
}

// -------------------- list helpers (mu or arbiter held) --------------------

// find returns the index of the slot carrying (dev, blockno), or nilSlot.
func (c *Cache) find(bk *bucket, dev, blockno uint32) int32 {
	for i := bk.head; i != nilSlot; i = c.slots[i].next {
		if c.slots[i].matches(dev, blockno) {
			return i
		}
	}
	return nilSlot
}

// push links slot i at the head of bk. Caller holds bk.mu.
func (c *Cache) push(bk *bucket, bi int, i int32) {
	s := &c.slots[i]
	s.next = bk.head
	s.bucket = bi
	bk.head = i
}

// unlink removes slot i from bk. Caller holds bk.mu.
func (c *Cache) unlink(bk *bucket, i int32) {
	if bk.head == i {
		bk.head = c.slots[i].next
		c.slots[i].next = nilSlot
		return
	}
	for p := bk.head; p != nilSlot; p = c.slots[p].next {
		if c.slots[p].next == i {
			c.slots[p].next = c.slots[i].next
			c.slots[i].next = nilSlot
			return
		}
	}
	panic("bcache: unlink of slot not in bucket")
}
