package bcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/IvanBrykalov/bcache/internal/lock"
	"github.com/IvanBrykalov/bcache/internal/util"
	"github.com/IvanBrykalov/bcache/policy"
	"github.com/IvanBrykalov/bcache/policy/lru"
)

// Cache is a fixed pool of block slots indexed by hash buckets.
// All methods are safe for concurrent use by multiple goroutines.
//
// A Cache is created once with New and shared by pointer; there is no
// teardown path.
type Cache struct {
	slots   []slot
	buckets []bucket

	// arbiter serialises cross-bucket work: the miss re-check, the
	// eviction scan and slot relocation.
	arbiter lock.SpinLock

	owners util.PaddedAtomicUint64 // source of exclusive-use lock owner tokens
	reads  util.PaddedAtomicUint64
	writes util.PaddedAtomicUint64

	opt   Options
	clock Clock
	pol   policy.Policy
	log   *slog.Logger
}

// New constructs a cache with the provided Options.
// It runs single-threaded: every lock is created and every slot is linked
// into bucket 0 before the cache is returned.
func New(opt Options) *Cache {
	if opt.Driver == nil {
		panic("bcache: Driver is required")
	}
	if opt.Slots < 0 || opt.Buckets < 0 || opt.BlockSize < 0 {
		panic("bcache: Slots, Buckets and BlockSize must be >= 0")
	}
	if opt.Slots == 0 {
		opt.Slots = DefaultSlots
	}
	if opt.Buckets == 0 {
		opt.Buckets = DefaultBuckets
	}
	if opt.BlockSize == 0 {
		opt.BlockSize = DefaultBlockSize
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	c := &Cache{
		slots:   make([]slot, opt.Slots),
		buckets: make([]bucket, opt.Buckets),
		opt:     opt,
		clock:   opt.Clock,
		pol:     opt.Policy,
		log:     opt.Logger,
	}
	if c.clock == nil {
		c.clock = newTickClock(opt.TickInterval)
	}
	if c.pol == nil {
		c.pol = lru.New()
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for i := range c.buckets {
		c.buckets[i].head = nilSlot
	}

	// One arena backs every slot's content.
	arena := make([]byte, opt.Slots*opt.BlockSize)
	for i := len(c.slots) - 1; i >= 0; i-- {
		s := &c.slots[i]
		s.data = arena[i*opt.BlockSize : (i+1)*opt.BlockSize : (i+1)*opt.BlockSize]
		s.lock.Init("buffer " + strconv.Itoa(i))
		c.push(&c.buckets[0], 0, int32(i))
	}

	c.log.Debug("bcache initialised",
		"slots", opt.Slots,
		"buckets", opt.Buckets,
		"block_size", opt.BlockSize,
	)
	return c
}

// ---- facade ----

// Acquire returns the handle for (dev, blockno) with its exclusive-use lock
// held. If the block is not cached, the least recently released slot is
// reassigned to it and the handle's content is not yet valid.
func (c *Cache) Acquire(dev, blockno uint32) *Buf {
	s := &c.slots[c.get(dev, blockno)]

	// No cache-internal lock is held past this point.
	o := lock.Owner(c.owners.Add(1))
	s.lock.Lock(o)
	return &Buf{c: c, s: s, owner: o}
}

// ReadBlock returns a held handle whose content reflects the on-disk block.
func (c *Cache) ReadBlock(dev, blockno uint32) *Buf {
	b := c.Acquire(dev, blockno)
	c.Read(b)
	return b
}

// Read fills b from the device unless it is already valid, then returns its
// content. The caller must hold b.
func (c *Cache) Read(b *Buf) []byte {
	c.mustHold("read", b)
	s := b.s
	if !s.valid {
		c.transfer(s, OpRead)
		s.valid = true
	}
	return s.data
}

// Write flushes b's content to the device synchronously. The caller must
// hold b. After a successful write the content matches the disk, so b is
// marked valid.
func (c *Cache) Write(b *Buf) {
	c.mustHold("write", b)
	c.transfer(b.s, OpWrite)
	b.s.valid = true
}

// Release drops the exclusive-use lock and the caller's reference. When the
// last reference goes, the slot is stamped with the current tick and becomes
// an eviction candidate. b must not be used after Release, except for Unpin.
func (c *Cache) Release(b *Buf) {
	c.mustHold("release", b)
	s := b.s
	s.lock.Unlock(b.owner)

	bk := &c.buckets[s.bucket]
	bk.mu.Lock()
	if s.ref <= 0 {
		bk.mu.Unlock()
		c.fatal("release", s.dev, s.blockno, ErrRefUnderflow)
	}
	s.ref--
	if s.ref == 0 {
		s.lastUsed = c.clock.Ticks()
	}
	bk.mu.Unlock()
}

// Pin adds a reference so the block survives eviction after Release.
// It does not touch the exclusive-use lock.
func (c *Cache) Pin(b *Buf) {
	s := c.slotOf("pin", b)
	bk := &c.buckets[s.bucket]
	bk.mu.Lock()
	s.ref++
	bk.mu.Unlock()
}

// Unpin removes a reference added by Pin.
func (c *Cache) Unpin(b *Buf) {
	s := c.slotOf("unpin", b)
	bk := &c.buckets[s.bucket]
	bk.mu.Lock()
	if s.ref <= 0 {
		bk.mu.Unlock()
		c.fatal("unpin", s.dev, s.blockno, ErrRefUnderflow)
	}
	s.ref--
	if s.ref == 0 {
		s.lastUsed = c.clock.Ticks()
	}
	bk.mu.Unlock()
}

// Invalidate forgets every unreferenced cached block of dev, e.g. before the
// device is unmounted. Referenced slots are left alone. It returns the number
// of slots dropped.
func (c *Cache) Invalidate(dev uint32) int {
	dropped := 0
	c.arbiter.Lock()
	for bi := range c.buckets {
		bk := &c.buckets[bi]
		bk.mu.Lock()
		for i := bk.head; i != nilSlot; i = c.slots[i].next {
			s := &c.slots[i]
			if s.assigned && s.dev == dev && s.ref == 0 {
				s.assigned = false
				s.valid = false
				s.lastUsed = 0
				dropped++
			}
		}
		bk.mu.Unlock()
	}
	c.arbiter.Unlock()

	c.log.Debug("bcache invalidate", "dev", dev, "dropped", dropped)
	return dropped
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	st := Stats{
		Slots:   len(c.slots),
		Buckets: len(c.buckets),
		Reads:   c.reads.Load(),
		Writes:  c.writes.Load(),
	}
	for i := range c.buckets {
		bk := &c.buckets[i]
		st.FastHits += bk.fastHits.Load()
		st.ArbiterHits += bk.arbiterHits.Load()
		st.Misses += bk.misses.Load()
		st.Evictions += bk.evicts.Load()
	}
	return st
}

// BlockSize returns the size of every slot's content in bytes.
func (c *Cache) BlockSize() int { return c.opt.BlockSize }

// ---- lookup protocol ----

// get returns the index of the slot bound to (dev, blockno) with its
// reference count already incremented. No lock is held on return.
func (c *Cache) get(dev, blockno uint32) int32 {
	home := util.ShardIndex(util.BlockHash(dev, blockno), len(c.buckets))
	hb := &c.buckets[home]

	// Fast path: home bucket only.
	hb.mu.Lock()
	if i := c.find(hb, dev, blockno); i != nilSlot {
		c.slots[i].ref++
		hb.mu.Unlock()
		hb.fastHits.Add(1)
		c.opt.Metrics.Hit(PathFast)
		return i
	}
	hb.mu.Unlock()

	// Slow path. Bucket linkage and identities only change under the
	// arbiter, so the re-check may walk the home list without its lock.
	c.arbiter.Lock()
	if i := c.find(hb, dev, blockno); i != nilSlot {
		hb.mu.Lock()
		c.slots[i].ref++
		hb.mu.Unlock()
		c.arbiter.Unlock()
		hb.arbiterHits.Add(1)
		c.opt.Metrics.Hit(PathArbiter)
		return i
	}

	i, old, evicted := c.evictLocked(dev, blockno, home)
	c.arbiter.Unlock()

	hb.misses.Add(1)
	c.opt.Metrics.Miss()
	if evicted {
		hb.evicts.Add(1)
		c.opt.Metrics.Evict()
		c.log.Debug("bcache evict",
			"slot", i,
			"old_dev", old.dev,
			"old_block", old.blockno,
			"dev", dev,
			"block", blockno,
		)
	}
	return i
}

type identity struct{ dev, blockno uint32 }

// evictLocked scans every bucket for the best unreferenced slot, moves it to
// the home bucket and binds it to (dev, blockno) with ref = 1 and
// valid = false. Caller holds the arbiter; on return no bucket lock is held.
func (c *Cache) evictLocked(dev, blockno uint32, home int) (int32, identity, bool) {
	var (
		best      int32 = nilSlot
		bestStamp policy.Stamp
		held      = -1 // bucket whose lock protects best
	)
	for bi := range c.buckets {
		bk := &c.buckets[bi]
		bk.mu.Lock()
		found := false
		for i := bk.head; i != nilSlot; i = c.slots[i].next {
			s := &c.slots[i]
			if s.ref != 0 {
				continue
			}
			st := policy.Stamp{Slot: int(i), Bucket: bi, LastUsed: s.lastUsed}
			if best == nilSlot || c.pol.Prefer(st, bestStamp) {
				best, bestStamp, found = i, st, true
			}
		}
		if found {
			if held >= 0 {
				c.buckets[held].mu.Unlock()
			}
			held = bi
		} else {
			bk.mu.Unlock()
		}
	}

	if best == nilSlot {
		c.arbiter.Unlock()
		c.fatal("acquire", dev, blockno, ErrNoBuffers)
	}

	s := &c.slots[best]
	old := identity{s.dev, s.blockno}
	evicted := s.assigned

	hb := &c.buckets[home]
	if held != home {
		// origin, then destination
		c.unlink(&c.buckets[held], best)
		c.buckets[held].mu.Unlock()
		hb.mu.Lock()
		c.push(hb, home, best)
	}
	s.dev, s.blockno, s.assigned = dev, blockno, true
	s.ref = 1
	s.valid = false
	hb.mu.Unlock()

	return best, old, evicted
}

// ---- helpers ----

// transfer runs one synchronous driver call for s. Caller holds s.lock.
func (c *Cache) transfer(s *slot, op Op) {
	err := c.opt.Driver.Transfer(context.Background(), s.dev, s.blockno, s.data, op == OpWrite)
	if err != nil {
		c.fatal(op.String(), s.dev, s.blockno, fmt.Errorf("%w: %w", ErrDevice, err))
	}
	if op == OpWrite {
		c.writes.Add(1)
	} else {
		c.reads.Add(1)
	}
	c.opt.Metrics.Transfer(op)
}

// mustHold panics unless b is a live handle of c whose holder is the caller.
func (c *Cache) mustHold(op string, b *Buf) {
	if b == nil || b.s == nil || b.c != c {
		c.fatal(op, 0, 0, ErrNotHeld)
	}
	if !b.s.lock.Holding(b.owner) {
		c.fatal(op, b.s.dev, b.s.blockno, ErrNotHeld)
	}
}

// slotOf validates that b came from c; pins need not hold the lock.
func (c *Cache) slotOf(op string, b *Buf) *slot {
	if b == nil || b.s == nil || b.c != c {
		c.fatal(op, 0, 0, ErrNotHeld)
	}
	return b.s
}

// fatal logs and panics with a *FatalError. Callers release spin locks first.
func (c *Cache) fatal(op string, dev, blockno uint32, err error) {
	c.log.Error("bcache: fatal",
		"op", op,
		"dev", dev,
		"block", blockno,
		"error", err,
	)
	panic(&FatalError{Op: op, Dev: dev, BlockNo: blockno, Err: err})
}
