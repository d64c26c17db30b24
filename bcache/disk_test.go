package bcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/bcache/internal/util"
)

// testDisk is an in-memory Driver that counts transfers per block.
type testDisk struct {
	mu     sync.Mutex
	blocks map[identity][]byte
	reads  map[identity]int
	writes map[identity]int
	delay  time.Duration
	fail   atomic.Bool
}

func newTestDisk() *testDisk {
	return &testDisk{
		blocks: make(map[identity][]byte),
		reads:  make(map[identity]int),
		writes: make(map[identity]int),
	}
}

var errInjected = errors.New("injected disk failure")

func (d *testDisk) Transfer(_ context.Context, dev, blockno uint32, data []byte, write bool) error {
	if d.fail.Load() {
		return errInjected
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	id := identity{dev, blockno}
	d.mu.Lock()
	defer d.mu.Unlock()
	if write {
		d.writes[id]++
		d.blocks[id] = append([]byte(nil), data...)
		return nil
	}
	d.reads[id]++
	src := d.blocks[id]
	n := copy(data, src)
	clear(data[n:])
	return nil
}

func (d *testDisk) readCount(dev, blockno uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads[identity{dev, blockno}]
}

func (d *testDisk) writeCount(dev, blockno uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[identity{dev, blockno}]
}

func (d *testDisk) put(dev, blockno uint32, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks[identity{dev, blockno}] = append([]byte(nil), data...)
}

// fakeClock is a manually advanced tick source.
type fakeClock struct{ t atomic.Uint64 }

func (f *fakeClock) Ticks() uint64 { return f.t.Load() }
func (f *fakeClock) tick()         { f.t.Add(1) }

func newTestCache(t testing.TB, opt Options) (*Cache, *testDisk) {
	t.Helper()
	d := newTestDisk()
	if opt.Driver == nil {
		opt.Driver = d
	}
	if opt.BlockSize == 0 {
		opt.BlockSize = 64
	}
	return New(opt), d
}

// mustFatal runs fn and fails unless it panics with a *FatalError wrapping target.
func mustFatal(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected fatal %v, got no panic", target)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value is %T, want error", r)
		}
		var fe *FatalError
		if !errors.As(err, &fe) {
			t.Fatalf("panic value %v is not a *FatalError", err)
		}
		if !errors.Is(err, target) {
			t.Fatalf("want %v, got %v", target, err)
		}
	}()
	fn()
}

// checkInvariants freezes the cache (arbiter, then every bucket in order)
// and verifies the structural invariants.
func checkInvariants(t *testing.T, c *Cache) {
	t.Helper()
	c.arbiter.Lock()
	for i := range c.buckets {
		c.buckets[i].mu.Lock()
	}
	defer func() {
		for i := range c.buckets {
			c.buckets[i].mu.Unlock()
		}
		c.arbiter.Unlock()
	}()

	seen := make([]int, len(c.slots))
	owners := make(map[identity]int32)
	for bi := range c.buckets {
		for i := c.buckets[bi].head; i != nilSlot; i = c.slots[i].next {
			seen[i]++
			s := &c.slots[i]
			if s.bucket != bi {
				t.Errorf("slot %d linked in bucket %d but records %d", i, bi, s.bucket)
			}
			if s.ref < 0 {
				t.Errorf("slot %d has negative ref %d", i, s.ref)
			}
			if !s.assigned {
				continue
			}
			if home := util.ShardIndex(util.BlockHash(s.dev, s.blockno), len(c.buckets)); home != bi {
				t.Errorf("slot %d (dev=%d block=%d) in bucket %d, home is %d", i, s.dev, s.blockno, bi, home)
			}
			id := identity{s.dev, s.blockno}
			if prev, dup := owners[id]; dup {
				t.Errorf("identity %+v carried by slots %d and %d", id, prev, i)
			}
			owners[id] = i
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("slot %d appears in %d buckets", i, n)
		}
	}
}
