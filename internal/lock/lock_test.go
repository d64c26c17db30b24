package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// Many goroutines increment a plain counter under the spin lock.
// The final value must equal the number of increments.
func TestSpinLock_MutualExclusion(t *testing.T) {
	t.Parallel()

	var (
		l     SpinLock
		n     int
		g     errgroup.Group
		iters = 2000
	)
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < iters; i++ {
				l.Lock()
				n++
				l.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n != 8*iters {
		t.Fatalf("lost updates: want %d, got %d", 8*iters, n)
	}
}

func TestSpinLock_TryLock(t *testing.T) {
	t.Parallel()

	var l SpinLock
	if !l.TryLock() {
		t.Fatal("TryLock on free lock must succeed")
	}
	if l.TryLock() {
		t.Fatal("TryLock on held lock must fail")
	}
	if !l.Locked() {
		t.Fatal("Locked must report true while held")
	}
	l.Unlock()
	if l.Locked() {
		t.Fatal("Locked must report false after Unlock")
	}
}

func TestSpinLock_UnlockUnlockedPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("Unlock of free lock must panic")
		}
	}()
	var l SpinLock
	l.Unlock()
}

// Two owners contend; at no point may both be inside the critical section.
func TestSleepLock_MutualExclusion(t *testing.T) {
	t.Parallel()

	var l SleepLock
	l.Init("test")

	var inside atomic.Int32
	var wg sync.WaitGroup
	for o := Owner(1); o <= 8; o++ {
		wg.Add(1)
		go func(o Owner) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Lock(o)
				if inside.Add(1) != 1 {
					t.Errorf("two holders inside the critical section")
				}
				if !l.Holding(o) {
					t.Errorf("owner %d must hold the lock", o)
				}
				inside.Add(-1)
				l.Unlock(o)
			}
		}(o)
	}
	wg.Wait()
}

// A waiter must stay blocked until the holder unlocks.
func TestSleepLock_WaiterBlocks(t *testing.T) {
	t.Parallel()

	var l SleepLock
	l.Init("blk")
	l.Lock(1)

	got := make(chan struct{})
	go func() {
		l.Lock(2)
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("second owner acquired a held lock")
	case <-time.After(30 * time.Millisecond):
	}

	l.Unlock(1)
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken")
	}
	if !l.Holding(2) || l.Holding(1) {
		t.Fatal("ownership must move to the waiter")
	}
	l.Unlock(2)
}

func TestSleepLock_UnlockByNonHolderPanics(t *testing.T) {
	t.Parallel()

	var l SleepLock
	l.Init("x")
	l.Lock(1)
	defer func() {
		if recover() == nil {
			t.Fatal("Unlock by non-holder must panic")
		}
	}()
	l.Unlock(2)
}

func TestSleepLock_HoldingZeroOwner(t *testing.T) {
	t.Parallel()

	var l SleepLock
	l.Init("z")
	if l.Holding(0) {
		t.Fatal("nobody holds a fresh lock")
	}
	if l.Name() != "z" {
		t.Fatalf("Name: got %q", l.Name())
	}
}
