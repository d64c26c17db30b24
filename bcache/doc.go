// Package bcache implements a fixed-size, sharded cache of disk blocks that
// serves as the single synchronization point for concurrent access to a block.
//
// Design
//
//   - Slot pool: the cache owns a fixed array of slots created by New. Each
//     slot holds one block's content (carved out of a single arena), its
//     identity (device, block number), a valid flag, a reference count, the
//     tick at which it last became unreferenced, and a sleeping exclusive-use
//     lock. Slots are never created or destroyed after New.
//
//   - Bucket index: a fixed number of hash buckets (13 by default). Each
//     bucket is a singly linked list of slot indices threaded through the
//     pool, guarded by its own spin lock. A slot lives in exactly one bucket.
//
//   - Arbiter: one spin lock taken only when a lookup misses its home bucket.
//     Under it the home bucket is re-checked and, on a second miss, every
//     bucket is scanned in index order for the unreferenced slot with the
//     oldest release tick (true LRU across all buckets). Only the bucket that
//     holds the best candidate so far stays locked during the scan.
//
//   - Exclusive-use lock: Acquire returns with the slot's lock held; content
//     may be read or written only while holding it. Waiting for it parks the
//     goroutine and holds no cache-internal lock.
//
// Lock order
//
// At most one bucket lock is held at a time, except while relocating a slot
// (origin, then destination) and while the eviction scan holds the best
// candidate's bucket and locks the next one (increasing index). The arbiter
// is always taken before any bucket lock of the same operation and never
// while a bucket lock acquired outside its scope is held. Spin locks are
// never held across driver I/O or a sleeping lock acquisition.
//
// Failure model
//
// Caller bugs and resource exhaustion are not recoverable: using a handle
// without holding its exclusive-use lock, running out of unreferenced slots,
// unpinning below zero, and driver failures all log at error level and panic
// with a *FatalError that unwraps to ErrNotHeld, ErrNoBuffers,
// ErrRefUnderflow or ErrDevice.
//
// Basic usage
//
//	c := bcache.New(bcache.Options{Driver: device.NewMemory(1024, 1000)})
//	b := c.ReadBlock(1, 7) // acquire + fill from the device
//	data := c.Read(b)
//	data[0] = 42
//	c.Write(b)   // write-through
//	c.Release(b) // b must not be used after this
//
// Keeping a block cached across releases
//
//	b := c.Acquire(1, 33)
//	c.Pin(b)
//	c.Release(b)
//	// ... block 33 cannot be evicted here ...
//	c.Unpin(b)
package bcache
