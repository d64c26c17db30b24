package bcache

import "context"

// Driver moves one block between a slot's content buffer and a device.
//
// Transfer must be synchronous: when it returns nil after a read, data holds
// the block's on-disk bytes; after a write, data has been committed.
// len(data) is always the cache's block size. A non-nil error is treated as
// fatal by the cache.
type Driver interface {
	Transfer(ctx context.Context, dev, blockno uint32, data []byte, write bool) error
}

// BlockCache is the set of operations file-system code uses to reach blocks.
// *Cache implements it; consumers that only need block access should accept
// this interface.
type BlockCache interface {
	// Acquire returns the handle for (dev, blockno) with its exclusive-use
	// lock held, allocating or evicting a slot if the block is not cached.
	Acquire(dev, blockno uint32) *Buf

	// ReadBlock is Acquire followed by Read.
	ReadBlock(dev, blockno uint32) *Buf

	// Read fills the slot from the device if it is not valid and returns
	// its content. The caller must hold b.
	Read(b *Buf) []byte

	// Write flushes the slot's content to the device. The caller must hold b.
	Write(b *Buf)

	// Release drops the exclusive-use lock and the caller's reference.
	Release(b *Buf)

	// Pin and Unpin add and remove a reference without touching the
	// exclusive-use lock, keeping the block from being evicted.
	Pin(b *Buf)
	Unpin(b *Buf)
}

var _ BlockCache = (*Cache)(nil)
