package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// Memory is a RAM disk of a fixed number of blocks. Blocks never written
// read as zeros. The device number passed to Transfer is ignored; mount a
// Memory in a Table to give it one.
type Memory struct {
	blockSize int
	nblocks   uint32

	mu      sync.RWMutex
	data    []byte
	written *roaring.Bitmap // blocks written at least once

	latency atomic.Int64 // per-transfer delay, nanoseconds
	reads   atomic.Uint64
	writes  atomic.Uint64
}

// NewMemory allocates a zeroed RAM disk of nblocks blocks of blockSize bytes.
func NewMemory(nblocks uint32, blockSize int) *Memory {
	if blockSize <= 0 {
		panic("device: blockSize must be > 0")
	}
	return &Memory{
		blockSize: blockSize,
		nblocks:   nblocks,
		data:      make([]byte, int(nblocks)*blockSize),
		written:   roaring.New(),
	}
}

// SetLatency makes every transfer take at least d. Zero disables the delay.
func (m *Memory) SetLatency(d time.Duration) { m.latency.Store(int64(d)) }

// Transfer implements bcache.Driver.
func (m *Memory) Transfer(ctx context.Context, _ uint32, blockno uint32, data []byte, write bool) error {
	if blockno >= m.nblocks {
		return fmt.Errorf("%w: block %d of %d", ErrOutOfRange, blockno, m.nblocks)
	}
	if len(data) != m.blockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBlockSize, len(data), m.blockSize)
	}
	if err := m.wait(ctx); err != nil {
		return err
	}

	off := int(blockno) * m.blockSize
	if write {
		m.mu.Lock()
		copy(m.data[off:off+m.blockSize], data)
		m.written.Add(blockno)
		m.mu.Unlock()
		m.writes.Add(1)
		return nil
	}

	m.mu.RLock()
	copy(data, m.data[off:off+m.blockSize])
	m.mu.RUnlock()
	m.reads.Add(1)
	return nil
}

func (m *Memory) wait(ctx context.Context) error {
	d := time.Duration(m.latency.Load())
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Written reports whether blockno has been written since the disk was created.
func (m *Memory) Written(blockno uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.written.Contains(blockno)
}

// WrittenBlocks returns the sorted block numbers written so far.
func (m *Memory) WrittenBlocks() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.written.ToArray()
}

// Blocks returns the device size in blocks.
func (m *Memory) Blocks() uint32 { return m.nblocks }

// BlockSize returns the block size in bytes.
func (m *Memory) BlockSize() int { return m.blockSize }

// Reads returns the number of completed read transfers.
func (m *Memory) Reads() uint64 { return m.reads.Load() }

// Writes returns the number of completed write transfers.
func (m *Memory) Writes() uint64 { return m.writes.Load() }
