package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/IvanBrykalov/bcache/bcache"
)

// Table routes transfers to the driver mounted at the device number.
type Table struct {
	mu   sync.RWMutex
	devs map[uint32]bcache.Driver
}

// NewTable returns an empty device table.
func NewTable() *Table {
	return &Table{devs: make(map[uint32]bcache.Driver)}
}

// Mount attaches d as device dev.
func (t *Table) Mount(dev uint32, d bcache.Driver) error {
	if d == nil {
		return fmt.Errorf("device: mount %d: nil driver", dev)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.devs[dev]; ok {
		return fmt.Errorf("%w: %d", ErrMounted, dev)
	}
	t.devs[dev] = d
	return nil
}

// Unmount detaches device dev and returns its driver. Callers should drop
// the device's cached blocks with Cache.Invalidate once no handle to them
// is outstanding.
func (t *Table) Unmount(dev uint32) (bcache.Driver, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devs[dev]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoDevice, dev)
	}
	delete(t.devs, dev)
	return d, nil
}

// Devices returns the mounted device numbers in ascending order.
func (t *Table) Devices() []uint32 {
	t.mu.RLock()
	out := make([]uint32, 0, len(t.devs))
	for dev := range t.devs {
		out = append(out, dev)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Transfer implements bcache.Driver.
func (t *Table) Transfer(ctx context.Context, dev, blockno uint32, data []byte, write bool) error {
	t.mu.RLock()
	d, ok := t.devs[dev]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoDevice, dev)
	}
	return d.Transfer(ctx, dev, blockno, data, write)
}

var _ bcache.Driver = (*Table)(nil)
