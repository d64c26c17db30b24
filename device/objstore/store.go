package objstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Store for a missing object.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("objstore: object not found")

// Store is the minimal object store a Device needs.
type Store interface {
	// Get returns the whole object.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces the object atomically.
	Put(ctx context.Context, name string, data []byte) error
}

// MemoryStore is an in-memory Store for tests and benchmarks.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	gets    int
	puts    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Get returns a copy of the object.
func (m *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Calls returns the number of Get and Put calls served.
func (m *MemoryStore) Calls() (gets, puts int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets, m.puts
}

// Raw returns the stored object without copying; for tests.
func (m *MemoryStore) Raw(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, ok
}
