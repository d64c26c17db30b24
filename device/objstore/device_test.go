package objstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/IvanBrykalov/bcache/bcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ bcache.Driver = (*Device)(nil)

func TestDevice_ReadWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d, err := New(store, Options{BlockSize: 256, Codec: CodecZstd})
	require.NoError(t, err)

	buf := bytes.Repeat([]byte{0xFF}, 256)
	require.NoError(t, d.Transfer(ctx, 1, 9, buf, false))
	assert.Equal(t, make([]byte, 256), buf, "missing object reads as zeros")
	assert.Equal(t, 0, store.Len())

	copy(buf, bytes.Repeat([]byte("abc"), 80))
	require.NoError(t, d.Transfer(ctx, 1, 9, buf, true))
	raw, ok := store.Raw("1/9")
	require.True(t, ok)
	assert.Equal(t, byte(CodecZstd), raw[0])
	assert.Less(t, len(raw), 256)

	got := make([]byte, 256)
	require.NoError(t, d.Transfer(ctx, 1, 9, got, false))
	assert.Equal(t, buf, got)
	assert.Equal(t, Stats{Gets: 2, Puts: 1}, d.Stats())

	assert.Error(t, d.Transfer(ctx, 1, 9, make([]byte, 10), false))
}

func TestDevice_ReadCache(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d, err := New(store, Options{BlockSize: 128, Codec: CodecLZ4, CacheBytes: 1 << 20})
	require.NoError(t, err)

	block := bytes.Repeat([]byte{7}, 128)
	require.NoError(t, d.Transfer(ctx, 2, 1, block, true))

	got := make([]byte, 128)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Transfer(ctx, 2, 1, got, false))
		assert.Equal(t, block, got)
	}
	gets, puts := store.Calls()
	assert.Equal(t, 0, gets, "reads served from the write-populated cache")
	assert.Equal(t, 1, puts)
	assert.Equal(t, uint64(3), d.Stats().CacheHits)
}

func TestDevice_ReadsAnyCodec(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	block := bytes.Repeat([]byte("xyz"), 22)[:64]

	w, err := New(store, Options{BlockSize: 64, Codec: CodecLZ4})
	require.NoError(t, err)
	require.NoError(t, w.Transfer(ctx, 0, 0, block, true))

	r, err := New(store, Options{BlockSize: 64, Codec: CodecZstd})
	require.NoError(t, err)
	got := make([]byte, 64)
	require.NoError(t, r.Transfer(ctx, 0, 0, got, false))
	assert.Equal(t, block, got)
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Put(context.Context, string, []byte) error   { return f.err }

func TestDevice_StoreErrors(t *testing.T) {
	boom := errors.New("boom")
	d, err := New(failingStore{boom}, Options{BlockSize: 16, CacheBytes: 1 << 20})
	require.NoError(t, err)

	buf := make([]byte, 16)
	assert.ErrorIs(t, d.Transfer(context.Background(), 0, 0, buf, false), boom)
	assert.ErrorIs(t, d.Transfer(context.Background(), 0, 0, buf, true), boom)
}

func TestDevice_ContextCanceled(t *testing.T) {
	d, err := New(NewMemoryStore(), Options{BlockSize: 16, MaxInFlight: 1})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The semaphore is free, so Acquire may still succeed; hold it first.
	require.NoError(t, d.sem.Acquire(context.Background(), 1))
	defer d.sem.Release(1)
	assert.ErrorIs(t, d.Transfer(ctx, 0, 0, make([]byte, 16), false), context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{BlockSize: 16})
	assert.Error(t, err)
	_, err = New(NewMemoryStore(), Options{})
	assert.Error(t, err)
}

// The cache over an object store: blocks evicted from the cache come back
// from the store with their content.
func TestDevice_UnderCache(t *testing.T) {
	store := NewMemoryStore()
	d, err := New(store, Options{BlockSize: 64, Codec: CodecLZ4})
	require.NoError(t, err)
	c := bcache.New(bcache.Options{Slots: 2, BlockSize: 64, Driver: d})

	for blk := uint32(0); blk < 6; blk++ {
		b := c.Acquire(3, blk)
		copy(b.Data(), bytes.Repeat([]byte{byte(blk + 1)}, 64))
		c.Write(b)
		c.Release(b)
	}
	assert.Equal(t, 6, store.Len())

	for blk := uint32(0); blk < 6; blk++ {
		b := c.ReadBlock(3, blk)
		assert.Equal(t, bytes.Repeat([]byte{byte(blk + 1)}, 64), b.Data())
		c.Release(b)
	}
}
