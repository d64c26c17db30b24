package minio

import (
	"bytes"
	"context"
	"testing"

	"github.com/IvanBrykalov/bcache/bcache"
	"github.com/IvanBrykalov/bcache/device/objstore"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := Dial("localhost:9000", "minioadmin", "minioadmin", false)
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	store := NewStore(client, "test-bcache", "test-prefix/")
	require.NoError(t, store.EnsureBucket(ctx))

	_, err = store.Get(ctx, "missing/0")
	require.ErrorIs(t, err, objstore.ErrNotFound)

	data := []byte("hello minio block")
	require.NoError(t, store.Put(ctx, "1/1", data))
	got, err := store.Get(ctx, "1/1")
	require.NoError(t, err)
	require.Equal(t, data, got)

	// Full stack: cache -> object device -> MinIO.
	d, err := objstore.New(store, objstore.Options{BlockSize: 512, Codec: objstore.CodecZstd})
	require.NoError(t, err)
	c := bcache.New(bcache.Options{Slots: 1, BlockSize: 512, Driver: d})

	b := c.Acquire(7, 1)
	copy(b.Data(), bytes.Repeat([]byte("z"), 512))
	c.Write(b)
	c.Release(b)
	c.Release(c.ReadBlock(7, 2))

	b = c.ReadBlock(7, 1)
	require.Equal(t, bytes.Repeat([]byte("z"), 512), b.Data())
	c.Release(b)
}
