package objstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/oxtoacart/bpool"
	"golang.org/x/sync/semaphore"
)

// Defaults for Options.
const (
	DefaultMaxInFlight = 16
	DefaultPoolBuffers = 64
)

// Options configures a Device.
type Options struct {
	// BlockSize in bytes. Required.
	BlockSize int
	// Codec used for writes. Reads accept any codec.
	Codec Codec
	// MaxInFlight bounds concurrent store calls (0 => DefaultMaxInFlight).
	MaxInFlight int64
	// CacheBytes sizes the encoded-object read cache; 0 disables it.
	// freecache rounds small sizes up to 512 KiB.
	CacheBytes int
	// PoolBuffers is how many scratch buffers to keep (0 => DefaultPoolBuffers).
	PoolBuffers int
	Logger      *slog.Logger
}

// Device is a bcache.Driver storing one object per block.
type Device struct {
	store Store
	opt   Options
	sem   *semaphore.Weighted
	cache *freecache.Cache // nil if disabled
	pool  *bpool.BytePool  // scratch for cache lookups
	log   *slog.Logger

	gets      atomic.Uint64
	puts      atomic.Uint64
	cacheHits atomic.Uint64
}

// New returns a Device over store.
func New(store Store, opt Options) (*Device, error) {
	if store == nil {
		return nil, errors.New("objstore: nil store")
	}
	if opt.BlockSize <= 0 {
		return nil, errors.New("objstore: block size must be > 0")
	}
	if opt.MaxInFlight <= 0 {
		opt.MaxInFlight = DefaultMaxInFlight
	}
	if opt.PoolBuffers <= 0 {
		opt.PoolBuffers = DefaultPoolBuffers
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Device{
		store: store,
		opt:   opt,
		sem:   semaphore.NewWeighted(opt.MaxInFlight),
		// Encoded objects are at most one block plus the codec byte.
		pool: bpool.NewBytePool(opt.PoolBuffers, opt.BlockSize+1),
		log:  opt.Logger,
	}
	if opt.CacheBytes > 0 {
		d.cache = freecache.NewCache(opt.CacheBytes)
	}
	return d, nil
}

// ObjectName returns the object name of a block.
func ObjectName(dev, blockno uint32) string {
	return strconv.FormatUint(uint64(dev), 10) + "/" + strconv.FormatUint(uint64(blockno), 10)
}

func cacheKey(dev, blockno uint32) []byte {
	var k [8]byte
	binary.LittleEndian.PutUint64(k[:], uint64(dev)<<32|uint64(blockno))
	return k[:]
}

// Transfer implements bcache.Driver.
func (d *Device) Transfer(ctx context.Context, dev, blockno uint32, data []byte, write bool) error {
	if len(data) != d.opt.BlockSize {
		return fmt.Errorf("objstore: buffer is %d bytes, want %d", len(data), d.opt.BlockSize)
	}
	if write {
		return d.write(ctx, dev, blockno, data)
	}
	return d.read(ctx, dev, blockno, data)
}

func (d *Device) write(ctx context.Context, dev, blockno uint32, data []byte) error {
	obj, err := encode(d.opt.Codec, data)
	if err != nil {
		return err
	}
	name := ObjectName(dev, blockno)

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	err = d.store.Put(ctx, name, obj)
	d.sem.Release(1)
	if err != nil {
		if d.cache != nil {
			d.cache.Del(cacheKey(dev, blockno))
		}
		return fmt.Errorf("objstore: put %s: %w", name, err)
	}
	d.puts.Add(1)

	if d.cache != nil {
		// A failed Set only costs a future remote read.
		_ = d.cache.Set(cacheKey(dev, blockno), obj, 0)
	}
	return nil
}

func (d *Device) read(ctx context.Context, dev, blockno uint32, data []byte) error {
	if d.cache != nil {
		buf := d.pool.Get()
		obj, err := d.cache.GetWithBuf(cacheKey(dev, blockno), buf)
		if err == nil {
			err = decode(obj, data)
			d.pool.Put(buf)
			if err == nil {
				d.cacheHits.Add(1)
				return nil
			}
			d.log.Warn("objstore: dropping corrupt cache entry", "dev", dev, "block", blockno, "error", err)
			d.cache.Del(cacheKey(dev, blockno))
		} else {
			d.pool.Put(buf)
		}
	}

	name := ObjectName(dev, blockno)
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	obj, err := d.store.Get(ctx, name)
	d.sem.Release(1)
	d.gets.Add(1)
	if errors.Is(err, ErrNotFound) {
		clear(data)
		return nil
	}
	if err != nil {
		return fmt.Errorf("objstore: get %s: %w", name, err)
	}
	if err := decode(obj, data); err != nil {
		return fmt.Errorf("objstore: get %s: %w", name, err)
	}
	if d.cache != nil {
		_ = d.cache.Set(cacheKey(dev, blockno), obj, 0)
	}
	return nil
}

// Stats reports remote calls and read-cache hits.
type Stats struct {
	Gets, Puts, CacheHits uint64
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	return Stats{Gets: d.gets.Load(), Puts: d.puts.Load(), CacheHits: d.cacheHits.Load()}
}
