package bcache

import (
	"math/rand"
	"sync/atomic"
	"testing"
)

// benchmarkMix exercises acquire/read/release with a share of write-through
// against a warm cache. It uses parallel workers (RunParallel spawns
// GOMAXPROCS goroutines), each holding at most one buffer.
func benchmarkMix(b *testing.B, keyspace, writePct int) {
	c, _ := newTestCache(b, Options{Slots: 1024, Buckets: 61, BlockSize: 512})

	for i := 0; i < keyspace && i < 1024; i++ {
		c.Release(c.ReadBlock(1, uint32(i)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		for pb.Next() {
			buf := c.ReadBlock(1, uint32(r.Intn(keyspace)))
			if r.Intn(100) < writePct {
				c.Write(buf)
			}
			c.Release(buf)
		}
	})
}

func BenchmarkCache_Hot_Read(b *testing.B)    { benchmarkMix(b, 512, 0) }
func BenchmarkCache_Hot_10w(b *testing.B)     { benchmarkMix(b, 512, 10) }
func BenchmarkCache_Thrash_Read(b *testing.B) { benchmarkMix(b, 8192, 0) }
