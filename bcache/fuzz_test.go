//go:build go1.18

package bcache

import (
	"bytes"
	"testing"
)

// Fuzz write-through and read-back of arbitrary content, with an eviction in
// between so the read has to come from the device.
func FuzzCache_WriteEvictRead(f *testing.F) {
	f.Add(uint32(0), uint32(0), []byte(""))
	f.Add(uint32(1), uint32(7), []byte("hello"))
	f.Add(uint32(9), uint32(1<<31), bytes.Repeat([]byte{0xff}, 64))
	f.Add(uint32(1<<32-1), uint32(1<<32-1), []byte("αβγ🙂"))

	f.Fuzz(func(t *testing.T, dev, blk uint32, payload []byte) {
		clk := &fakeClock{}
		c, _ := newTestCache(t, Options{Slots: 1, Buckets: 3, Clock: clk})

		b := c.Acquire(dev, blk)
		want := make([]byte, c.BlockSize())
		copy(want, payload)
		copy(b.Data(), want)
		c.Write(b)
		clk.tick()
		c.Release(b)

		// A one-slot cache: any other block evicts it.
		c.Release(c.ReadBlock(dev, blk+1))

		b = c.ReadBlock(dev, blk)
		if !bytes.Equal(c.Read(b), want) {
			t.Fatalf("dev=%d blk=%d: content mismatch after eviction", dev, blk)
		}
		c.Release(b)
	})
}
