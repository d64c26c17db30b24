package util

import "testing"

func TestShardIndex_Bounds(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 7, 13, 16, 64} {
		for blk := uint32(0); blk < 512; blk++ {
			i := ShardIndex(BlockHash(1, blk), n)
			if i < 0 || i >= n {
				t.Fatalf("ShardIndex out of range: n=%d blk=%d idx=%d", n, blk, i)
			}
		}
	}
}

func TestBlockHash_DeviceMatters(t *testing.T) {
	t.Parallel()

	if BlockHash(1, 7) == BlockHash(2, 7) {
		t.Fatal("hash must depend on the device number")
	}
	if BlockHash(1, 7) != BlockHash(1, 7) {
		t.Fatal("hash must be deterministic")
	}
}

// Spread check: 13 buckets, sequential blocks, no bucket may be empty.
func TestShardIndex_Spread(t *testing.T) {
	t.Parallel()

	const n = 13
	var seen [n]int
	for blk := uint32(0); blk < 13*16; blk++ {
		seen[ShardIndex(BlockHash(1, blk), n)]++
	}
	for i, c := range seen {
		if c == 0 {
			t.Fatalf("bucket %d never selected", i)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	t.Parallel()

	cases := map[uint64]bool{0: false, 1: true, 2: true, 3: false, 13: false, 64: true}
	for x, want := range cases {
		if got := IsPowerOfTwo(x); got != want {
			t.Fatalf("IsPowerOfTwo(%d)=%v want %v", x, got, want)
		}
	}
}
