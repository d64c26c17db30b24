// Package util contains internal helpers (hashing, bucket selection, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

// BlockHash hashes a (device, block number) pair with 64-bit FNV-1a.
// The device goes into the high word so blocks of different devices with the
// same number do not collide on the same bucket.
func BlockHash(dev, blockno uint32) uint64 {
	return fnv64aFromUint64(uint64(dev)<<32 | uint64(blockno))
}

func fnv64aFromUint64(u uint64) uint64 {
	// Hash the 8 little-endian bytes of u without allocating.
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
