// Package policy defines how the block cache picks an eviction victim
// during its global scan.
package policy

// Stamp is the metadata a policy sees for one evictable slot.
// Only slots with a zero reference count are ever offered to a policy.
type Stamp struct {
	// Slot is the slot's index in the pool.
	Slot int
	// Bucket is the bucket the slot is currently linked into.
	Bucket int
	// LastUsed is the logical tick at which the slot's reference count last
	// dropped to zero.
	LastUsed uint64
}

// Policy compares eviction candidates.
//
// The cache scans buckets in increasing index order and, inside a bucket,
// in list order. For every evictable slot after the first it asks Prefer
// whether the new candidate should replace the best one found so far.
// Implementations must be pure: they are called with bucket locks held.
type Policy interface {
	Prefer(candidate, best Stamp) bool
}
