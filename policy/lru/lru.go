// Package lru implements the least-recently-released eviction policy.
package lru

import "github.com/IvanBrykalov/bcache/policy"

type lru struct{}

// New returns the LRU policy: the candidate with the numerically smallest
// LastUsed wins. The comparison is strict, so among equal stamps the first
// slot met in scan order stays the victim.
func New() policy.Policy { return lru{} }

// Prefer reports whether candidate was released strictly earlier than best.
func (lru) Prefer(candidate, best policy.Stamp) bool {
	return candidate.LastUsed < best.LastUsed
}
