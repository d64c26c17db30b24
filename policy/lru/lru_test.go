package lru

import (
	"testing"

	"github.com/IvanBrykalov/bcache/policy"
)

// Older stamps must win.
func TestLRU_PrefersOlder(t *testing.T) {
	t.Parallel()

	p := New()
	old := policy.Stamp{Slot: 3, LastUsed: 5}
	young := policy.Stamp{Slot: 1, LastUsed: 9}

	if !p.Prefer(old, young) {
		t.Fatal("older candidate must replace a younger best")
	}
	if p.Prefer(young, old) {
		t.Fatal("younger candidate must not replace an older best")
	}
}

// Equal stamps keep the first-seen best (scan-order tie-break).
func TestLRU_TieKeepsFirst(t *testing.T) {
	t.Parallel()

	p := New()
	first := policy.Stamp{Slot: 0, Bucket: 0, LastUsed: 7}
	later := policy.Stamp{Slot: 4, Bucket: 2, LastUsed: 7}

	if p.Prefer(later, first) {
		t.Fatal("equal stamps must not displace the first candidate")
	}
}

// Replaying a scan over a list of stamps picks the minimum, first on ties.
func TestLRU_ScanReplay(t *testing.T) {
	t.Parallel()

	p := New()
	stamps := []policy.Stamp{
		{Slot: 0, LastUsed: 10},
		{Slot: 1, LastUsed: 3},
		{Slot: 2, LastUsed: 8},
		{Slot: 3, LastUsed: 3},
		{Slot: 4, LastUsed: 12},
	}
	best := stamps[0]
	for _, s := range stamps[1:] {
		if p.Prefer(s, best) {
			best = s
		}
	}
	if best.Slot != 1 {
		t.Fatalf("want slot 1, got %d", best.Slot)
	}
}
