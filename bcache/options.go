package bcache

import (
	"log/slog"
	"time"

	"github.com/IvanBrykalov/bcache/policy"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultSlots        = 30
	DefaultBuckets      = 13
	DefaultBlockSize    = 1024
	DefaultTickInterval = 100 * time.Millisecond
)

// Path tells which lookup path satisfied a hit.
type Path int

const (
	// PathFast: found in the home bucket without touching the arbiter.
	PathFast Path = iota
	// PathArbiter: found on the re-check under the arbiter lock.
	PathArbiter
)

func (p Path) String() string {
	if p == PathArbiter {
		return "arbiter"
	}
	return "fast"
}

// Op is the direction of a driver transfer.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Metrics exposes cache-level observability hooks.
// Hooks may be called with a bucket lock held; keep them non-blocking.
type Metrics interface {
	Hit(path Path)
	// Miss is reported once per slot (re)assignment.
	Miss()
	// Evict is reported when the reassigned slot previously cached a block.
	Evict()
	Transfer(op Op)
}

// Clock provides the logical time stamped into a slot when its reference
// count drops to zero. It must be monotonic and cheap.
type Clock interface{ Ticks() uint64 }

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

// Ticks calls f.
func (f ClockFunc) Ticks() uint64 { return f() }

// Options configures the cache. Zero values are safe; New applies:
//   - Slots == 0      => DefaultSlots
//   - Buckets == 0    => DefaultBuckets
//   - BlockSize == 0  => DefaultBlockSize
//   - nil Clock       => tick counter advancing every TickInterval
//   - nil Policy      => LRU
//   - nil Metrics     => NoopMetrics
//   - nil Logger      => discard
//
// Driver is required.
type Options struct {
	// Slots is the fixed number of cache slots.
	Slots int

	// Buckets is the number of hash buckets. Prime counts spread sequential
	// block numbers best.
	Buckets int

	// BlockSize is the size of one block in bytes.
	BlockSize int

	// Driver performs device transfers.
	Driver Driver

	// Clock supplies release stamps. Coarse ticks are fine: equal stamps are
	// broken by scan order.
	Clock Clock
	// TickInterval is the period of the default clock.
	TickInterval time.Duration

	// Policy compares eviction candidates; nil => LRU.
	Policy policy.Policy

	Metrics Metrics
	Logger  *slog.Logger
}
