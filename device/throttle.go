package device

import (
	"context"

	"github.com/IvanBrykalov/bcache/bcache"
	"golang.org/x/time/rate"
)

// Throttle limits the transfer rate of a wrapped driver.
// A zero field means unlimited.
type Throttle struct {
	OpsPerSec   float64
	BytesPerSec int
}

// Throttled wraps a driver with rate limiters on transfers and bytes.
type Throttled struct {
	next  bcache.Driver
	ops   *rate.Limiter // nil if unlimited
	bytes *rate.Limiter // nil if unlimited
	burst int
}

// NewThrottled wraps next with the limits in t.
func NewThrottled(next bcache.Driver, t Throttle) *Throttled {
	d := &Throttled{next: next}
	if t.OpsPerSec > 0 {
		burst := int(t.OpsPerSec)
		if burst < 1 {
			burst = 1
		}
		d.ops = rate.NewLimiter(rate.Limit(t.OpsPerSec), burst)
	}
	if t.BytesPerSec > 0 {
		d.burst = t.BytesPerSec
		d.bytes = rate.NewLimiter(rate.Limit(t.BytesPerSec), t.BytesPerSec)
	}
	return d
}

// Transfer implements bcache.Driver. It waits for both limiters before
// delegating.
func (d *Throttled) Transfer(ctx context.Context, dev, blockno uint32, data []byte, write bool) error {
	if d.ops != nil {
		if err := d.ops.Wait(ctx); err != nil {
			return err
		}
	}
	if d.bytes != nil {
		// WaitN rejects n above the burst, so charge large blocks in pieces.
		for left := len(data); left > 0; {
			n := min(left, d.burst)
			if err := d.bytes.WaitN(ctx, n); err != nil {
				return err
			}
			left -= n
		}
	}
	return d.next.Transfer(ctx, dev, blockno, data, write)
}
