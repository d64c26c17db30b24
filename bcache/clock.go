package bcache

import "time"

// tickClock counts whole TickInterval periods since the cache was created,
// the way a kernel counts timer interrupts.
type tickClock struct {
	start  time.Time
	period time.Duration
}

func newTickClock(period time.Duration) tickClock {
	if period <= 0 {
		period = DefaultTickInterval
	}
	return tickClock{start: time.Now(), period: period}
}

func (t tickClock) Ticks() uint64 {
	return uint64(time.Since(t.start) / t.period)
}
