package lifecycle

import (
	"context"
	"math/rand"
	"time"
)

// Backoff paces reconnect attempts. With max <= initial the delay is fixed;
// otherwise it doubles after every attempt up to max.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	jitter  float64
	current time.Duration
}

// NewBackoff creates a backoff. jitter is a fraction (0.2 means ±20%).
func NewBackoff(initial, max time.Duration, jitter float64) *Backoff {
	if max < initial {
		max = initial
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Backoff{initial: initial, max: max, jitter: jitter, current: initial}
}

// Next returns the delay to wait now and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if b.jitter > 0 {
		d = time.Duration(float64(d) + float64(d)*b.jitter*(rand.Float64()*2-1))
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Wait sleeps for the next delay or until ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset restarts the schedule at the initial delay.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next call to Next is based on.
func (b *Backoff) Current() time.Duration {
	return b.current
}
