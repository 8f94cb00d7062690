package app

import (
	"context"
	"math/rand"
	"time"
)

// DefaultRetryDelayMax caps the settle delay between failed isolation reads.
const DefaultRetryDelayMax = 10 * time.Second

// backoff implements exponential backoff with jitter. A zero initial
// duration disables waiting entirely.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		sleep:   sleepContext,
	}
}

// Wait sleeps for the current backoff duration and increases it. It returns
// early with ctx.Err() if ctx is canceled.
func (b *backoff) Wait(ctx context.Context) error {
	if b.initial <= 0 {
		return nil
	}

	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	if err := b.sleep(ctx, d); err != nil {
		return err
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return nil
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
