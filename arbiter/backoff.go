package arbiter

import (
	"context"
	"fmt"
	"time"
)

// backoff locks in ascending order with a bounded wait per resource.
// A timed out attempt gives back what it holds
// and sleeps before reporting the timeout.
type backoff struct {
	resources     []token
	sleeper       Sleeper
	timeout, base time.Duration
	max           time.Duration
}

func (b *backoff) acquire(ctx context.Context, r *requester) error {
	first, second := r.pair.Ordered()
	acquired, err := b.resources[first].lockWithin(ctx, b.sleeper, b.timeout)
	if err != nil {
		return err
	}
	if !acquired {
		return b.backOff(ctx, r, first)
	}
	if acquired, err = b.resources[second].lockWithin(ctx, b.sleeper, b.timeout); !acquired {
		b.resources[first].unlock()
		if err != nil {
			return err
		}
		return b.backOff(ctx, r, second)
	}
	r.mu.Lock()
	r.failures = 0
	r.mu.Unlock()
	return nil
}

func (b *backoff) backOff(ctx context.Context, r *requester, resource int) error {
	r.mu.Lock()
	delay := b.delay(r.failures, r.rng.Int64N(int64(b.base)+1))
	r.failures++
	r.mu.Unlock()
	timeoutErr := fmt.Errorf("%w: requester %d waited %s for resource %d",
		ErrAcquisitionTimeout, r.index, b.timeout, resource)
	if err := sleep(ctx, b.sleeper, delay); err != nil {
		return fmt.Errorf("%w (backoff interrupted: %w)", timeoutErr, err)
	}
	return timeoutErr
}

// delay is min(max, base·2^failures) + jitter.
func (b *backoff) delay(failures int, jitter int64) time.Duration {
	exponential := b.max
	if failures < 62 {
		if scaled := b.base << failures; scaled > 0 && scaled < b.max {
			exponential = scaled
		}
	}
	return exponential + time.Duration(jitter)
}

func (b *backoff) release(r *requester) {
	first, second := r.pair.Ordered()
	b.resources[second].unlock()
	b.resources[first].unlock()
}
