package arbiter

import (
	"context"
	"time"
)

// aging locks in ascending order, after a delay that
// shrinks with every attempt since the requester was last served.
type aging struct {
	resources []token
	sleeper   Sleeper
	max, step time.Duration
}

func (a *aging) acquire(ctx context.Context, r *requester) error {
	r.mu.Lock()
	r.priority++
	delay := a.delay(r.priority)
	r.mu.Unlock()
	if err := sleep(ctx, a.sleeper, delay); err != nil {
		return err
	}
	first, second := r.pair.Ordered()
	if err := a.resources[first].lock(ctx); err != nil {
		return err
	}
	if err := a.resources[second].lock(ctx); err != nil {
		a.resources[first].unlock()
		return err
	}
	return nil
}

// delay is max(0, max - priority·step).
func (a *aging) delay(priority int) time.Duration {
	return max(0, a.max-time.Duration(priority)*a.step)
}

func (a *aging) release(r *requester) {
	first, second := r.pair.Ordered()
	a.resources[second].unlock()
	a.resources[first].unlock()
	r.mu.Lock()
	r.priority = 0
	r.mu.Unlock()
}
