package arbiter

import (
	"context"
	"time"
)

// token is a binary semaphore guarding one resource.
// A send acquires it, a receive releases it.
type token chan struct{}

func newTokens(count int) []token {
	tokens := make([]token, count)
	for i := range tokens {
		tokens[i] = make(token, 1)
	}
	return tokens
}

func (t token) lock(ctx context.Context) error {
	select {
	case t <- struct{}{}:
		return nil
	default:
	}
	select {
	case t <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockWithin reports whether the token was acquired
// before sleeper's timer for d fired.
func (t token) lockWithin(ctx context.Context, sleeper Sleeper, d time.Duration) (bool, error) {
	select {
	case t <- struct{}{}:
		return true, nil
	default:
	}
	select {
	case t <- struct{}{}:
		return true, nil
	case <-sleeper.After(d):
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (t token) unlock() {
	select {
	case <-t:
	default:
		panic("arbiter: unlock of an unheld resource")
	}
}

func sleep(ctx context.Context, sleeper Sleeper, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-sleeper.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
