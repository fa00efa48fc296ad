package arbiter

import (
	"context"
	"slices"
	"sync"
)

// broker reserves both resources of a pair under one lock.
// Queued requesters are served in arrival order
// among those whose pairs overlap.
type broker struct {
	mu        sync.Mutex
	available *sync.Cond
	busy      []bool
	queue     []*requester
}

func newBroker(resources int) *broker {
	b := &broker{busy: make([]bool, resources)}
	b.available = sync.NewCond(&b.mu)
	return b
}

func (b *broker) acquire(ctx context.Context, r *requester) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, r)
	for !b.grantable(r) {
		b.available.Wait()
	}
	b.queue = slices.DeleteFunc(b.queue, func(queued *requester) bool {
		return queued == r
	})
	b.busy[r.pair.Left], b.busy[r.pair.Right] = true, true
	return nil
}

// grantable reports whether both resources of r are free
// and no requester queued before r wants either of them.
func (b *broker) grantable(r *requester) bool {
	if b.busy[r.pair.Left] || b.busy[r.pair.Right] {
		return false
	}
	for _, queued := range b.queue {
		if queued == r {
			break
		}
		if queued.pair.overlaps(r.pair) {
			return false
		}
	}
	return true
}

func (b *broker) release(r *requester) {
	b.mu.Lock()
	b.busy[r.pair.Left], b.busy[r.pair.Right] = false, false
	b.mu.Unlock()
	b.available.Broadcast()
}
