package arbiter

import "context"

// bounded admits fewer requesters than there are resources,
// so the ring can never fill with requesters holding one resource each.
type bounded struct {
	admission chan struct{}
	resources []token
}

func (b *bounded) acquire(ctx context.Context, r *requester) error {
	select {
	case b.admission <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	left := b.resources[r.pair.Left]
	if err := left.lock(ctx); err != nil {
		<-b.admission
		return err
	}
	if err := b.resources[r.pair.Right].lock(ctx); err != nil {
		left.unlock()
		<-b.admission
		return err
	}
	return nil
}

func (b *bounded) release(r *requester) {
	b.resources[r.pair.Right].unlock()
	b.resources[r.pair.Left].unlock()
	<-b.admission
}
