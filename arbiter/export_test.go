package arbiter

import "time"

// BrokerQueueLen returns the number of requesters
// waiting on a [CentralBroker] arbiter.
func BrokerQueueLen(a *Arbiter) int {
	b := a.strategy.(*broker)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// BackoffDelay exposes the backoff formula of a [TimeoutBackoff] arbiter.
func BackoffDelay(a *Arbiter, failures int, jitter int64) time.Duration {
	return a.strategy.(*backoff).delay(failures, jitter)
}
