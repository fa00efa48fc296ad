package arbiter

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

type (
	// Config describes the resource ring and strategy parameters.
	// Zero durations and limits select the defaults noted per field.
	Config struct {
		// Resources is the ring size N (at least 2).
		Resources int
		Strategy  Strategy
		// Timeout bounds each resource wait of [TimeoutBackoff].
		// Default 1s.
		Timeout time.Duration
		// BackoffBase is the first backoff delay and the jitter range
		// of [TimeoutBackoff]. Default 100ms.
		BackoffBase time.Duration
		// BackoffMax caps the exponential part of the backoff.
		// Default 2s.
		BackoffMax time.Duration
		// AdmissionLimit is the number of concurrent attempts
		// [BoundedConcurrency] admits. Default and maximum N-1.
		AdmissionLimit int
		// AgingMax is the [PriorityAging] delay at priority 0.
		// Default 100ms.
		AgingMax time.Duration
		// AgingStep is subtracted from the delay per unit of priority.
		// Default 20ms.
		AgingStep time.Duration
		// Seed makes backoff jitter reproducible.
		Seed uint64
	}
	// Pair holds the two resources a requester needs.
	Pair struct{ Left, Right int }
	// Arbiter hands out [Guard]s over resource pairs.
	// It is safe for concurrent use, but each requester index
	// must be driven by at most one goroutine at a time.
	// Constructed by [New].
	Arbiter struct {
		strategy   acquirer
		logger     *slog.Logger
		requesters []requester
		config     Config
	}
	// Guard is proof of ownership of a [Pair].
	Guard struct {
		arbiter   *Arbiter
		requester *requester
		released  atomic.Bool
	}
	acquirer interface {
		acquire(ctx context.Context, r *requester) error
		release(r *requester)
	}
	requester struct {
		rng          *rand.Rand
		pair         Pair
		index        int
		acquisitions atomic.Uint64
		timeouts     atomic.Uint64
		mu           sync.Mutex
		failures     int
		priority     int
	}
)

const (
	defaultTimeout     = time.Second
	defaultBackoffBase = 100 * time.Millisecond
	defaultBackoffMax  = 2 * time.Second
	defaultAgingMax    = 100 * time.Millisecond
	defaultAgingStep   = 20 * time.Millisecond
)

// PairOf returns the pair requester i needs in a ring of n resources.
func PairOf(i, n int) Pair { return Pair{Left: i, Right: (i + 1) % n} }

// Ordered returns the pair's resources lowest first.
func (p Pair) Ordered() (first, second int) {
	if p.Left < p.Right {
		return p.Left, p.Right
	}
	return p.Right, p.Left
}

func (p Pair) overlaps(other Pair) bool {
	return p.Left == other.Left || p.Left == other.Right ||
		p.Right == other.Left || p.Right == other.Right
}

// New validates config, fills in its defaults
// and constructs an [Arbiter] for it.
func New(config Config, options ...Option) (*Arbiter, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	settings := makeSettings(options)
	var (
		n       = config.Resources
		tokens  = newTokens(n)
		sleeper = settings.sleeper
		arbiter = &Arbiter{
			logger:     settings.logger,
			requesters: make([]requester, n),
			config:     config,
		}
	)
	for i := range arbiter.requesters {
		arbiter.requesters[i] = requester{
			rng:   newRequesterRNG(config.Seed, i),
			pair:  PairOf(i, n),
			index: i,
		}
	}
	switch config.Strategy {
	case BoundedConcurrency:
		arbiter.strategy = &bounded{
			admission: make(chan struct{}, config.AdmissionLimit),
			resources: tokens,
		}
	case CentralBroker:
		arbiter.strategy = newBroker(n)
	case TimeoutBackoff:
		arbiter.strategy = &backoff{
			resources: tokens,
			sleeper:   sleeper,
			timeout:   config.Timeout,
			base:      config.BackoffBase,
			max:       config.BackoffMax,
		}
	case PriorityAging:
		arbiter.strategy = &aging{
			resources: tokens,
			sleeper:   sleeper,
			max:       config.AgingMax,
			step:      config.AgingStep,
		}
	}
	return arbiter, nil
}

func withDefaults(config Config) (Config, error) {
	if config.Resources < 2 {
		return config, configError("need at least 2 resources but %d were requested",
			config.Resources)
	}
	switch config.Strategy {
	case BoundedConcurrency, CentralBroker, TimeoutBackoff, PriorityAging:
	default:
		return config, fmt.Errorf("%w: %s", ErrInvalidStrategy, config.Strategy)
	}
	for _, field := range []struct {
		value    *time.Duration
		name     string
		fallback time.Duration
	}{
		{&config.Timeout, "timeout", defaultTimeout},
		{&config.BackoffBase, "backoff base", defaultBackoffBase},
		{&config.BackoffMax, "backoff max", defaultBackoffMax},
		{&config.AgingMax, "aging max", defaultAgingMax},
		{&config.AgingStep, "aging step", defaultAgingStep},
	} {
		switch {
		case *field.value < 0:
			return config, configError("%s must be >=0 but was %s",
				field.name, *field.value)
		case *field.value == 0:
			*field.value = field.fallback
		}
	}
	if config.BackoffMax < config.BackoffBase {
		return config, configError("backoff max %s is below backoff base %s",
			config.BackoffMax, config.BackoffBase)
	}
	limit := config.Resources - 1
	switch {
	case config.AdmissionLimit == 0:
		config.AdmissionLimit = limit
	case config.AdmissionLimit < 0, config.AdmissionLimit > limit:
		return config, configError("admission limit must be in [1, %d] but was %d",
			limit, config.AdmissionLimit)
	}
	return config, nil
}

func newRequesterRNG(seed uint64, index int) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(index))
	hash := xxhash.Sum64(buf[:])
	return rand.New(rand.NewPCG(hash, seed))
}

// Config returns the configuration in effect, defaults included.
func (a *Arbiter) Config() Config { return a.config }

// Resources returns the ring size N.
func (a *Arbiter) Resources() int { return len(a.requesters) }

// Acquire blocks until requester owns both resources of its pair,
// ctx is done, or (for [TimeoutBackoff]) a wait times out,
// in which case the returned error wraps [ErrAcquisitionTimeout].
// [CentralBroker] only observes ctx before queueing.
func (a *Arbiter) Acquire(ctx context.Context, requester int) (*Guard, error) {
	if requester < 0 || requester >= len(a.requesters) {
		return nil, fmt.Errorf("%w: %d is outside of [0, %d)",
			ErrUnknownRequester, requester, len(a.requesters))
	}
	r := &a.requesters[requester]
	if err := a.strategy.acquire(ctx, r); err != nil {
		if isTimeout(err) {
			r.timeouts.Add(1)
			a.logger.LogAttrs(ctx, slog.LevelDebug, "timeout",
				slog.Int("requester", r.index),
				slog.String("strategy", a.config.Strategy.String()),
			)
		}
		return nil, err
	}
	r.acquisitions.Add(1)
	a.logger.LogAttrs(ctx, slog.LevelDebug, "granted",
		slog.Int("requester", r.index),
		slog.Int("left", r.pair.Left),
		slog.Int("right", r.pair.Right),
		slog.String("strategy", a.config.Strategy.String()),
	)
	return &Guard{arbiter: a, requester: r}, nil
}

// Reset clears every counter and per-requester
// backoff or priority state. No guard may be outstanding.
func (a *Arbiter) Reset() {
	for i := range a.requesters {
		r := &a.requesters[i]
		r.acquisitions.Store(0)
		r.timeouts.Store(0)
		r.mu.Lock()
		r.failures, r.priority = 0, 0
		r.mu.Unlock()
	}
}

// Pair returns the resources the guard owns.
func (g *Guard) Pair() Pair { return g.requester.pair }

// Requester returns the index of the guard's owner.
func (g *Guard) Requester() int { return g.requester.index }

// Release gives up ownership.
// Calls after the first have no effect.
func (g *Guard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.arbiter.strategy.release(g.requester)
	}
}
