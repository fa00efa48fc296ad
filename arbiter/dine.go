package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type (
	// RunConfig describes a [Dine] run.
	RunConfig struct {
		// Work runs while the requester holds its pair.
		// Nil means no work.
		Work func(ctx context.Context, requester int, pair Pair) error
		// Observer, if set, receives every state transition.
		// It is called concurrently from every requester.
		Observer func(requester int, state State)
		// Requesters defaults to the number of resources.
		Requesters int
		// Meals is the number of acquisitions each requester wants.
		Meals int
		// MaxAttempts bounds the timed out attempts a requester
		// makes before giving up on its remaining meals. Default 10.
		MaxAttempts int
	}
	// State is the acquisition state of a requester.
	State uint8
)

// Requester states, in the order a meal passes through them.
const (
	Idle State = iota
	Waiting
	HoldingBoth
	Executing
)

const defaultMaxAttempts = 10

func (state State) String() string {
	switch state {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case HoldingBoth:
		return "holding-both"
	case Executing:
		return "executing"
	default:
		return fmt.Sprintf("State(%d)", uint8(state))
	}
}

// Dine runs every requester in its own goroutine until it has
// eaten its meals, exhausted its attempts, or ctx is done.
// Meals given up on are counted in [Report.Unmet] and
// returned as errors wrapping [ErrAcquisitionTimeout].
func Dine(ctx context.Context, arbiter *Arbiter, config RunConfig) (Report, error) {
	config, err := runDefaults(config, arbiter.Resources())
	if err != nil {
		return Report{}, err
	}
	var (
		wg     sync.WaitGroup
		unmet  = make([]uint64, config.Requesters)
		errs   = make([]error, config.Requesters)
		notify = config.Observer
	)
	if notify == nil {
		notify = func(int, State) {}
	}
	for i := range config.Requesters {
		wg.Go(func() {
			unmet[i], errs[i] = dine(ctx, arbiter, i, config, notify)
		})
	}
	wg.Wait()
	report := arbiter.Report()
	for i, count := range unmet {
		report.PerRequester[i].Unmet = count
		report.Unmet += count
	}
	return report, errors.Join(errs...)
}

func runDefaults(config RunConfig, resources int) (RunConfig, error) {
	switch {
	case config.Requesters == 0:
		config.Requesters = resources
	case config.Requesters < 0, config.Requesters > resources:
		return config, configError("requesters must be in [1, %d] but was %d",
			resources, config.Requesters)
	}
	if config.Meals <= 0 {
		return config, configError("meals must be >0 but was %d", config.Meals)
	}
	switch {
	case config.MaxAttempts == 0:
		config.MaxAttempts = defaultMaxAttempts
	case config.MaxAttempts < 0:
		return config, configError("max attempts must be >=0 but was %d", config.MaxAttempts)
	}
	if config.Work == nil {
		config.Work = func(context.Context, int, Pair) error { return nil }
	}
	return config, nil
}

func dine(ctx context.Context, arbiter *Arbiter, requester int,
	config RunConfig, notify func(int, State),
) (uint64, error) {
	var (
		meals, timeouts int
		lastTimeout     error
	)
	for meals < config.Meals && timeouts < config.MaxAttempts {
		notify(requester, Waiting)
		guard, err := arbiter.Acquire(ctx, requester)
		if err != nil {
			notify(requester, Idle)
			if isTimeout(err) && ctx.Err() == nil {
				timeouts++
				lastTimeout = err
				continue
			}
			return uint64(config.Meals - meals), err
		}
		notify(requester, HoldingBoth)
		notify(requester, Executing)
		err = config.Work(ctx, requester, guard.Pair())
		guard.Release()
		notify(requester, Idle)
		if err != nil {
			return uint64(config.Meals - meals), err
		}
		meals++
	}
	if unmet := config.Meals - meals; unmet > 0 {
		return uint64(unmet), fmt.Errorf("requester %d: %d of %d meals unmet after %d timeouts: %w",
			requester, unmet, config.Meals, timeouts, lastTimeout)
	}
	return 0, nil
}
