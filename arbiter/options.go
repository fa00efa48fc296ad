package arbiter

import (
	"log/slog"
	"time"
)

type (
	// Option configures an [Arbiter].
	Option   func(*settings)
	settings struct {
		logger  *slog.Logger
		sleeper Sleeper
	}
	// Sleeper supplies the timers an [Arbiter] waits on
	// for timeouts, backoff and aging delays.
	Sleeper interface {
		After(d time.Duration) <-chan time.Time
	}
	// SleeperFunc adapts a function to the [Sleeper] interface.
	SleeperFunc func(d time.Duration) <-chan time.Time
	wallClock   struct{}
)

func (fn SleeperFunc) After(d time.Duration) <-chan time.Time { return fn(d) }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func makeSettings(options []Option) settings {
	s := settings{
		logger:  slog.New(slog.DiscardHandler),
		sleeper: wallClock{},
	}
	for _, apply := range options {
		apply(&s)
	}
	return s
}

// WithLogger directs grant and timeout records to logger.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSleeper replaces the wall clock used for every wait.
func WithSleeper(sleeper Sleeper) Option {
	return func(s *settings) {
		if sleeper != nil {
			s.sleeper = sleeper
		}
	}
}
