package pagesim

import "log/slog"

type (
	// Option configures an [Engine].
	Option   func(*settings)
	settings struct {
		logger *slog.Logger
		name   string
	}
)

func makeSettings(options []Option) settings {
	s := settings{
		logger: slog.New(slog.DiscardHandler),
		name:   "engine",
	}
	for _, apply := range options {
		apply(&s)
	}
	return s
}

// WithLogger directs per-access debug records to logger.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName labels the engine in log records,
// e.g. "tlb" or "page-table".
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}
