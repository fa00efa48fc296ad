package arbiter

import (
	"fmt"
	"strings"
)

// Strategy selects how an [Arbiter] avoids deadlock.
type Strategy uint8

const (
	// BoundedConcurrency admits at most AdmissionLimit concurrent attempts.
	BoundedConcurrency Strategy = iota + 1
	// CentralBroker reserves both resources of a pair atomically.
	CentralBroker
	// TimeoutBackoff gives up on a pair after a timeout and backs off.
	TimeoutBackoff
	// PriorityAging orders acquisition and delays by waiting priority.
	PriorityAging
)

// ParseStrategy accepts the (case-insensitive) name of a strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bounded", "bounded-concurrency", "semaphore":
		return BoundedConcurrency, nil
	case "broker", "central-broker", "waiter":
		return CentralBroker, nil
	case "timeout", "timeout-backoff", "backoff":
		return TimeoutBackoff, nil
	case "aging", "priority-aging", "priority":
		return PriorityAging, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
	}
}

func (strategy Strategy) String() string {
	switch strategy {
	case BoundedConcurrency:
		return "bounded-concurrency"
	case CentralBroker:
		return "central-broker"
	case TimeoutBackoff:
		return "timeout-backoff"
	case PriorityAging:
		return "priority-aging"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(strategy))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (strategy Strategy) MarshalText() ([]byte, error) {
	return []byte(strategy.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (strategy *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*strategy = parsed
	return nil
}
