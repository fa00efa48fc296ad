package pagesim

import (
	"fmt"
	"strings"

	"github.com/djdv/go-pagesim/internal/ring"
)

type (
	// Policy decides which resident key to evict
	// when an admission misses on a full [Table].
	// A policy owns only its own ordering metadata, never the table.
	Policy[Key comparable] interface {
		// OnAccess is called on every hit and
		// after every successful insertion.
		OnAccess(key Key)
		// OnRemove is called when key leaves the table,
		// by eviction or invalidation.
		OnRemove(key Key)
		// SelectVictim returns a resident key.
		// Calling it on an empty table is a programming error and panics.
		SelectVictim(residents Residents[Key]) Key
		// Reset discards all ordering metadata.
		Reset()
	}
	// PolicyKind enumerates the built-in [Policy] variants.
	PolicyKind uint8
)

const (
	// FIFO evicts the least recently inserted key.
	FIFO PolicyKind = iota + 1
	// LRU evicts the least recently accessed key.
	LRU
	// Clock evicts the first unreferenced key under a circular hand,
	// giving referenced keys a second chance.
	Clock
)

// ErrPreconditionViolation is the panic value (wrapped)
// raised when a [Policy] is asked for a victim of an empty table.
const ErrPreconditionViolation = constError("precondition violation")

// checkRing asserts that the ring starting at r
// holds exactly the elements of index.
func checkRing[Key comparable](r *ring.Ring[Key], index map[Key]*ring.Ring[Key]) {
	assert(r.Len() == len(index), "ring length differs from its index")
	for element := range r.Iter() {
		assert(index[element.Key] == element, "ring element is not indexed")
	}
}

func emptyVictimPanic(policy PolicyKind) {
	panic(fmt.Errorf(
		"%w: %s victim requested from an empty table",
		ErrPreconditionViolation, policy))
}

// NewPolicy constructs a policy of the given kind,
// sized for a table of capacity slots.
func NewPolicy[Key comparable](kind PolicyKind, capacity int) (Policy[Key], error) {
	switch kind {
	case FIFO:
		return NewFIFO[Key](capacity), nil
	case LRU:
		return NewLRU[Key](capacity), nil
	case Clock:
		return NewClock[Key](capacity), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicy, kind)
	}
}

// ParsePolicyKind accepts the (case-insensitive) name of a policy.
func ParsePolicyKind(name string) (PolicyKind, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FIFO":
		return FIFO, nil
	case "LRU":
		return LRU, nil
	case "CLOCK", "SECOND-CHANCE":
		return Clock, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}
}

func (kind PolicyKind) String() string {
	switch kind {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case Clock:
		return "CLOCK"
	default:
		return fmt.Sprintf("PolicyKind(%d)", uint8(kind))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (kind PolicyKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (kind *PolicyKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicyKind(string(text))
	if err != nil {
		return err
	}
	*kind = parsed
	return nil
}
