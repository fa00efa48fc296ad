package pagesim

import "fmt"

type (
	// Outcome classifies a single access.
	Outcome uint8
	// Access is the key-independent part of an [Event],
	// which is all a [Recorder] needs.
	Access struct {
		// Time is the engine's logical clock at the access.
		Time    uint64
		Outcome Outcome
		// Write is true if the request modified the key.
		Write bool
		// VictimDirty is true if the evicted key
		// had been written and must be written back.
		VictimDirty bool
		// Installed is true if the key was made resident by
		// [Engine.Install] rather than requested. Such events
		// count evictions but not accesses.
		Installed bool
	}
	// Event records the terminal state of one access request.
	// Events are values; they are never mutated after creation.
	Event[Key comparable, Payload any] struct {
		Key Key
		// Victim is only meaningful when Outcome is [Evicted].
		Victim  Key
		Payload Payload
		Access
	}
)

const (
	// Hit means the key was resident.
	Hit Outcome = iota + 1
	// Fault means the key was loaded into a free slot.
	Fault
	// Evicted means the key was loaded after evicting Victim.
	Evicted
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Fault:
		return "fault"
	case Evicted:
		return "evicted"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Missed reports whether the access had to load its payload.
func (o Outcome) Missed() bool { return o == Fault || o == Evicted }
