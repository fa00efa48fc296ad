package pagesim

import "fmt"

type (
	// Level identifies where a tiered access was resolved.
	Level uint8
	// Tiered places a small front engine (e.g. a TLB)
	// in front of a primary engine (e.g. a page table).
	// A front miss is resolved by an access on the primary engine,
	// whose own misses go to the backing loader.
	// Constructed by [NewTiered].
	Tiered[Key comparable, Payload any] struct {
		front, back *Engine[Key, Payload]
		backing     Loader[Key, Payload]
	}
	// TieredEvent carries the events of both levels.
	// Back is the zero Event when the front level hit.
	TieredEvent[Key comparable, Payload any] struct {
		Front, Back Event[Key, Payload]
		Level       Level
	}
)

const (
	// LevelFront means the front engine hit.
	LevelFront Level = iota + 1
	// LevelBack means the front missed and the primary engine hit.
	LevelBack
	// LevelBacking means both engines missed
	// and the payload came from the backing loader.
	LevelBacking
)

func (l Level) String() string {
	switch l {
	case LevelFront:
		return "front"
	case LevelBack:
		return "back"
	case LevelBacking:
		return "backing"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// NewTiered composes two engines.
// If backing is nil, a key absent from both engines is a hard fault
// and is reported as [ErrResourceNotFound].
func NewTiered[Key comparable, Payload any](
	front, back *Engine[Key, Payload], backing Loader[Key, Payload],
) *Tiered[Key, Payload] {
	return &Tiered[Key, Payload]{
		front:   front,
		back:    back,
		backing: backing,
	}
}

// Access resolves key through both levels.
func (t *Tiered[Key, Payload]) Access(key Key) (TieredEvent[Key, Payload], error) {
	const write = false
	return t.access(key, write)
}

// Write resolves key through both levels,
// marking it modified at each level it becomes resident in.
func (t *Tiered[Key, Payload]) Write(key Key) (TieredEvent[Key, Payload], error) {
	const write = true
	return t.access(key, write)
}

func (t *Tiered[Key, Payload]) access(key Key, write bool) (TieredEvent[Key, Payload], error) {
	var (
		tiered TieredEvent[Key, Payload]
		fetch  = func(key Key) (Payload, error) {
			var (
				event Event[Key, Payload]
				err   error
			)
			if write {
				event, err = t.back.Write(key, t.backing)
			} else {
				event, err = t.back.Access(key, t.backing)
			}
			if err != nil {
				var zero Payload
				return zero, err
			}
			tiered.Back = event
			return event.Payload, nil
		}
		front Event[Key, Payload]
		err   error
	)
	if write {
		front, err = t.front.Write(key, fetch)
	} else {
		front, err = t.front.Access(key, fetch)
	}
	if err != nil {
		return TieredEvent[Key, Payload]{}, err
	}
	tiered.Front = front
	switch {
	case front.Outcome == Hit:
		tiered.Level = LevelFront
	case tiered.Back.Outcome == Hit:
		tiered.Level = LevelBack
	default:
		tiered.Level = LevelBacking
	}
	return tiered, nil
}

// Front returns the front (cache) engine.
func (t *Tiered[Key, Payload]) Front() *Engine[Key, Payload] { return t.front }

// Back returns the primary engine.
func (t *Tiered[Key, Payload]) Back() *Engine[Key, Payload] { return t.back }

// Invalidate removes key from both levels.
func (t *Tiered[Key, Payload]) Invalidate(key Key) {
	t.front.Invalidate(key)
	t.back.Invalidate(key)
}

// Reset resets both engines.
func (t *Tiered[_, _]) Reset() {
	t.front.Reset()
	t.back.Reset()
}
