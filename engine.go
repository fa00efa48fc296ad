package pagesim

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
)

type (
	// Loader materializes the payload for a key
	// that is not resident, e.g. a fetch from backing storage.
	// It is the only suspension point of an access.
	Loader[Key comparable, Payload any] func(Key) (Payload, error)
	// Engine orchestrates lookup, hit/miss classification,
	// eviction and insertion over a [Table] it exclusively owns.
	// Concurrent access must be guarded by the caller.
	// Constructed by [New].
	Engine[Key comparable, Payload any] struct {
		table     *Table[Key, Payload]
		policy    Policy[Key]
		observers []func(Event[Key, Payload])
		logger    *slog.Logger
		name      string
		recorder  Recorder
		clock     uint64
	}
)

// New creates an [Engine] with a table of the given capacity,
// delegating victim selection to policy.
func New[Key comparable, Payload any](
	capacity int, policy Policy[Key], options ...Option,
) (*Engine[Key, Payload], error) {
	table, err := NewTable[Key, Payload](capacity)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: nil policy", ErrInvalidPolicy)
	}
	settings := makeSettings(options)
	return &Engine[Key, Payload]{
		table:  table,
		policy: policy,
		logger: settings.logger,
		name:   settings.name,
	}, nil
}

// NewKind is like [New] but constructs one of the built-in policies.
func NewKind[Key comparable, Payload any](
	capacity int, kind PolicyKind, options ...Option,
) (*Engine[Key, Payload], error) {
	if capacity <= 0 {
		return nil, capacityError(capacity)
	}
	policy, err := NewPolicy[Key](kind, capacity)
	if err != nil {
		return nil, err
	}
	return New[Key, Payload](capacity, policy, options...)
}

// Observe registers fn to receive every event the engine emits,
// after it has been recorded.
func (e *Engine[Key, Payload]) Observe(fn func(Event[Key, Payload])) {
	e.observers = append(e.observers, fn)
}

// Access returns the payload for key, calling load on a miss.
// If load returns an error, the request is abandoned
// and the engine's state is left untouched.
// A miss with a nil load is reported as [ErrResourceNotFound].
func (e *Engine[Key, Payload]) Access(key Key, load Loader[Key, Payload]) (Event[Key, Payload], error) {
	const write = false
	return e.access(key, load, write)
}

// Write is like [Engine.Access] but marks the key as modified,
// so its eventual eviction is counted as a writeback.
func (e *Engine[Key, Payload]) Write(key Key, load Loader[Key, Payload]) (Event[Key, Payload], error) {
	const write = true
	return e.access(key, load, write)
}

func (e *Engine[Key, Payload]) access(key Key, load Loader[Key, Payload], write bool) (Event[Key, Payload], error) {
	now := e.clock + 1
	if payload, ok := e.table.Lookup(key); ok {
		e.clock = now
		e.touch(key, write)
		return e.emit(Event[Key, Payload]{
			Key:     key,
			Payload: payload,
			Access: Access{
				Time:    now,
				Outcome: Hit,
				Write:   write,
			},
		}), nil
	}
	if load == nil {
		return Event[Key, Payload]{}, notFoundError(key)
	}
	payload, err := load(key)
	if err != nil {
		return Event[Key, Payload]{}, err
	}
	event := Event[Key, Payload]{
		Key:     key,
		Payload: payload,
		Access: Access{
			Time:    now,
			Outcome: Fault,
			Write:   write,
		},
	}
	if e.table.IsFull() {
		victim := e.policy.SelectVictim(e.table)
		event.Outcome = Evicted
		event.Victim = victim
		event.VictimDirty = e.table.Dirty(victim)
		e.evict(victim)
	}
	e.table.Insert(key, payload, e.policy)
	e.touch(key, write)
	e.clock = now
	if debugging {
		assert(e.table.Occupancy() <= e.table.Capacity(),
			"occupancy exceeds capacity after admission")
	}
	return e.emit(event), nil
}

func (e *Engine[Key, Payload]) touch(key Key, write bool) {
	e.policy.OnAccess(key)
	if write {
		e.table.MarkDirty(key)
	}
}

func (e *Engine[Key, Payload]) evict(victim Key) {
	if !e.table.Remove(victim) {
		panic("eviction policy selected a non-resident key")
	}
	e.policy.OnRemove(victim)
}

func (e *Engine[Key, Payload]) emit(event Event[Key, Payload]) Event[Key, Payload] {
	e.recorder.Record(event.Access)
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		attrs := []slog.Attr{
			slog.String("engine", e.name),
			slog.Any("key", event.Key),
			slog.Uint64("time", event.Time),
			slog.String("outcome", event.Outcome.String()),
		}
		if event.Outcome == Evicted {
			attrs = append(attrs,
				slog.Any("victim", event.Victim),
				slog.Bool("writeback", event.VictimDirty))
		}
		msg := "access"
		if event.Installed {
			msg = "install"
		}
		e.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
	for _, observe := range e.observers {
		observe(event)
	}
	return event
}

// Lookup returns the payload for key if it is resident.
// It does not advance the clock, touch policy state, or record anything.
func (e *Engine[Key, Payload]) Lookup(key Key) (Payload, bool) {
	return e.table.Lookup(key)
}

// Install makes key resident with payload without recording an access,
// e.g. to pre-populate a page table.
// If the table is full, the policy selects a victim which is returned.
// Observers see the admission with [Access.Installed] set.
func (e *Engine[Key, Payload]) Install(key Key, payload Payload) (Key, bool) {
	var victim Key
	if _, ok := e.table.Lookup(key); ok {
		e.table.Insert(key, payload, e.policy)
		e.policy.OnAccess(key)
		return victim, false
	}
	event := Event[Key, Payload]{
		Key:     key,
		Payload: payload,
		Access: Access{
			Time:      e.clock,
			Outcome:   Fault,
			Installed: true,
		},
	}
	if e.table.IsFull() {
		victim = e.policy.SelectVictim(e.table)
		event.Outcome = Evicted
		event.Victim = victim
		event.VictimDirty = e.table.Dirty(victim)
		e.evict(victim)
	}
	e.table.Insert(key, payload, e.policy)
	e.policy.OnAccess(key)
	e.emit(event)
	return victim, event.Outcome == Evicted
}

// Invalidate removes key if it is resident.
func (e *Engine[Key, Payload]) Invalidate(key Key) bool {
	if !e.table.Remove(key) {
		return false
	}
	e.policy.OnRemove(key)
	return true
}

// Reset empties the table and discards policy state,
// the logical clock and statistics, so runs are independent.
func (e *Engine[_, _]) Reset() {
	e.table.Clear()
	e.policy.Reset()
	e.recorder.Reset()
	e.clock = 0
}

// ResetStats zeroes statistics but keeps resident keys.
func (e *Engine[_, _]) ResetStats() { e.recorder.Reset() }

// Stats returns a copy of the engine's counters.
func (e *Engine[_, _]) Stats() Snapshot { return e.recorder.Snapshot() }

// Len returns the number of resident keys.
func (e *Engine[_, _]) Len() int { return e.table.Occupancy() }

// Capacity returns the number of slots.
func (e *Engine[_, _]) Capacity() int { return e.table.Capacity() }

// Keys returns an iterator over resident keys in slot order.
func (e *Engine[Key, _]) Keys() iter.Seq[Key] { return e.table.Keys() }

// Now returns the logical time of the most recent access.
func (e *Engine[_, _]) Now() uint64 { return e.clock }
