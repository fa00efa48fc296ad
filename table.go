package pagesim

import "iter"

type (
	// Table is a fixed-size array of slots,
	// each holding at most one key and its payload.
	// It holds no replacement logic of its own;
	// victims are chosen by a caller supplied [Policy].
	// Constructed by [NewTable].
	Table[Key comparable, Payload any] struct {
		slots []slot[Key, Payload]
		index map[Key]int
		free  []int // Unoccupied slot indices, lowest last.
	}
	slot[Key comparable, Payload any] struct {
		key      Key
		payload  Payload
		occupied bool
		dirty    bool
	}
	// Residents is the read-only view of a table
	// handed to [Policy.SelectVictim].
	Residents[Key comparable] interface {
		// Slots yields occupied slot indices and their keys
		// in ascending index order.
		Slots() iter.Seq2[int, Key]
		Occupancy() int
	}
)

// NewTable creates a [Table] with the given number of slots.
func NewTable[Key comparable, Payload any](capacity int) (*Table[Key, Payload], error) {
	if capacity <= 0 {
		return nil, capacityError(capacity)
	}
	free := make([]int, capacity)
	for i := range free {
		free[i] = capacity - 1 - i
	}
	return &Table[Key, Payload]{
		slots: make([]slot[Key, Payload], capacity),
		index: make(map[Key]int, capacity),
		free:  free,
	}, nil
}

// Lookup returns the payload for key if it is resident.
// It has no effect on any policy state.
func (t *Table[Key, Payload]) Lookup(key Key) (Payload, bool) {
	if i, ok := t.index[key]; ok {
		return t.slots[i].payload, true
	}
	var zero Payload
	return zero, false
}

// Insert binds key to payload.
// If key is already resident its payload is updated in place
// and nothing is evicted. Otherwise, if the table is full,
// policy selects a victim which is removed before key is inserted.
// The evicted key is returned along with true if an eviction happened.
func (t *Table[Key, Payload]) Insert(key Key, payload Payload, policy Policy[Key]) (Key, bool) {
	var evicted Key
	if i, ok := t.index[key]; ok {
		t.slots[i].payload = payload
		return evicted, false
	}
	hadVictim := false
	if t.IsFull() {
		evicted = policy.SelectVictim(t)
		t.Remove(evicted)
		policy.OnRemove(evicted)
		hadVictim = true
	}
	t.place(key, payload)
	return evicted, hadVictim
}

func (t *Table[Key, Payload]) place(key Key, payload Payload) {
	last := len(t.free) - 1
	i := t.free[last]
	t.free = t.free[:last]
	t.slots[i] = slot[Key, Payload]{
		key:      key,
		payload:  payload,
		occupied: true,
	}
	t.index[key] = i
	if debugging {
		assert(len(t.index) <= len(t.slots),
			"occupancy exceeds capacity")
	}
}

// Remove unbinds key, reporting whether it was resident.
func (t *Table[Key, Payload]) Remove(key Key) bool {
	i, ok := t.index[key]
	if !ok {
		return false
	}
	delete(t.index, key)
	t.slots[i] = slot[Key, Payload]{}
	t.releaseSlot(i)
	return true
}

// releaseSlot keeps the free list sorted descending
// so the lowest free index is always reused first.
func (t *Table[Key, Payload]) releaseSlot(i int) {
	at := len(t.free)
	for at > 0 && t.free[at-1] < i {
		at--
	}
	t.free = append(t.free, 0)
	copy(t.free[at+1:], t.free[at:])
	t.free[at] = i
}

// MarkDirty flags a resident key as modified.
func (t *Table[Key, Payload]) MarkDirty(key Key) bool {
	i, ok := t.index[key]
	if ok {
		t.slots[i].dirty = true
	}
	return ok
}

// Dirty reports whether key is resident and modified.
func (t *Table[Key, Payload]) Dirty(key Key) bool {
	i, ok := t.index[key]
	return ok && t.slots[i].dirty
}

// IsFull reports whether every slot is occupied.
func (t *Table[_, _]) IsFull() bool { return len(t.index) == len(t.slots) }

// Occupancy returns the number of occupied slots.
func (t *Table[_, _]) Occupancy() int { return len(t.index) }

// Capacity returns the number of slots.
func (t *Table[_, _]) Capacity() int { return len(t.slots) }

// Slots returns an iterator over occupied slots in ascending index order.
func (t *Table[Key, _]) Slots() iter.Seq2[int, Key] {
	return func(yield func(int, Key) bool) {
		for i := range t.slots {
			if s := &t.slots[i]; s.occupied {
				if !yield(i, s.key) {
					return
				}
			}
		}
	}
}

// Keys returns an iterator over resident keys in slot order.
func (t *Table[Key, _]) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for _, key := range t.Slots() {
			if !yield(key) {
				return
			}
		}
	}
}

// Clear empties every slot.
func (t *Table[Key, Payload]) Clear() {
	capacity := len(t.slots)
	clear(t.slots)
	clear(t.index)
	t.free = t.free[:0]
	for i := capacity - 1; i >= 0; i-- {
		t.free = append(t.free, i)
	}
}
