// Package ring is a specialized adaption of `container/ring`
// for tracking resident keys in arrival (FIFO) and clock (second chance) order.
package ring

import "iter"

// A Ring is an element of a circular list of keys.
// A pointer to any element serves as reference to the entire ring.
// Empty rings are represented as nil Ring pointers.
// The zero value is a one-element ring holding the zero Key.
type Ring[Key comparable] struct {
	next, prev *Ring[Key]
	// Key is the resident key this element tracks.
	Key Key
	// Referenced is set on access and cleared
	// when a clock hand passes over the element.
	Referenced bool
}

// New returns a one-element ring holding key.
func New[Key comparable](key Key) *Ring[Key] {
	r := &Ring[Key]{Key: key}
	return r.init()
}

func (r *Ring[Key]) init() *Ring[Key] {
	r.next = r
	r.prev = r
	return r
}

// Next returns the next ring element. r must not be empty.
func (r *Ring[Key]) Next() *Ring[Key] {
	if r.next == nil {
		return r.init()
	}
	return r.next
}

// Prev returns the previous ring element. r must not be empty.
func (r *Ring[Key]) Prev() *Ring[Key] {
	if r.next == nil {
		return r.init()
	}
	return r.prev
}

// Move moves n % r.Len() elements backward (n < 0) or forward (n >= 0)
// in the ring and returns that ring element. r must not be empty.
func (r *Ring[Key]) Move(n int) *Ring[Key] {
	if r.next == nil {
		return r.init()
	}
	switch {
	case n < 0:
		for ; n < 0; n++ {
			r = r.prev
		}
	case n > 0:
		for ; n > 0; n-- {
			r = r.next
		}
	}
	return r
}

// Link connects ring r with ring s such that r.Next()
// becomes s and returns the original value for r.Next().
// r must not be empty.
//
// If r and s are the same ring, the elements between them
// are removed and returned as a subring.
// If they are different rings, s is spliced in after r.
func (r *Ring[Key]) Link(s *Ring[Key]) *Ring[Key] {
	n := r.Next()
	if s != nil {
		p := s.Prev()
		// Multiple assignment is avoided here;
		// LHS evaluation order is unspecified.
		r.next = s
		s.prev = r
		n.prev = p
		p.next = n
	}
	return n
}

// Unlink removes n % r.Len() elements from the ring r, starting
// at r.Next(). If n % r.Len() == 0, r remains unchanged.
// The result is the removed subring. r must not be empty.
func (r *Ring[Key]) Unlink(n int) *Ring[Key] {
	if n <= 0 {
		return nil
	}
	return r.Link(r.Move(n + 1))
}

// Detach removes r from the ring it belongs to and
// returns the element that followed it, or nil
// if r was the only element.
func (r *Ring[Key]) Detach() *Ring[Key] {
	next := r.Next()
	if next == r {
		return nil
	}
	r.Prev().Unlink(1)
	return next
}

// Len computes the number of elements in ring r.
// It executes in time proportional to the number of elements.
func (r *Ring[Key]) Len() int {
	n := 0
	if r != nil {
		n = 1
		for p := r.Next(); p != r; p = p.next {
			n++
		}
	}
	return n
}

// Iter returns an iterator over the ring elements,
// in forward order, starting at r.
// The behavior is undefined if the ring is modified during iteration.
func (r *Ring[Key]) Iter() iter.Seq[*Ring[Key]] {
	return func(yield func(*Ring[Key]) bool) {
		if r == nil ||
			!yield(r) {
			return
		}
		for p := r.Next(); p != r; p = p.next {
			if !yield(p) {
				return
			}
		}
	}
}
