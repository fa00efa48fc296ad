package pagesim

import "github.com/djdv/go-pagesim/internal/ring"

// FIFOPolicy evicts keys in the order they were inserted.
// Hits do not reorder.
type FIFOPolicy[Key comparable] struct {
	index  map[Key]*ring.Ring[Key]
	oldest *ring.Ring[Key]
}

// NewFIFO returns a [FIFOPolicy] sized for capacity keys.
func NewFIFO[Key comparable](capacity int) *FIFOPolicy[Key] {
	return &FIFOPolicy[Key]{
		index: make(map[Key]*ring.Ring[Key], max(capacity, 0)),
	}
}

func (p *FIFOPolicy[Key]) OnAccess(key Key) {
	if _, resident := p.index[key]; resident {
		return
	}
	arrival := ring.New(key)
	if p.oldest == nil {
		p.oldest = arrival
	} else {
		// Newest sits just behind the oldest.
		p.oldest.Prev().Link(arrival)
	}
	p.index[key] = arrival
	if debugging {
		checkRing(p.oldest, p.index)
	}
}

func (p *FIFOPolicy[Key]) OnRemove(key Key) {
	arrival, ok := p.index[key]
	if !ok {
		return
	}
	delete(p.index, key)
	next := arrival.Detach()
	if arrival == p.oldest {
		p.oldest = next
	}
	if debugging {
		checkRing(p.oldest, p.index)
	}
}

func (p *FIFOPolicy[Key]) SelectVictim(residents Residents[Key]) Key {
	if p.oldest == nil || residents.Occupancy() == 0 {
		emptyVictimPanic(FIFO)
	}
	return p.oldest.Key
}

func (p *FIFOPolicy[Key]) Reset() {
	clear(p.index)
	p.oldest = nil
}
