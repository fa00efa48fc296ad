package pagesim

import "github.com/djdv/go-pagesim/internal/ring"

// ClockPolicy is the second chance approximation of LRU.
// Keys sit on a ring in arrival order; the hand skips
// (and clears) referenced keys until it finds an unreferenced one.
type ClockPolicy[Key comparable] struct {
	index map[Key]*ring.Ring[Key]
	hand  *ring.Ring[Key]
}

// NewClock returns a [ClockPolicy] sized for capacity keys.
func NewClock[Key comparable](capacity int) *ClockPolicy[Key] {
	return &ClockPolicy[Key]{
		index: make(map[Key]*ring.Ring[Key], max(capacity, 0)),
	}
}

func (p *ClockPolicy[Key]) OnAccess(key Key) {
	if page, ok := p.index[key]; ok {
		page.Referenced = true
		return
	}
	page := ring.New(key)
	page.Referenced = true
	if p.hand == nil {
		p.hand = page
	} else {
		// Insert behind the hand so the new page is examined last.
		p.hand.Prev().Link(page)
	}
	p.index[key] = page
	if debugging {
		checkRing(p.hand, p.index)
	}
}

func (p *ClockPolicy[Key]) OnRemove(key Key) {
	page, ok := p.index[key]
	if !ok {
		return
	}
	delete(p.index, key)
	next := page.Detach()
	if page == p.hand {
		p.hand = next
	}
	if debugging {
		checkRing(p.hand, p.index)
	}
}

// SelectVictim sweeps the hand, clearing reference bits,
// and stops on the first unreferenced page.
// At most one full revolution is needed.
func (p *ClockPolicy[Key]) SelectVictim(residents Residents[Key]) Key {
	if p.hand == nil || residents.Occupancy() == 0 {
		emptyVictimPanic(Clock)
	}
	for p.hand.Referenced {
		p.hand.Referenced = false
		p.hand = p.hand.Next()
	}
	return p.hand.Key
}

func (p *ClockPolicy[Key]) Reset() {
	clear(p.index)
	p.hand = nil
}
