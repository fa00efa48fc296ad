package pagesim

// LRUPolicy evicts the resident key with the
// smallest last-access logical time.
// Ties are broken by the lowest slot index.
type LRUPolicy[Key comparable] struct {
	lastUsed    map[Key]uint64
	accesses    uint64
	granularity uint64
}

// NewLRU returns an [LRUPolicy] whose logical clock
// advances on every access, so ties cannot occur.
func NewLRU[Key comparable](capacity int) *LRUPolicy[Key] {
	return NewCoarseLRU[Key](capacity, 1)
}

// NewCoarseLRU returns an [LRUPolicy] whose logical clock
// advances once every granularity accesses.
// Keys touched within the same tick share a timestamp.
func NewCoarseLRU[Key comparable](capacity, granularity int) *LRUPolicy[Key] {
	return &LRUPolicy[Key]{
		lastUsed:    make(map[Key]uint64, max(capacity, 0)),
		granularity: uint64(max(granularity, 1)),
	}
}

func (p *LRUPolicy[Key]) OnAccess(key Key) {
	p.accesses++
	p.lastUsed[key] = p.accesses / p.granularity
}

func (p *LRUPolicy[Key]) OnRemove(key Key) {
	delete(p.lastUsed, key)
}

func (p *LRUPolicy[Key]) SelectVictim(residents Residents[Key]) Key {
	var (
		victim Key
		oldest uint64
		found  bool
	)
	for _, key := range residents.Slots() {
		used := p.lastUsed[key]
		if !found || used < oldest {
			victim, oldest, found = key, used, true
		}
	}
	if !found {
		emptyVictimPanic(LRU)
	}
	return victim
}

func (p *LRUPolicy[Key]) Reset() {
	clear(p.lastUsed)
	p.accesses = 0
}
