package pagesim

import "fmt"

type (
	// WorkingSet estimates the number of distinct keys
	// referenced within a trailing window of Δ logical time units.
	// It observes a trace; it does not control admission.
	// Constructed by [NewWorkingSet].
	WorkingSet[Key comparable] struct {
		counts map[Key]int // References per key inside the window.
		recent []Key       // Circular buffer of the last window+1 keys.
		sizes  []int
		window int
		time   int
	}
	// WorkingSetSummary aggregates the sizes observed so far.
	WorkingSetSummary struct {
		Min, Max int
		Mean     float64
	}
)

// NewWorkingSet creates a [WorkingSet] with window Δ.
// At time t the working set covers references t-Δ through t inclusive.
func NewWorkingSet[Key comparable](window int) (*WorkingSet[Key], error) {
	if window <= 0 {
		return nil, fmt.Errorf(
			"%w: must be >0 but %d was requested",
			ErrInvalidWindow, window)
	}
	return &WorkingSet[Key]{
		counts: make(map[Key]int, window+1),
		recent: make([]Key, window+1),
		window: window,
	}, nil
}

// Observe records a reference to key and
// returns the current working set size.
func (ws *WorkingSet[Key]) Observe(key Key) int {
	span := len(ws.recent)
	if ws.time >= span {
		expired := ws.recent[ws.time%span]
		if ws.counts[expired]--; ws.counts[expired] == 0 {
			delete(ws.counts, expired)
		}
	}
	ws.recent[ws.time%span] = key
	ws.counts[key]++
	ws.time++
	size := len(ws.counts)
	ws.sizes = append(ws.sizes, size)
	return size
}

// Contains reports whether key is in the current working set.
func (ws *WorkingSet[Key]) Contains(key Key) bool {
	_, ok := ws.counts[key]
	return ok
}

// Size returns the current working set size.
func (ws *WorkingSet[_]) Size() int { return len(ws.counts) }

// Window returns Δ.
func (ws *WorkingSet[_]) Window() int { return ws.window }

// Sizes returns the working set size after each observation.
// The returned slice must not be modified.
func (ws *WorkingSet[_]) Sizes() []int { return ws.sizes }

// Summary returns the minimum, maximum and mean working set size.
// The zero value is returned if nothing has been observed.
func (ws *WorkingSet[_]) Summary() WorkingSetSummary {
	if len(ws.sizes) == 0 {
		return WorkingSetSummary{}
	}
	summary := WorkingSetSummary{
		Min: ws.sizes[0],
		Max: ws.sizes[0],
	}
	var sum int
	for _, size := range ws.sizes {
		summary.Min = min(summary.Min, size)
		summary.Max = max(summary.Max, size)
		sum += size
	}
	summary.Mean = float64(sum) / float64(len(ws.sizes))
	return summary
}

// Distribution counts how many observations had each working set size.
func (ws *WorkingSet[_]) Distribution() map[int]int {
	distribution := make(map[int]int)
	for _, size := range ws.sizes {
		distribution[size]++
	}
	return distribution
}

// Reset discards all observations.
func (ws *WorkingSet[Key]) Reset() {
	clear(ws.counts)
	clear(ws.recent)
	ws.sizes = ws.sizes[:0]
	ws.time = 0
}
