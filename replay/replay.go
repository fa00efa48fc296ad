// Package replay runs a reference string against interchangeable
// cache backends, so policies (and third-party caches) can be
// compared on exactly the same input.
package replay

import (
	"fmt"
	"maps"
	"slices"

	"github.com/djdv/go-pagesim"
	"github.com/djdv/go-pagesim/trace"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type (
	// Backend is the minimal cache surface a replay needs.
	// Get must count as a reference (update recency) on a hit.
	Backend interface {
		Get(key int) (int, bool)
		Set(key, value int)
	}
	// Constructor names a backend and builds it for a capacity.
	Constructor struct {
		New  func(capacity int) (Backend, error)
		Name string
	}
	// Result summarizes one replay.
	Result struct {
		Name        string
		Capacity    int
		Fingerprint uint64
		Accesses, Hits,
		Faults uint64
	}
	// Anomaly records a capacity increase that raised the fault count.
	Anomaly struct{ Smaller, Larger Result }

	engineBackend struct{ *pagesim.Engine[int, int] }
	arcBackend    struct{ *arc.ARCCache[int, int] }
	lruBackend    struct{ *lru.Cache[int, int] }
)

func (eb engineBackend) Get(key int) (int, bool) {
	// A nil loader makes a miss a no-op.
	event, err := eb.Access(key, nil)
	if err != nil {
		return 0, false
	}
	return event.Payload, true
}

func (eb engineBackend) Set(key, value int) {
	load := func(int) (int, error) { return value, nil }
	if _, err := eb.Access(key, load); err != nil {
		panic(err) // load cannot fail.
	}
}

func (ab arcBackend) Set(key, value int) { ab.Add(key, value) }

func (lb lruBackend) Set(key, value int) { lb.Add(key, value) }

// Engine replays through a [pagesim.Engine] using a built-in policy.
func Engine(kind pagesim.PolicyKind) Constructor {
	return Constructor{
		Name: kind.String(),
		New: func(capacity int) (Backend, error) {
			engine, err := pagesim.NewKind[int, int](capacity, kind)
			if err != nil {
				return nil, err
			}
			return engineBackend{Engine: engine}, nil
		},
	}
}

// ARC replays through hashicorp's adaptive replacement cache.
func ARC() Constructor {
	return Constructor{
		Name: "ARC",
		New: func(capacity int) (Backend, error) {
			cache, err := arc.NewARC[int, int](capacity)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", pagesim.ErrInvalidCapacity, err)
			}
			return arcBackend{ARCCache: cache}, nil
		},
	}
}

// HashicorpLRU replays through hashicorp's LRU cache,
// a reference implementation for [pagesim.LRU].
func HashicorpLRU() Constructor {
	return Constructor{
		Name: "hashicorp-LRU",
		New: func(capacity int) (Backend, error) {
			cache, err := lru.New[int, int](capacity)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", pagesim.ErrInvalidCapacity, err)
			}
			return lruBackend{Cache: cache}, nil
		},
	}
}

// Constructors returns every backend this package knows.
func Constructors() []Constructor {
	return []Constructor{
		Engine(pagesim.FIFO),
		Engine(pagesim.LRU),
		Engine(pagesim.Clock),
		ARC(),
		HashicorpLRU(),
	}
}

// Run replays keys against backend.
// A miss is followed by a Set, as a demand pager would.
func Run(keys []int, backend Backend) Result {
	var result Result
	for _, key := range keys {
		result.Accesses++
		if _, ok := backend.Get(key); ok {
			result.Hits++
			continue
		}
		result.Faults++
		backend.Set(key, key)
	}
	result.Fingerprint = trace.Fingerprint(keys)
	return result
}

// Sweep replays keys against fresh backends of each capacity.
func Sweep(keys []int, ctor Constructor, capacities []int) ([]Result, error) {
	results := make([]Result, 0, len(capacities))
	for _, capacity := range capacities {
		backend, err := ctor.New(capacity)
		if err != nil {
			return nil, fmt.Errorf("%s with capacity %d: %w", ctor.Name, capacity, err)
		}
		result := Run(keys, backend)
		result.Name = ctor.Name
		result.Capacity = capacity
		results = append(results, result)
	}
	return results, nil
}

// Compare sweeps every constructor over the same keys.
func Compare(keys []int, ctors []Constructor, capacities []int) ([]Result, error) {
	var results []Result
	for _, ctor := range ctors {
		swept, err := Sweep(keys, ctor, capacities)
		if err != nil {
			return nil, err
		}
		results = append(results, swept...)
	}
	return results, nil
}

// Anomalies finds, per backend, pairs of results where a larger
// capacity produced more faults than a smaller one (Belady's anomaly).
func Anomalies(results []Result) []Anomaly {
	byName := make(map[string][]Result)
	for _, result := range results {
		byName[result.Name] = append(byName[result.Name], result)
	}
	var anomalies []Anomaly
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		group := byName[name]
		slices.SortFunc(group, func(a, b Result) int { return a.Capacity - b.Capacity })
		for i := 1; i < len(group); i++ {
			if smaller, larger := group[i-1], group[i]; larger.Capacity > smaller.Capacity &&
				larger.Faults > smaller.Faults {
				anomalies = append(anomalies, Anomaly{Smaller: smaller, Larger: larger})
			}
		}
	}
	return anomalies
}

// HitRate is hits over accesses.
func (r Result) HitRate() float64 {
	if r.Accesses == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Accesses)
}
