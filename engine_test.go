package pagesim_test

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/djdv/go-pagesim"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Fixed RNG seed for reproducibility.
// Change to test variance between runs.
const rngSeed = 1

var (
	// Reference string used by the FIFO and LRU labs.
	referenceTrace = []int{7, 0, 1, 2, 0, 3, 0, 4, 2, 3, 0, 3, 2}
	// Textbook continuation of referenceTrace.
	classicTrace = []int{7, 0, 1, 2, 0, 3, 0, 4, 2, 3, 0, 3, 2, 1, 2, 0, 1, 7, 0, 1}
	// Exhibits Belady's anomaly under FIFO.
	beladyTrace = []int{1, 2, 3, 4, 1, 2, 5, 1, 2, 3, 4, 5}
)

func TestEngine(t *testing.T) {
	t.Run("invalid capacity", invalidCapacity)
	t.Run("nil policy", nilPolicy)
	t.Run("fault counts", faultCounts)
	t.Run("belady anomaly", beladyAnomaly)
	t.Run("lru stack property", lruStackProperty)
	t.Run("lru matches reference", lruMatchesReference)
	t.Run("occupancy bound", occupancyBound)
	t.Run("residents were admitted", residentsWereAdmitted)
	t.Run("lookup is read-only", lookupIsReadOnly)
	t.Run("fresh page survives", freshPageSurvives)
	t.Run("loader error", loaderError)
	t.Run("nil loader", nilLoader)
	t.Run("writeback", writeback)
	t.Run("coarse lru tie break", coarseTieBreak)
	t.Run("reset", reset)
	t.Run("observers", observers)
	t.Run("install", install)
}

func invalidCapacity(t *testing.T) {
	for _, capacity := range []int{-1, 0} {
		t.Run(fmt.Sprintf("%d", capacity), func(t *testing.T) {
			t.Parallel()
			engine, err := pagesim.NewKind[int, int](capacity, pagesim.LRU)
			if engine != nil || !errors.Is(err, pagesim.ErrInvalidCapacity) {
				t.Errorf(
					"NewKind did not reject an invalid capacity: %d (%v)",
					capacity, err,
				)
			}
		})
	}
}

func nilPolicy(t *testing.T) {
	t.Parallel()
	engine, err := pagesim.New[int, int](4, nil)
	if engine != nil || !errors.Is(err, pagesim.ErrInvalidPolicy) {
		t.Errorf("New accepted a nil policy (%v)", err)
	}
}

func faultCounts(t *testing.T) {
	for _, test := range []struct {
		name     string
		trace    []int
		kind     pagesim.PolicyKind
		capacity int
		faults   uint64
	}{
		{"FIFO reference", referenceTrace, pagesim.FIFO, 3, 10},
		{"LRU reference", referenceTrace, pagesim.LRU, 3, 9},
		{"FIFO classic", classicTrace, pagesim.FIFO, 3, 15},
		{"LRU classic", classicTrace, pagesim.LRU, 3, 12},
		{"FIFO belady 3", beladyTrace, pagesim.FIFO, 3, 9},
		{"FIFO belady 4", beladyTrace, pagesim.FIFO, 4, 10},
		{"LRU belady 3", beladyTrace, pagesim.LRU, 3, 10},
		{"LRU belady 4", beladyTrace, pagesim.LRU, 4, 8},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			engine := newEngine(t, test.capacity, test.kind)
			stats := replayTrace(t, engine, test.trace)
			checkFaults(t, stats, test.faults, test.name)
			wantEvictions := test.faults - uint64(test.capacity)
			if stats.Evictions != wantEvictions {
				t.Errorf(
					"unexpected eviction count"+
						"\n\tgot: %d"+
						"\n\twant: %d",
					stats.Evictions, wantEvictions)
			}
		})
	}
}

func beladyAnomaly(t *testing.T) {
	t.Parallel()
	faultsAt := func(capacity int) uint64 {
		return replayTrace(t,
			newEngine(t, capacity, pagesim.FIFO),
			beladyTrace,
		).Faults
	}
	smaller, larger := faultsAt(3), faultsAt(4)
	if larger <= smaller {
		t.Fatalf(
			"expected FIFO to fault more with more frames"+
				"\n\tcapacity 3: %d"+
				"\n\tcapacity 4: %d",
			smaller, larger)
	}
}

func lruStackProperty(t *testing.T) {
	t.Parallel()
	rng := newReproducibleRNG()
	for round := range 32 {
		trace := makeRandomTrace(rng, 12, 256)
		previous := uint64(len(trace)) + 1
		for capacity := 1; capacity <= 12; capacity++ {
			faults := replayTrace(t,
				newEngine(t, capacity, pagesim.LRU),
				trace,
			).Faults
			if faults > previous {
				t.Fatalf(
					"round %d: LRU faults increased with capacity %d"+
						"\n\tgot: %d"+
						"\n\tprevious: %d",
					round, capacity, faults, previous)
			}
			previous = faults
		}
	}
}

func lruMatchesReference(t *testing.T) {
	t.Parallel()
	const capacity = 16
	var (
		rng       = newReproducibleRNG()
		trace     = makeRandomTrace(rng, capacity*4, 4096)
		engine    = newEngine(t, capacity, pagesim.LRU)
		reference = newReference(t, capacity)
	)
	for i, key := range trace {
		event := mustAccess(t, engine, key)
		_, hit := reference.Get(key)
		if !hit {
			reference.Add(key, key)
		}
		if (event.Outcome == pagesim.Hit) != hit {
			t.Fatalf(
				"access %d (key %d) disagrees with reference LRU"+
					"\n\tgot: %s"+
					"\n\treference hit: %t",
				i, key, event.Outcome, hit)
		}
	}
}

func occupancyBound(t *testing.T) {
	t.Parallel()
	rng := newReproducibleRNG()
	for _, kind := range allKinds() {
		const capacity = 5
		engine := newEngine(t, capacity, kind)
		for _, key := range makeRandomTrace(rng, 20, 512) {
			mustAccess(t, engine, key)
			if got := engine.Len(); got > capacity {
				t.Fatalf("%s: occupancy %d exceeds capacity %d",
					kind, got, capacity)
			}
		}
	}
}

func residentsWereAdmitted(t *testing.T) {
	t.Parallel()
	rng := newReproducibleRNG()
	for _, kind := range allKinds() {
		var (
			engine   = newEngine(t, 4, kind)
			admitted = make(map[int]bool)
		)
		engine.Observe(func(event pagesim.Event[int, int]) {
			switch event.Outcome {
			case pagesim.Evicted:
				delete(admitted, event.Victim)
				fallthrough
			case pagesim.Fault:
				admitted[event.Key] = true
			}
		})
		for _, key := range makeRandomTrace(rng, 10, 256) {
			mustAccess(t, engine, key)
			for resident := range engine.Keys() {
				if !admitted[resident] {
					t.Fatalf("%s: key %d is resident without being admitted",
						kind, resident)
				}
			}
			if len(admitted) != engine.Len() {
				t.Fatalf("%s: admitted %d keys but %d are resident",
					kind, len(admitted), engine.Len())
			}
		}
	}
}

func lookupIsReadOnly(t *testing.T) {
	t.Parallel()
	for _, kind := range allKinds() {
		engine := newEngine(t, 3, kind)
		replayTrace(t, engine, []int{1, 2, 3})
		var (
			before = engine.Stats()
			now    = engine.Now()
		)
		for range 8 {
			if _, ok := engine.Lookup(1); !ok {
				t.Fatalf("%s: expected key 1 to be resident", kind)
			}
		}
		if engine.Stats() != before || engine.Now() != now || engine.Len() != 3 {
			t.Fatalf("%s: Lookup changed engine state", kind)
		}
		// Key 1 is the oldest by arrival and, since lookups do not count,
		// also by recency; Clock has every bit set and wraps to it.
		event := mustAccess(t, engine, 4)
		checkVictim(t, event, 1, kind.String())
	}
}

func freshPageSurvives(t *testing.T) {
	t.Parallel()
	engine := newEngine(t, 2, pagesim.LRU)
	replayTrace(t, engine, []int{1, 2, 3})
	event := mustAccess(t, engine, 4)
	checkVictim(t, event, 2, "fresh page 3 must outlive 2")
}

func loaderError(t *testing.T) {
	t.Parallel()
	var (
		engine   = newEngine(t, 2, pagesim.FIFO)
		loadErr  = errors.New("backing store unavailable")
		failLoad = func(int) (int, error) { return 0, loadErr }
	)
	replayTrace(t, engine, []int{1, 2})
	var (
		before = engine.Stats()
		now    = engine.Now()
	)
	if _, err := engine.Access(3, failLoad); !errors.Is(err, loadErr) {
		t.Fatalf("expected loader error, got: %v", err)
	}
	if engine.Stats() != before || engine.Now() != now {
		t.Fatal("failed load changed engine state")
	}
	keysMatch(t, engine, []int{1, 2}, "after failed load")
}

func nilLoader(t *testing.T) {
	t.Parallel()
	engine := newEngine(t, 2, pagesim.FIFO)
	if _, err := engine.Access(1, nil); !errors.Is(err, pagesim.ErrResourceNotFound) {
		t.Fatalf("expected %v, got: %v", pagesim.ErrResourceNotFound, err)
	}
}

func writeback(t *testing.T) {
	t.Parallel()
	engine := newEngine(t, 1, pagesim.FIFO)
	if _, err := engine.Write(1, identity); err != nil {
		t.Fatal(err)
	}
	event := mustAccess(t, engine, 2)
	if !event.VictimDirty {
		t.Error("expected evicting a written key to require writeback")
	}
	event = mustAccess(t, engine, 3)
	if event.VictimDirty {
		t.Error("clean victim reported as dirty")
	}
	stats := engine.Stats()
	if stats.Writebacks != 1 || stats.Writes != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
}

func coarseTieBreak(t *testing.T) {
	t.Parallel()
	// Accesses 1 and 2 share tick 0; key 2 occupies slot 0.
	const granularity = 3
	engine, err := pagesim.New[int, int](3, pagesim.NewCoarseLRU[int](3, granularity))
	if err != nil {
		t.Fatal(err)
	}
	replayTrace(t, engine, []int{2, 1, 3})
	event := mustAccess(t, engine, 4)
	checkVictim(t, event, 2, "lowest slot index wins a timestamp tie")
}

func reset(t *testing.T) {
	t.Parallel()
	engine := newEngine(t, 3, pagesim.FIFO)
	first := replayTrace(t, engine, beladyTrace)
	engine.Reset()
	if engine.Len() != 0 || engine.Now() != 0 {
		t.Fatal("reset did not empty the engine")
	}
	second := replayTrace(t, engine, beladyTrace)
	if first != second {
		t.Fatalf(
			"runs after reset are not independent"+
				"\n\tfirst: %+v"+
				"\n\tsecond: %+v",
			first, second)
	}
}

func observers(t *testing.T) {
	t.Parallel()
	var (
		engine   = newEngine(t, 2, pagesim.LRU)
		outcomes []pagesim.Outcome
		times    []uint64
	)
	engine.Observe(func(event pagesim.Event[int, int]) {
		outcomes = append(outcomes, event.Outcome)
		times = append(times, event.Time)
	})
	replayTrace(t, engine, []int{1, 2, 1, 3})
	want := []pagesim.Outcome{
		pagesim.Fault, pagesim.Fault,
		pagesim.Hit, pagesim.Evicted,
	}
	if !slices.Equal(outcomes, want) {
		t.Errorf("got outcomes %v, want %v", outcomes, want)
	}
	if !slices.Equal(times, []uint64{1, 2, 3, 4}) {
		t.Errorf("logical clock not monotonic: %v", times)
	}
}

func install(t *testing.T) {
	t.Parallel()
	var (
		engine = newEngine(t, 2, pagesim.FIFO)
		events []pagesim.Event[int, int]
	)
	engine.Observe(func(event pagesim.Event[int, int]) {
		events = append(events, event)
	})
	mustAccess(t, engine, 1)
	if _, err := engine.Write(1, identity); err != nil {
		t.Fatal(err)
	}
	engine.Install(2, 20)
	victim, evicted := engine.Install(3, 30)
	if !evicted || victim != 1 {
		t.Fatalf("got victim %d (evicted: %t), want 1", victim, evicted)
	}
	if _, ok := engine.Lookup(1); ok {
		t.Error("victim is still resident after install")
	}
	if _, evicted := engine.Install(3, 31); evicted {
		t.Error("reinstalling a resident key evicted another")
	}
	if payload, _ := engine.Lookup(3); payload != 31 {
		t.Errorf("reinstall did not update the payload: %d", payload)
	}
	want := pagesim.Snapshot{
		Accesses:   2,
		Hits:       1,
		Faults:     1,
		Evictions:  1,
		Writebacks: 1,
		Writes:     1,
	}
	if got := engine.Stats(); got != want {
		t.Errorf(
			"installs were not accounted for"+
				"\n\tgot: %+v"+
				"\n\twant: %+v",
			got, want)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	last := events[3]
	if !last.Installed || last.Outcome != pagesim.Evicted ||
		last.Victim != 1 || !last.VictimDirty {
		t.Errorf("install eviction not observed: %+v", last)
	}
	if engine.Now() != 2 {
		t.Errorf("install advanced the logical clock to %d", engine.Now())
	}
}

func identity(key int) (int, error) { return key, nil }

func allKinds() []pagesim.PolicyKind {
	return []pagesim.PolicyKind{pagesim.FIFO, pagesim.LRU, pagesim.Clock}
}

func newEngine(tb testing.TB, capacity int, kind pagesim.PolicyKind) *pagesim.Engine[int, int] {
	tb.Helper()
	engine, err := pagesim.NewKind[int, int](capacity, kind)
	if err != nil {
		tb.Fatal(err)
	}
	return engine
}

func newReference(tb testing.TB, capacity int) *simplelru.LRU[int, int] {
	tb.Helper()
	reference, err := simplelru.NewLRU[int, int](capacity, nil)
	if err != nil {
		tb.Fatal(err)
	}
	return reference
}

func mustAccess(tb testing.TB, engine *pagesim.Engine[int, int], key int) pagesim.Event[int, int] {
	tb.Helper()
	event, err := engine.Access(key, identity)
	if err != nil {
		tb.Fatalf("access %d: %v", key, err)
	}
	if event.Payload != key {
		tb.Fatalf("access %d returned payload %d", key, event.Payload)
	}
	return event
}

func replayTrace(tb testing.TB, engine *pagesim.Engine[int, int], trace []int) pagesim.Snapshot {
	tb.Helper()
	for _, key := range trace {
		mustAccess(tb, engine, key)
	}
	return engine.Stats()
}

func checkFaults(tb testing.TB, stats pagesim.Snapshot, want uint64, msg string) {
	tb.Helper()
	if stats.Faults == want {
		return
	}
	tb.Fatalf(
		"unexpected fault count %s"+
			"\n\tgot: %d"+
			"\n\twant: %d",
		msg, stats.Faults, want)
}

func checkVictim(tb testing.TB, event pagesim.Event[int, int], want int, msg string) {
	tb.Helper()
	if event.Outcome == pagesim.Evicted && event.Victim == want {
		return
	}
	tb.Fatalf(
		"unexpected eviction (%s)"+
			"\n\tgot: %s %d"+
			"\n\twant: evicted %d",
		msg, event.Outcome, event.Victim, want)
}

func keysMatch(tb testing.TB, engine *pagesim.Engine[int, int], want []int, msg string) {
	tb.Helper()
	got := slices.Sorted(engine.Keys())
	want = slices.Sorted(slices.Values(want))
	if !slices.Equal(got, want) {
		tb.Fatalf(
			"%s"+
				"\n\twant: %v"+
				"\n\tgot: %v",
			msg, want, got)
	}
}

func makeRandomTrace(rng *rand.Rand, universe, length int) []int {
	trace := make([]int, length)
	for i := range trace {
		trace[i] = rng.Intn(universe)
	}
	return trace
}

func newReproducibleRNG() *rand.Rand {
	return rand.New(rand.NewSource(rngSeed))
}
