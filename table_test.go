package pagesim_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/djdv/go-pagesim"
)

func TestTable(t *testing.T) {
	t.Run("invalid capacity", tableInvalidCapacity)
	t.Run("insert and lookup", tableInsertLookup)
	t.Run("update in place", tableUpdateInPlace)
	t.Run("evicts through policy", tableEvicts)
	t.Run("reuses lowest slot", tableReusesLowestSlot)
	t.Run("empty victim panics", emptyVictimPanics)
}

func tableInvalidCapacity(t *testing.T) {
	t.Parallel()
	table, err := pagesim.NewTable[int, string](0)
	if table != nil || !errors.Is(err, pagesim.ErrInvalidCapacity) {
		t.Fatalf("expected %v, got: %v", pagesim.ErrInvalidCapacity, err)
	}
}

func tableInsertLookup(t *testing.T) {
	t.Parallel()
	table := newTable(t, 2)
	policy := pagesim.NewFIFO[int](2)
	if _, ok := table.Lookup(1); ok {
		t.Fatal("lookup of absent key succeeded")
	}
	table.Insert(1, "one", policy)
	policy.OnAccess(1)
	if got, ok := table.Lookup(1); !ok || got != "one" {
		t.Fatalf("got %q %t, want %q", got, ok, "one")
	}
	if table.IsFull() || table.Occupancy() != 1 {
		t.Fatalf("unexpected occupancy %d", table.Occupancy())
	}
}

func tableUpdateInPlace(t *testing.T) {
	t.Parallel()
	table := newTable(t, 1)
	policy := pagesim.NewFIFO[int](1)
	table.Insert(1, "one", policy)
	policy.OnAccess(1)
	if _, evicted := table.Insert(1, "uno", policy); evicted {
		t.Fatal("updating a resident key evicted something")
	}
	if got, _ := table.Lookup(1); got != "uno" {
		t.Fatalf("payload not updated: %q", got)
	}
}

func tableEvicts(t *testing.T) {
	t.Parallel()
	table := newTable(t, 2)
	policy := pagesim.NewFIFO[int](2)
	for _, key := range []int{1, 2} {
		table.Insert(key, "", policy)
		policy.OnAccess(key)
	}
	victim, evicted := table.Insert(3, "", policy)
	if !evicted || victim != 1 {
		t.Fatalf("got victim %d (%t), want 1", victim, evicted)
	}
	if table.Occupancy() != 2 {
		t.Fatalf("occupancy %d after eviction", table.Occupancy())
	}
}

func tableReusesLowestSlot(t *testing.T) {
	t.Parallel()
	table := newTable(t, 3)
	policy := pagesim.NewLRU[int](3)
	for _, key := range []int{10, 20, 30} {
		table.Insert(key, "", policy)
	}
	table.Remove(30)
	table.Remove(10)
	table.Insert(40, "", policy)
	var got []int
	for slot, key := range table.Slots() {
		got = append(got, slot, key)
	}
	want := []int{0, 40, 1, 20}
	if !slices.Equal(got, want) {
		t.Fatalf("got slots %v, want %v", got, want)
	}
}

func emptyVictimPanics(t *testing.T) {
	for _, kind := range allKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			policy, err := pagesim.NewPolicy[int](kind, 1)
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				recovered := recover()
				err, ok := recovered.(error)
				if !ok || !errors.Is(err, pagesim.ErrPreconditionViolation) {
					t.Fatalf("expected precondition panic, got: %v", recovered)
				}
			}()
			policy.SelectVictim(newTable(t, 1))
		})
	}
}

func newTable(tb testing.TB, capacity int) *pagesim.Table[int, string] {
	tb.Helper()
	table, err := pagesim.NewTable[int, string](capacity)
	if err != nil {
		tb.Fatal(err)
	}
	return table
}
