package pagesim_test

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/djdv/go-pagesim"
)

func TestWorkingSet(t *testing.T) {
	t.Run("invalid window", func(t *testing.T) {
		t.Parallel()
		if _, err := pagesim.NewWorkingSet[int](0); !errors.Is(err, pagesim.ErrInvalidWindow) {
			t.Fatalf("expected %v, got: %v", pagesim.ErrInvalidWindow, err)
		}
	})
	t.Run("trailing window", workingSetWindow)
	t.Run("bounded by window", workingSetBounded)
}

func workingSetWindow(t *testing.T) {
	t.Parallel()
	ws, err := pagesim.NewWorkingSet[int](2)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []int{1, 2, 1, 3, 4, 1} {
		ws.Observe(key)
	}
	if want := []int{1, 2, 2, 3, 3, 3}; !slices.Equal(ws.Sizes(), want) {
		t.Fatalf("got sizes %v, want %v", ws.Sizes(), want)
	}
	if ws.Contains(2) || !ws.Contains(4) {
		t.Fatal("unexpected working set membership")
	}
	summary := ws.Summary()
	if summary.Min != 1 || summary.Max != 3 || summary.Mean != 14.0/6.0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	want := map[int]int{1: 1, 2: 2, 3: 3}
	if got := ws.Distribution(); !maps.Equal(got, want) {
		t.Fatalf("got distribution %v, want %v", got, want)
	}
	ws.Reset()
	if ws.Size() != 0 || len(ws.Sizes()) != 0 {
		t.Fatal("reset kept observations")
	}
}

func workingSetBounded(t *testing.T) {
	t.Parallel()
	const window = 4
	ws, err := pagesim.NewWorkingSet[int](window)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range makeRandomTrace(newReproducibleRNG(), 64, 1024) {
		if size := ws.Observe(key); size > window+1 {
			t.Fatalf("working set size %d exceeds window+1", size)
		}
	}
}
