package mmu_test

import (
	"errors"
	"testing"
	"time"

	"github.com/djdv/go-pagesim"
	"github.com/djdv/go-pagesim/mmu"
)

const testPageSize = 1024

func newTranslator(tb testing.TB, tlbEntries, frames int, mappings map[uint64]uint64) *mmu.Translator {
	tb.Helper()
	translator, err := mmu.NewTranslator(mmu.TranslatorConfig{
		PageSize:   testPageSize,
		TLBEntries: tlbEntries,
		Frames:     frames,
	})
	if err != nil {
		tb.Fatal(err)
	}
	for page, frame := range mappings {
		translator.Map(page, frame)
	}
	return translator
}

func mustTranslate(tb testing.TB, translator *mmu.Translator, virtual uint64) (uint64, pagesim.Level) {
	tb.Helper()
	physical, event, err := translator.Translate(virtual)
	if err != nil {
		tb.Fatal(err)
	}
	return physical, event.Level
}

func checkLevel(t *testing.T, translator *mmu.Translator, page uint64, want pagesim.Level) {
	t.Helper()
	if _, got := mustTranslate(t, translator, page*testPageSize); got != want {
		t.Errorf("page %d resolved at %s level, want %s", page, got, want)
	}
}

func TestTranslator(t *testing.T) {
	t.Parallel()
	t.Run("split", split)
	t.Run("invalid config", invalidTranslator)
	t.Run("translate", translate)
	t.Run("unmapped", unmapped)
	t.Run("promotion", promotion)
	t.Run("shootdown", shootdown)
	t.Run("install shootdown", installShootdown)
	t.Run("remap", remap)
	t.Run("effective access time", effectiveAccessTime)
}

func split(t *testing.T) {
	t.Parallel()
	page, offset := mmu.Split(0x1234, testPageSize)
	if page != 4 || offset != 0x234 {
		t.Errorf("got page %d offset %#x, want page 4 offset 0x234", page, offset)
	}
}

func invalidTranslator(t *testing.T) {
	t.Parallel()
	if _, err := mmu.NewTranslator(mmu.TranslatorConfig{
		TLBEntries: 1, Frames: 1,
	}); !errors.Is(err, mmu.ErrInvalidPageSize) {
		t.Errorf("expected error \"%v\" but got: %v", mmu.ErrInvalidPageSize, err)
	}
	if _, err := mmu.NewTranslator(mmu.TranslatorConfig{
		PageSize: testPageSize, Frames: 1,
	}); !errors.Is(err, pagesim.ErrInvalidCapacity) {
		t.Errorf("expected error \"%v\" but got: %v", pagesim.ErrInvalidCapacity, err)
	}
}

func translate(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 2, 4, map[uint64]uint64{0: 5, 1: 2, 2: 7})
	const virtual = 1*testPageSize + 10
	physical, level := mustTranslate(t, translator, virtual)
	if want := uint64(2*testPageSize + 10); physical != want {
		t.Errorf("physical address: got %#x want %#x", physical, want)
	}
	if level != pagesim.LevelBacking {
		t.Errorf("first touch resolved at %s level, want %s", level, pagesim.LevelBacking)
	}
	checkLevel(t, translator, 1, pagesim.LevelFront)
	if stats := translator.TLB().Stats(); stats.Hits != 1 || stats.Faults != 1 {
		t.Errorf("tlb stats: %+v", stats)
	}
}

func unmapped(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 2, 4, map[uint64]uint64{0: 5})
	_, _, err := translator.Translate(9 * testPageSize)
	if !errors.Is(err, pagesim.ErrResourceNotFound) {
		t.Errorf("expected error \"%v\" but got: %v", pagesim.ErrResourceNotFound, err)
	}
	if translator.TLB().Len() != 0 || translator.PageTable().Len() != 0 {
		t.Error("a hard fault left entries behind")
	}
	translator.Map(9, 1)
	checkLevel(t, translator, 9, pagesim.LevelBacking)
	translator.Unmap(9)
	if _, _, err := translator.Translate(9 * testPageSize); !errors.Is(err, pagesim.ErrResourceNotFound) {
		t.Errorf("unmapped page still translates: %v", err)
	}
}

func promotion(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 1, 4, map[uint64]uint64{0: 5, 1: 2})
	checkLevel(t, translator, 0, pagesim.LevelBacking)
	checkLevel(t, translator, 1, pagesim.LevelBacking)
	checkLevel(t, translator, 0, pagesim.LevelBack)
	checkLevel(t, translator, 0, pagesim.LevelFront)
}

func shootdown(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 4, 2, map[uint64]uint64{0: 5, 1: 2, 2: 7})
	for page := range uint64(3) {
		checkLevel(t, translator, page, pagesim.LevelBacking)
	}
	// Page 0 left the page table, so its TLB entry must be gone too.
	if _, ok := translator.TLB().Lookup(0); ok {
		t.Error("tlb still holds an entry evicted from the page table")
	}
	checkLevel(t, translator, 0, pagesim.LevelBacking)
}

func installShootdown(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 2, 1, map[uint64]uint64{0: 5})
	checkLevel(t, translator, 0, pagesim.LevelBacking)
	pageTable := translator.PageTable()
	if victim, evicted := pageTable.Install(1, 9); !evicted || victim != 0 {
		t.Fatalf("got victim %d (evicted: %t), want 0", victim, evicted)
	}
	if _, ok := translator.TLB().Lookup(0); ok {
		t.Error("tlb still holds an entry displaced by a page table install")
	}
	if evictions := pageTable.Stats().Evictions; evictions != 1 {
		t.Errorf("page table recorded %d evictions, want 1", evictions)
	}
}

func remap(t *testing.T) {
	t.Parallel()
	translator := newTranslator(t, 2, 2, map[uint64]uint64{0: 5})
	mustTranslate(t, translator, 0)
	translator.Map(0, 9)
	physical, level := mustTranslate(t, translator, 3)
	if want := uint64(9*testPageSize + 3); physical != want {
		t.Errorf("stale translation: got %#x want %#x", physical, want)
	}
	if level != pagesim.LevelBacking {
		t.Errorf("remapped page resolved at %s level, want %s", level, pagesim.LevelBacking)
	}
}

func effectiveAccessTime(t *testing.T) {
	t.Parallel()
	const (
		tlbCost    = 20 * time.Nanosecond
		memoryCost = 100 * time.Nanosecond
	)
	translator := newTranslator(t, 2, 2, map[uint64]uint64{0: 5})
	for range 4 {
		mustTranslate(t, translator, 0)
	}
	// 3/4 hits at 20ns, 1/4 misses at 120ns.
	if got, want := translator.EffectiveAccessTime(tlbCost, memoryCost), 45*time.Nanosecond; got != want {
		t.Errorf("effective access time: got %s want %s", got, want)
	}
	translator.Reset()
	if got := translator.EffectiveAccessTime(tlbCost, memoryCost); got != 0 {
		t.Errorf("effective access time after reset: got %s want 0", got)
	}
	checkLevel(t, translator, 0, pagesim.LevelBacking)
}
