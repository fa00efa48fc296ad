package mmu

import (
	"fmt"
	"time"

	"github.com/djdv/go-pagesim"
)

type (
	// TranslatorConfig sizes a [Translator].
	TranslatorConfig struct {
		PageSize   uint64
		TLBEntries int
		// Frames is the number of page table entries
		// that may be resident at once.
		Frames int
		// TLBPolicy and FramePolicy default to [pagesim.LRU].
		TLBPolicy, FramePolicy pagesim.PolicyKind
	}
	// Translator maps virtual addresses to physical ones
	// through a TLB in front of a page table.
	// Pages whose mapping is not resident in the page table
	// are paged back in from the mappings registered with [Translator.Map].
	// Constructed by [NewTranslator].
	Translator struct {
		tiered   *pagesim.Tiered[uint64, uint64]
		mappings map[uint64]uint64
		pageSize uint64
	}
)

// Split separates an address into its page number and page offset.
// pageSize must be >0.
func Split(address, pageSize uint64) (page, offset uint64) {
	return address / pageSize, address % pageSize
}

// NewTranslator builds the TLB and page table engines.
// options are applied to both; they are named "tlb" and "page-table".
func NewTranslator(config TranslatorConfig, options ...pagesim.Option) (*Translator, error) {
	if config.PageSize == 0 {
		return nil, pageSizeError(config.PageSize)
	}
	if config.TLBPolicy == 0 {
		config.TLBPolicy = pagesim.LRU
	}
	if config.FramePolicy == 0 {
		config.FramePolicy = pagesim.LRU
	}
	options = options[:len(options):len(options)]
	tlb, err := pagesim.NewKind[uint64, uint64](config.TLBEntries, config.TLBPolicy,
		append(options, pagesim.WithName("tlb"))...)
	if err != nil {
		return nil, fmt.Errorf("tlb: %w", err)
	}
	table, err := pagesim.NewKind[uint64, uint64](config.Frames, config.FramePolicy,
		append(options, pagesim.WithName("page-table"))...)
	if err != nil {
		return nil, fmt.Errorf("page table: %w", err)
	}
	translator := &Translator{
		mappings: make(map[uint64]uint64),
		pageSize: config.PageSize,
	}
	translator.tiered = pagesim.NewTiered(tlb, table, translator.pageIn)
	// Evicting a page table entry must also drop any TLB entry for it.
	table.Observe(func(event pagesim.Event[uint64, uint64]) {
		if event.Outcome == pagesim.Evicted {
			tlb.Invalidate(event.Victim)
		}
	})
	return translator, nil
}

func (t *Translator) pageIn(page uint64) (uint64, error) {
	frame, ok := t.mappings[page]
	if !ok {
		return 0, fmt.Errorf("%w: page %d is not mapped",
			pagesim.ErrResourceNotFound, page)
	}
	return frame, nil
}

// Map binds page to frame, replacing any previous mapping.
func (t *Translator) Map(page, frame uint64) {
	t.mappings[page] = frame
	t.tiered.Invalidate(page)
}

// Unmap removes the mapping for page.
func (t *Translator) Unmap(page uint64) {
	delete(t.mappings, page)
	t.tiered.Invalidate(page)
}

// Translate resolves a virtual address.
// An address on an unmapped page is reported as [pagesim.ErrResourceNotFound].
func (t *Translator) Translate(virtual uint64) (uint64, pagesim.TieredEvent[uint64, uint64], error) {
	page, offset := Split(virtual, t.pageSize)
	event, err := t.tiered.Access(page)
	if err != nil {
		return 0, event, fmt.Errorf("translating %#x: %w", virtual, err)
	}
	return event.Front.Payload*t.pageSize + offset, event, nil
}

// PageSize returns the configured page size.
func (t *Translator) PageSize() uint64 { return t.pageSize }

// TLB returns the front engine.
func (t *Translator) TLB() *pagesim.Engine[uint64, uint64] { return t.tiered.Front() }

// PageTable returns the back engine.
func (t *Translator) PageTable() *pagesim.Engine[uint64, uint64] { return t.tiered.Back() }

// EffectiveAccessTime is the mean translation cost observed so far,
// where a TLB hit costs tlbCost and a miss additionally costs memoryCost.
func (t *Translator) EffectiveAccessTime(tlbCost, memoryCost time.Duration) time.Duration {
	return t.TLB().Stats().EffectiveAccessTime(tlbCost, tlbCost+memoryCost)
}

// Reset empties both levels and their statistics.
// Mappings are kept.
func (t *Translator) Reset() { t.tiered.Reset() }
