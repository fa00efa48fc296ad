package mmu

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

type (
	// Fit selects which free block satisfies an allocation.
	Fit uint8
	// AllocatorConfig sizes an [Allocator].
	AllocatorConfig struct {
		// Size of the pool in bytes, 1 MiB if zero.
		Size uint64
		// Fit defaults to [FirstFit].
		Fit Fit
		// Logger receives a debug record per allocation and release.
		// Nil discards.
		Logger *slog.Logger
	}
	// Block is a contiguous range of the pool,
	// either free or owned by a single owner.
	Block struct {
		Start, Size uint64
		Owner       int
		Free        bool
	}
	// Allocator manages a fixed pool of contiguous memory.
	// Adjacent free blocks are merged on release,
	// so no two free blocks are ever neighbors.
	// Constructed by [NewAllocator].
	Allocator struct {
		logger *slog.Logger
		blocks []Block // Ordered by Start, covering the pool.
		size   uint64
		fit    Fit
	}
	// Fragmentation summarizes the free space of an [Allocator].
	Fragmentation struct {
		Free, Allocated, Largest uint64
		FreeBlocks               int
	}
)

const (
	// FirstFit takes the lowest addressed block that is large enough.
	FirstFit Fit = iota + 1
	// BestFit takes the smallest block that is large enough.
	BestFit
	// WorstFit takes the largest block.
	WorstFit
)

// DefaultPoolSize is the pool size used when [AllocatorConfig.Size] is zero.
const DefaultPoolSize = 1 << 20

// NewAllocator returns an [Allocator] holding one free block
// that spans the whole pool.
func NewAllocator(config AllocatorConfig) (*Allocator, error) {
	if config.Size == 0 {
		config.Size = DefaultPoolSize
	}
	switch config.Fit {
	case 0:
		config.Fit = FirstFit
	case FirstFit, BestFit, WorstFit:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidFit, config.Fit)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	allocator := &Allocator{
		logger: logger,
		size:   config.Size,
		fit:    config.Fit,
	}
	allocator.Reset()
	return allocator, nil
}

// Allocate carves size bytes for owner out of a free block
// chosen by the allocator's [Fit], splitting off any remainder.
// If no free block is large enough, [ErrOutOfMemory] is returned
// and the pool is unchanged.
func (a *Allocator) Allocate(owner int, size uint64) (Block, error) {
	if size == 0 {
		return Block{}, fmt.Errorf("%w: owner %d requested 0 bytes",
			ErrInvalidSize, owner)
	}
	i := a.choose(size)
	if i < 0 {
		return Block{}, fmt.Errorf("%w: owner %d requested %d bytes, largest free block is %d",
			ErrOutOfMemory, owner, size, a.Fragmentation().Largest)
	}
	hole := a.blocks[i]
	if hole.Size > size {
		remainder := Block{
			Start: hole.Start + size,
			Size:  hole.Size - size,
			Free:  true,
		}
		a.blocks = append(a.blocks, Block{})
		copy(a.blocks[i+2:], a.blocks[i+1:])
		a.blocks[i+1] = remainder
	}
	block := Block{
		Start: hole.Start,
		Size:  size,
		Owner: owner,
	}
	a.blocks[i] = block
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "allocate",
		slog.Int("owner", owner),
		slog.Uint64("start", block.Start),
		slog.Uint64("size", size),
		slog.String("fit", a.fit.String()),
	)
	return block, nil
}

func (a *Allocator) choose(size uint64) int {
	chosen := -1
	for i, block := range a.blocks {
		if !block.Free || block.Size < size {
			continue
		}
		switch a.fit {
		case FirstFit:
			return i
		case BestFit:
			if chosen < 0 || block.Size < a.blocks[chosen].Size {
				chosen = i
			}
		case WorstFit:
			if chosen < 0 || block.Size > a.blocks[chosen].Size {
				chosen = i
			}
		}
	}
	return chosen
}

// Release frees every block held by owner and merges
// the freed space with its free neighbors.
// It returns the number of bytes freed, or [ErrUnknownOwner]
// if owner holds nothing.
func (a *Allocator) Release(owner int) (uint64, error) {
	var freed uint64
	for i := range a.blocks {
		if block := &a.blocks[i]; !block.Free && block.Owner == owner {
			freed += block.Size
			*block = Block{Start: block.Start, Size: block.Size, Free: true}
		}
	}
	if freed == 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOwner, owner)
	}
	a.coalesce()
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "release",
		slog.Int("owner", owner),
		slog.Uint64("freed", freed),
		slog.Int("free_blocks", a.Fragmentation().FreeBlocks),
	)
	return freed, nil
}

func (a *Allocator) coalesce() {
	merged := a.blocks[:1]
	for _, block := range a.blocks[1:] {
		last := &merged[len(merged)-1]
		if last.Free && block.Free {
			last.Size += block.Size
			continue
		}
		merged = append(merged, block)
	}
	clear(a.blocks[len(merged):])
	a.blocks = merged
}

// Blocks returns an iterator over the pool in address order.
func (a *Allocator) Blocks() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for _, block := range a.blocks {
			if !yield(block) {
				return
			}
		}
	}
}

// Fragmentation reports how the free space is spread across the pool.
func (a *Allocator) Fragmentation() Fragmentation {
	var frag Fragmentation
	for _, block := range a.blocks {
		if !block.Free {
			frag.Allocated += block.Size
			continue
		}
		frag.Free += block.Size
		frag.FreeBlocks++
		frag.Largest = max(frag.Largest, block.Size)
	}
	return frag
}

// Size returns the pool size in bytes.
func (a *Allocator) Size() uint64 { return a.size }

// Reset frees the whole pool.
func (a *Allocator) Reset() {
	a.blocks = append(a.blocks[:0], Block{Size: a.size, Free: true})
}

// External is the free space outside of the largest free block,
// which no single allocation can use.
func (f Fragmentation) External() uint64 { return f.Free - f.Largest }

// ExternalRatio is [Fragmentation.External] over the free space, in [0,1].
func (f Fragmentation) ExternalRatio() float64 {
	if f.Free == 0 {
		return 0
	}
	return float64(f.External()) / float64(f.Free)
}

// ParseFit accepts "first", "best" or "worst",
// with or without a "-fit" suffix, in any case.
func ParseFit(name string) (Fit, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "-fit") {
	case "first":
		return FirstFit, nil
	case "best":
		return BestFit, nil
	case "worst":
		return WorstFit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFit, name)
	}
}

func (fit Fit) String() string {
	switch fit {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	default:
		return fmt.Sprintf("Fit(%d)", uint8(fit))
	}
}

func (fit Fit) MarshalText() ([]byte, error) {
	switch fit {
	case FirstFit, BestFit, WorstFit:
		return []byte(fit.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidFit, fit)
	}
}

func (fit *Fit) UnmarshalText(text []byte) error {
	parsed, err := ParseFit(string(text))
	if err != nil {
		return err
	}
	*fit = parsed
	return nil
}
