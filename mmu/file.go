package mmu

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/djdv/go-pagesim"
)

type (
	// FileConfig sizes a [MappedFile].
	FileConfig struct {
		// Size is the length of the backing data in bytes.
		Size     int64
		PageSize int
		// ResidentPages bounds how many pages are held in memory.
		ResidentPages int
		// Policy defaults to [pagesim.LRU].
		Policy pagesim.PolicyKind
	}
	// MappedFile reads a backing [io.ReaderAt] one page at a time,
	// loading pages on first touch and evicting them under its policy.
	// Constructed by [NewMappedFile].
	MappedFile struct {
		backing  io.ReaderAt
		engine   *pagesim.Engine[int64, []byte]
		size     int64
		pageSize int64
		reads    uint64
		mu       sync.Mutex
	}
	// FileStats summarizes demand paging.
	FileStats struct {
		Pages pagesim.Snapshot
		// PageLoads counts pages read from the backing store.
		PageLoads uint64
		// Reads counts calls to [MappedFile.ReadAt].
		Reads        uint64
		PagesPerRead float64
	}
)

// NewMappedFile maps backing, which must hold config.Size bytes.
func NewMappedFile(backing io.ReaderAt, config FileConfig, options ...pagesim.Option) (*MappedFile, error) {
	if config.PageSize <= 0 {
		return nil, pageSizeError(config.PageSize)
	}
	if config.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidOffset, config.Size)
	}
	if config.Policy == 0 {
		config.Policy = pagesim.LRU
	}
	engine, err := pagesim.NewKind[int64, []byte](config.ResidentPages, config.Policy,
		append(options[:len(options):len(options)], pagesim.WithName("mapped-file"))...)
	if err != nil {
		return nil, err
	}
	return &MappedFile{
		backing:  backing,
		engine:   engine,
		size:     config.Size,
		pageSize: int64(config.PageSize),
	}, nil
}

// ReadAt implements [io.ReaderAt].
// Every page the range touches is made resident first.
func (mf *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOffset, off)
	}
	mf.mu.Lock()
	defer mf.mu.Unlock()
	mf.reads++
	if off >= mf.size {
		return 0, io.EOF
	}
	var (
		end   = min(off+int64(len(p)), mf.size)
		first = off / mf.pageSize
		last  = (end - 1) / mf.pageSize
		n     int
	)
	for page := first; page <= last && off < end; page++ {
		event, err := mf.engine.Access(page, mf.load)
		if err != nil {
			return n, err
		}
		start := off - page*mf.pageSize
		copied := copy(p[n:end-off+int64(n)], event.Payload[start:])
		n += copied
		off += int64(copied)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (mf *MappedFile) load(page int64) ([]byte, error) {
	var (
		start = page * mf.pageSize
		size  = min(mf.pageSize, mf.size-start)
		buf   = make([]byte, size)
	)
	read, err := mf.backing.ReadAt(buf, start)
	if err != nil && !(errors.Is(err, io.EOF) && int64(read) == size) {
		return nil, fmt.Errorf("loading page %d: %w", page, err)
	}
	return buf, nil
}

// Size returns the mapped length in bytes.
func (mf *MappedFile) Size() int64 { return mf.size }

// Resident reports whether page is currently in memory.
func (mf *MappedFile) Resident(page int64) bool {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	_, ok := mf.engine.Lookup(page)
	return ok
}

// Stats returns paging counters accumulated so far.
func (mf *MappedFile) Stats() FileStats {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	var (
		pages = mf.engine.Stats()
		stats = FileStats{
			Pages:     pages,
			PageLoads: pages.Faults,
			Reads:     mf.reads,
		}
	)
	if stats.Reads > 0 {
		stats.PagesPerRead = float64(stats.PageLoads) / float64(stats.Reads)
	}
	return stats
}
