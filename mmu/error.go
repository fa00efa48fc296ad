package mmu

import "fmt"

type constError string

const (
	// ErrInvalidPageSize may be returned from
	// [NewTranslator] and [NewMappedFile].
	ErrInvalidPageSize = constError("invalid page size")
	// ErrInvalidOffset is returned by [MappedFile.ReadAt]
	// for negative offsets.
	ErrInvalidOffset = constError("invalid offset")
	// ErrInvalidFit may be returned from [NewAllocator] and [ParseFit].
	ErrInvalidFit = constError("invalid allocation fit")
	// ErrInvalidSize is returned by [Allocator.Allocate]
	// for empty requests.
	ErrInvalidSize = constError("invalid allocation size")
	// ErrOutOfMemory is returned by [Allocator.Allocate]
	// when no free block is large enough.
	ErrOutOfMemory = constError("no free block large enough")
	// ErrUnknownOwner is returned by [Allocator.Release]
	// for owners that hold no memory.
	ErrUnknownOwner = constError("owner holds no memory")
)

func (errStr constError) Error() string { return string(errStr) }

func pageSizeError[Size int | uint64](size Size) error {
	return fmt.Errorf("%w: must be >0 but %d was requested",
		ErrInvalidPageSize, size)
}
