package pagesim

import "fmt"

type constError string

const (
	// ErrInvalidCapacity may be returned from [New] and [NewTable].
	ErrInvalidCapacity = constError("invalid capacity")
	// ErrResourceNotFound is returned when a key
	// cannot be resolved at any level of a lookup.
	ErrResourceNotFound = constError("resource not found")
	// ErrInvalidPolicy may be returned from [New], [NewPolicy] and [ParsePolicyKind].
	ErrInvalidPolicy = constError("invalid eviction policy")
	// ErrInvalidWindow may be returned from [NewWorkingSet].
	ErrInvalidWindow = constError("invalid working set window")
)

func (errStr constError) Error() string { return string(errStr) }

func capacityError(capacity int) error {
	return fmt.Errorf(
		"%w: must be >0 but %d was requested",
		ErrInvalidCapacity, capacity)
}

func notFoundError[Key any](key Key) error {
	return fmt.Errorf("%w: %v", ErrResourceNotFound, key)
}
