package arbiter

import "fmt"

type constError string

const (
	// ErrAcquisitionTimeout is returned by [TimeoutBackoff] attempts
	// that could not obtain both resources in time.
	// It is recoverable; the caller decides whether to retry.
	ErrAcquisitionTimeout = constError("acquisition timed out")
	// ErrInvalidStrategy may be returned from [New] and [ParseStrategy].
	ErrInvalidStrategy = constError("invalid contention strategy")
	// ErrInvalidConfig may be returned from [New] and [Dine].
	ErrInvalidConfig = constError("invalid arbiter config")
	// ErrUnknownRequester is returned when a requester
	// index falls outside of the resource ring.
	ErrUnknownRequester = constError("unknown requester")
)

func (errStr constError) Error() string { return string(errStr) }

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
