package trace

type constError string

const (
	// ErrInvalidTrace is returned when a reference string cannot be parsed
	// or a script produces something other than integer keys.
	ErrInvalidTrace = constError("invalid trace")
	// ErrTraceTooLong is returned when a script exceeds [MaxScriptLength].
	ErrTraceTooLong = constError("trace too long")
)

func (errStr constError) Error() string { return string(errStr) }
