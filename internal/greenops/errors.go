package greenops

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors, comparable with errors.Is.
var (
	// ErrInvalidUnit indicates an unrecognized mass unit.
	ErrInvalidUnit = constError("invalid mass unit")

	// ErrNegativeValue indicates a negative emission value where only
	// non-negative values make sense.
	ErrNegativeValue = constError("negative emission value")

	// ErrCalculationOverflow indicates a NaN, Inf or overflowing result.
	ErrCalculationOverflow = constError("calculation overflow")
)
