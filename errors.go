package bloomset

import "errors"

var (
	// ErrInvalidParameters is returned when a filter is constructed with a
	// zero size, zero probe count, an out-of-range counter width, or a
	// target false positive rate outside (0, 1).
	ErrInvalidParameters = errors.New("bloomset: invalid parameters")

	// ErrParameterMismatch is returned when two filters with incompatible
	// parameters are merged.
	ErrParameterMismatch = errors.New("bloomset: parameter mismatch")

	// ErrCorruptData is returned when serialized data is inconsistent with
	// its own header.
	ErrCorruptData = errors.New("bloomset: corrupt data")
)
