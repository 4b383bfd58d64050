package forest

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotLoaded is returned when inference is attempted before the
	// model finished loading. It indicates a call-order bug in the caller.
	ErrModelNotLoaded = errors.New("model not loaded: call Load first")

	// ErrInvalidModel is returned when the artifact violates a model invariant.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidThresholds is returned when threshold percentages are out of
	// range or the warning threshold exceeds the blocking threshold.
	ErrInvalidThresholds = errors.New("invalid thresholds: block and warn must be within 0..100 and warn <= block")
)

// LoadError reports that the model artifact could not be fetched or parsed.
type LoadError struct {
	// Source describes where the artifact was loaded from.
	Source string

	// Err is the underlying fetch or decode error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model from %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
