package bench

import (
	"errors"

	"github.com/meigma/bench/sketch"
)

// Sentinel errors for the bench package.
var (
	// ErrInvalidConfig is returned when a run configuration fails
	// validation.
	ErrInvalidConfig = errors.New("bench: invalid config")
)

// Errors re-exported from sketch.
var (
	// ErrNoSamples is returned when a quantile is requested for an
	// operation type with no recorded data.
	ErrNoSamples = sketch.ErrNoSamples
)
