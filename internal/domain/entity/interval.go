package entity

import (
	"fmt"
	"math"
)

// Sampling interval control, in seconds.
const (
	MinInterval     = 0.1
	MaxInterval     = 2.0
	IntervalStep    = 0.1
	DefaultInterval = 0.5
)

// ValidateInterval checks that v lies within [MinInterval, MaxInterval] on
// an IntervalStep boundary.
func ValidateInterval(v float64) error {
	if math.IsNaN(v) || v < MinInterval-1e-9 || v > MaxInterval+1e-9 {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidInterval, v, MinInterval, MaxInterval)
	}
	steps := v / IntervalStep
	if math.Abs(steps-math.Round(steps)) > 1e-6 {
		return fmt.Errorf("%w: %v is not a multiple of %v", ErrInvalidInterval, v, IntervalStep)
	}
	return nil
}
