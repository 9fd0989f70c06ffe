package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration, resampling and spectral estimation.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidParameters indicates a missing, unknown or non-finite model coefficient.
	ErrInvalidParameters = errors.New("dynamo: invalid parameters")

	// ErrInvalidTolerances indicates an unusable integrator configuration.
	ErrInvalidTolerances = errors.New("dynamo: invalid tolerances")

	// ErrInvalidTimeSpan indicates t_stop is not after t_start.
	ErrInvalidTimeSpan = errors.New("dynamo: invalid time span")

	// ErrNonFiniteEvaluation indicates the vector field returned NaN or Inf.
	ErrNonFiniteEvaluation = errors.New("dynamo: non-finite vector field evaluation")

	// ErrStepSizeUnderflow indicates the tolerance could not be met at the minimum step.
	ErrStepSizeUnderflow = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStepLimit indicates the step budget ran out before t_stop.
	ErrStepLimit = errors.New("dynamo: step limit exceeded")

	// ErrContextCanceled indicates the integration was interrupted.
	ErrContextCanceled = errors.New("dynamo: integration canceled by context")

	// ErrEmptyTrajectory indicates a trajectory without accepted steps.
	ErrEmptyTrajectory = errors.New("dynamo: trajectory has no accepted steps")

	// ErrInvalidResampleStep indicates a resample step that is not positive or exceeds the span.
	ErrInvalidResampleStep = errors.New("dynamo: invalid resample step")

	// ErrOutOfSpan indicates a query time outside the trajectory span.
	ErrOutOfSpan = errors.New("dynamo: time outside trajectory span")

	// ErrInsufficientSignal indicates a spectral input with fewer than two samples.
	ErrInsufficientSignal = errors.New("dynamo: insufficient signal for spectral estimate")

	// ErrInvalidSamplingStep indicates a non-positive or non-finite sampling interval.
	ErrInvalidSamplingStep = errors.New("dynamo: invalid sampling step")

	// ErrInvalidFFTLength indicates an FFT length below two.
	ErrInvalidFFTLength = errors.New("dynamo: invalid fft length")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// IntegrationError wraps a fatal integration failure with the point where it
// happened. It always unwraps to one of the sentinel errors above.
type IntegrationError struct {
	Step     int
	Time     float64
	StepSize float64
	State    State
	Wrapped  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, h=%.3g): %v", e.Step, e.Time, e.StepSize, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}

// Status is always Failed; it lets callers treat the error as a terminal state.
func (e *IntegrationError) Status() Status {
	return Failed
}
