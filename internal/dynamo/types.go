package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an evaluable vector field dX/dt = f(X, t). Implementations must be
// pure: Derive may be called at any real t, in any order, from any goroutine.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Configurable systems expose their coefficients by name. With never mutates
// the receiver; it returns a new system carrying the changed coefficient.
type Configurable interface {
	Params() map[string]float64
	With(name string, value float64) (System, error)
}

// Observer is notified after every accepted integration step.
type Observer interface {
	OnStep(t float64, x State, h, errNorm float64)
}

// Interpolation selects the dense output polynomial stored per step.
type Interpolation int

const (
	// InterpDopri is the 4th order continuous extension of Dormand-Prince.
	InterpDopri Interpolation = iota
	// InterpHermite is the cubic Hermite polynomial through both step ends.
	InterpHermite
)

func (i Interpolation) String() string {
	switch i {
	case InterpDopri:
		return "dopri"
	case InterpHermite:
		return "hermite"
	default:
		return fmt.Sprintf("interpolation(%d)", int(i))
	}
}

// ParseInterpolation maps a config name onto an Interpolation. The empty
// string selects the default.
func ParseInterpolation(name string) (Interpolation, error) {
	switch name {
	case "", "dopri":
		return InterpDopri, nil
	case "hermite":
		return InterpHermite, nil
	default:
		return 0, fmt.Errorf("%w: unknown interpolation %q", ErrInvalidTolerances, name)
	}
}

// Tolerances configures the adaptive integrator. Zero HInit, HMax and MaxSteps
// mean "choose automatically".
type Tolerances struct {
	RTol          float64
	ATol          float64
	HInit         float64
	HMin          float64
	HMax          float64
	Safety        float64
	FacMin        float64
	FacMax        float64
	MaxSteps      int
	Interpolation Interpolation
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		RTol:     1e-6,
		ATol:     1e-9,
		HMin:     1e-10,
		Safety:   0.9,
		FacMin:   0.2,
		FacMax:   10.0,
		MaxSteps: 1_000_000,
	}
}

func (c Tolerances) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	if !finite(c.RTol) || !finite(c.ATol) || c.RTol < 0 || c.ATol < 0 {
		return fmt.Errorf("%w: rtol=%g atol=%g", ErrInvalidTolerances, c.RTol, c.ATol)
	}
	if c.RTol == 0 && c.ATol == 0 {
		return fmt.Errorf("%w: rtol and atol are both zero", ErrInvalidTolerances)
	}
	if !(c.Safety > 0 && c.Safety <= 1) {
		return fmt.Errorf("%w: safety must be in (0, 1], got %g", ErrInvalidTolerances, c.Safety)
	}
	if !(c.FacMin > 0 && c.FacMin < 1) || !(c.FacMax > 1) || !finite(c.FacMax) {
		return fmt.Errorf("%w: need 0 < facmin < 1 < facmax, got %g, %g", ErrInvalidTolerances, c.FacMin, c.FacMax)
	}
	if !finite(c.HMin) || c.HMin <= 0 {
		return fmt.Errorf("%w: h_min must be positive, got %g", ErrInvalidTolerances, c.HMin)
	}
	if !finite(c.HInit) || c.HInit < 0 {
		return fmt.Errorf("%w: h_init must be non-negative, got %g", ErrInvalidTolerances, c.HInit)
	}
	if !finite(c.HMax) || c.HMax < 0 || (c.HMax > 0 && c.HMax < c.HMin) {
		return fmt.Errorf("%w: h_max=%g with h_min=%g", ErrInvalidTolerances, c.HMax, c.HMin)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be non-negative", ErrInvalidTolerances)
	}
	return nil
}

// Status tracks the integrator state machine.
type Status int

const (
	Initializing Status = iota
	Stepping
	Accepted
	Rejected
	Finished
	Failed
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Stepping:
		return "stepping"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == Finished || s == Failed
}

type Stats struct {
	Accepted    int
	Rejected    int
	Evaluations int
}
