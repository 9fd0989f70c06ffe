package dynamo

import (
	"fmt"
	"sort"
)

// Point is one accepted sample of a trajectory. Err is the error norm of the
// step that produced it (zero for the initial condition).
type Point struct {
	T   float64
	X   State
	Err float64
}

// Step is an accepted integration interval [T0, T1] with everything needed
// to evaluate the state anywhere inside it without calling the vector field.
type Step struct {
	T0, T1  float64
	H       float64
	X0, X1  State
	F0, F1  State
	ErrNorm float64

	// Dense holds the Dormand-Prince continuous extension coefficients
	// (rcont3..rcont5). Empty for Hermite interpolation.
	Dense []State
	Kind  Interpolation
}

// Eval evaluates the step's interpolation polynomial at t. Callers are
// responsible for keeping t inside [T0, T1].
func (s *Step) Eval(t float64) State {
	switch t {
	case s.T0:
		return s.X0.Clone()
	case s.T1:
		return s.X1.Clone()
	}

	theta := (t - s.T0) / s.H
	theta1 := 1 - theta
	out := make(State, len(s.X0))

	if s.Kind == InterpDopri && len(s.Dense) == 3 {
		r3, r4, r5 := s.Dense[0], s.Dense[1], s.Dense[2]
		for i := range out {
			diff := s.X1[i] - s.X0[i]
			out[i] = s.X0[i] + theta*(diff+theta1*(r3[i]+theta*(r4[i]+theta1*r5[i])))
		}
		return out
	}

	t2 := theta * theta
	t3 := t2 * theta
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + theta
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	for i := range out {
		out[i] = h00*s.X0[i] + h10*s.H*s.F0[i] + h01*s.X1[i] + h11*s.H*s.F1[i]
	}
	return out
}

// Trajectory is the append-only record of an integration run. Once the
// integrator hands it back it is read-only and safe for concurrent readers.
type Trajectory struct {
	TStart, TStop float64
	Points        []Point
	Steps         []Step
	Stats         Stats
	Status        Status
	Interpolation Interpolation
}

func NewTrajectory(tStart, tStop float64, x0 State, kind Interpolation) *Trajectory {
	return &Trajectory{
		TStart:        tStart,
		TStop:         tStop,
		Points:        []Point{{T: tStart, X: x0.Clone()}},
		Steps:         make([]Step, 0, 64),
		Status:        Initializing,
		Interpolation: kind,
	}
}

// Append records an accepted step. Step start times must continue the
// trajectory exactly.
func (tr *Trajectory) Append(s Step) {
	tr.Steps = append(tr.Steps, s)
	tr.Points = append(tr.Points, Point{T: s.T1, X: s.X1.Clone(), Err: s.ErrNorm})
}

func (tr *Trajectory) Len() int { return len(tr.Points) }

func (tr *Trajectory) Span() float64 { return tr.TStop - tr.TStart }

func (tr *Trajectory) Initial() State { return tr.Points[0].X.Clone() }

func (tr *Trajectory) Final() State { return tr.Points[len(tr.Points)-1].X.Clone() }

func (tr *Trajectory) Times() []float64 {
	times := make([]float64, len(tr.Points))
	for i, p := range tr.Points {
		times[i] = p.T
	}
	return times
}

func (tr *Trajectory) States() []State {
	states := make([]State, len(tr.Points))
	for i, p := range tr.Points {
		states[i] = p.X.Clone()
	}
	return states
}

// Locate returns the index of the step containing t, starting the scan at
// hint. Monotonic queries therefore cost O(1) amortized.
func (tr *Trajectory) Locate(t float64, hint int) int {
	last := len(tr.Steps) - 1
	if last < 0 {
		return 0
	}
	hint = max(0, min(hint, last))
	for hint > 0 && tr.Steps[hint].T0 > t {
		hint--
	}
	for hint < last && tr.Steps[hint].T1 < t {
		hint++
	}
	return hint
}

// At evaluates the dense output at an arbitrary t inside the span.
func (tr *Trajectory) At(t float64) (State, error) {
	if len(tr.Steps) == 0 {
		return nil, ErrEmptyTrajectory
	}
	if t < tr.TStart || t > tr.TStop {
		return nil, fmt.Errorf("%w: t=%g not in [%g, %g]", ErrOutOfSpan, t, tr.TStart, tr.TStop)
	}
	idx := sort.Search(len(tr.Steps), func(i int) bool { return tr.Steps[i].T1 >= t })
	if idx == len(tr.Steps) {
		idx = len(tr.Steps) - 1
	}
	return tr.Steps[idx].Eval(t), nil
}

// MaxErrNorm returns the largest error norm over all accepted steps.
func (tr *Trajectory) MaxErrNorm() float64 {
	m := 0.0
	for _, s := range tr.Steps {
		if s.ErrNorm > m {
			m = s.ErrNorm
		}
	}
	return m
}
