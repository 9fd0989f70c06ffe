// Package series turns adaptive trajectories into uniformly sampled signals.
package series

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// gridGuard absorbs the rounding in span/dt so that an exact multiple of dt
// is not lost to floor.
const gridGuard = 1e-9

// MaxSamples bounds the length of any grid built by Resample or Stroboscopic.
const MaxSamples = math.MaxInt32

// Series is a uniformly sampled trajectory: Times[k] = TStart + k·Dt, with the
// last sample clamped to the end of the span.
type Series struct {
	Dt     float64
	TStart float64
	Times  []float64
	States []dynamo.State
}

func (s *Series) Len() int { return len(s.Times) }

// Channel extracts component i of every sample.
func (s *Series) Channel(i int) ([]float64, error) {
	if len(s.States) == 0 {
		return nil, dynamo.ErrEmptyTrajectory
	}
	if i < 0 || i >= len(s.States[0]) {
		return nil, fmt.Errorf("%w: channel %d of %d", dynamo.ErrDimensionMismatch, i, len(s.States[0]))
	}
	out := make([]float64, len(s.States))
	for k, x := range s.States {
		out[k] = x[i]
	}
	return out, nil
}

// Range returns the minimum and maximum of channel i.
func (s *Series) Range(i int) (float64, float64, error) {
	ch, err := s.Channel(i)
	if err != nil {
		return 0, 0, err
	}
	return floats.Min(ch), floats.Max(ch), nil
}

// Downsample keeps every k-th sample starting with the first.
func (s *Series) Downsample(k int) (*Series, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: downsample factor %d", dynamo.ErrInvalidResampleStep, k)
	}
	out := &Series{Dt: s.Dt * float64(k), TStart: s.TStart}
	for i := 0; i < len(s.Times); i += k {
		out.Times = append(out.Times, s.Times[i])
		out.States = append(out.States, s.States[i].Clone())
	}
	return out, nil
}

// Samples returns floor(span/dt)+1 with a relative guard against rounding.
func Samples(span, dt float64) int {
	ratio := span / dt
	return int(math.Floor(ratio+ratio*gridGuard)) + 1
}

// Resample evaluates the trajectory's dense output on a uniform grid of step
// dt. It never extrapolates past the end of the trajectory.
func Resample(tr *dynamo.Trajectory, dt float64) (*Series, error) {
	if tr == nil || len(tr.Steps) == 0 {
		return nil, dynamo.ErrEmptyTrajectory
	}
	span := tr.Span()
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 || dt > span {
		return nil, fmt.Errorf("%w: dt=%g for span %g", dynamo.ErrInvalidResampleStep, dt, span)
	}

	if span/dt >= MaxSamples {
		return nil, fmt.Errorf("%w: dt=%g yields more than %d samples over %g", dynamo.ErrInvalidResampleStep, dt, MaxSamples, span)
	}

	n := Samples(span, dt)
	s := &Series{
		Dt:     dt,
		TStart: tr.TStart,
		Times:  make([]float64, n),
		States: make([]dynamo.State, n),
	}

	cursor := 0
	for k := 0; k < n; k++ {
		t := tr.TStart + float64(k)*dt
		if t > tr.TStop {
			t = tr.TStop
		}
		cursor = tr.Locate(t, cursor)
		s.Times[k] = t
		s.States[k] = tr.Steps[cursor].Eval(t)
	}
	return s, nil
}

// ResampleChannel is Resample followed by Channel.
func ResampleChannel(tr *dynamo.Trajectory, dt float64, i int) ([]float64, error) {
	s, err := Resample(tr, dt)
	if err != nil {
		return nil, err
	}
	return s.Channel(i)
}

// Stroboscopic samples the trajectory once per forcing period at the given
// phase offset, giving the Poincaré section of a periodically forced system.
func Stroboscopic(tr *dynamo.Trajectory, period, phase float64) (*Series, error) {
	if tr == nil || len(tr.Steps) == 0 {
		return nil, dynamo.ErrEmptyTrajectory
	}
	if math.IsNaN(period) || math.IsInf(period, 0) || period <= 0 {
		return nil, fmt.Errorf("%w: period=%g", dynamo.ErrInvalidResampleStep, period)
	}
	if math.IsNaN(phase) || phase < 0 || phase >= period {
		return nil, fmt.Errorf("%w: phase=%g outside [0, %g)", dynamo.ErrInvalidResampleStep, phase, period)
	}

	s := &Series{Dt: period, TStart: tr.TStart + phase}
	if phase > tr.Span() {
		return s, nil
	}

	if (tr.Span()-phase)/period >= MaxSamples {
		return nil, fmt.Errorf("%w: period=%g yields more than %d samples", dynamo.ErrInvalidResampleStep, period, MaxSamples)
	}

	n := Samples(tr.Span()-phase, period)
	cursor := 0
	for k := 0; k < n; k++ {
		t := s.TStart + float64(k)*period
		if t > tr.TStop {
			t = tr.TStop
		}
		cursor = tr.Locate(t, cursor)
		s.Times = append(s.Times, t)
		s.States = append(s.States, tr.Steps[cursor].Eval(t))
	}
	return s, nil
}
