package integrators

import (
	"context"
	"fmt"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// RK4 is the classical fixed-step method. It has no error control and is
// kept as an independent reference for DormandPrince. Steps carry Hermite
// dense output.
type RK4 struct {
	h float64
}

func NewRK4(h float64) *RK4 {
	return &RK4{h: h}
}

func (r *RK4) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, tStart, tStop float64) (*dynamo.Trajectory, error) {
	if err := validateSpan(tStart, tStop); err != nil {
		return nil, err
	}
	if !(r.h > 0) {
		return nil, fmt.Errorf("%w: step %g", dynamo.ErrInvalidTolerances, r.h)
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system expects %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, dynamo.ErrInvalidState
	}

	tr := dynamo.NewTrajectory(tStart, tStop, x0, dynamo.InterpHermite)
	tr.Status = dynamo.Stepping
	x := x0.Clone()
	t := tStart
	k1 := sys.Derive(x, t)
	tr.Stats.Evaluations++

	for step := 0; t < tStop; step++ {
		select {
		case <-ctx.Done():
			return nil, &dynamo.IntegrationError{Step: step, Time: t, StepSize: r.h, State: x, Wrapped: fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())}
		default:
		}

		h := r.h
		tNew := t + h
		if tNew >= tStop {
			h = tStop - t
			tNew = tStop
		}

		xNew := r.step(sys, x, k1, t, h)
		kNew := sys.Derive(xNew, tNew)
		tr.Stats.Evaluations += 4
		if !xNew.IsValid() || !kNew.IsValid() {
			tr.Status = dynamo.Failed
			return nil, &dynamo.IntegrationError{Step: step, Time: t, StepSize: h, State: x, Wrapped: dynamo.ErrNonFiniteEvaluation}
		}

		tr.Append(dynamo.Step{T0: t, T1: tNew, H: h, X0: x, X1: xNew, F0: k1, F1: kNew, Kind: dynamo.InterpHermite})
		tr.Stats.Accepted++
		t, x, k1 = tNew, xNew, kNew
	}

	tr.Status = dynamo.Finished
	return tr, nil
}

func (r *RK4) step(dyn dynamo.System, x, k1 dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	scratch := make(dynamo.State, n)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := dyn.Derive(scratch, t+dt*0.5)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := dyn.Derive(scratch, t+dt*0.5)

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := dyn.Derive(scratch, t+dt)

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result
}
