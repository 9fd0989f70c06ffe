package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	// continuous extension
	d1 = -12715105075.0 / 11282082432.0
	d3 = 87487479700.0 / 32700410799.0
	d4 = -10690763975.0 / 1880347072.0
	d5 = 701980252875.0 / 199316789632.0
	d6 = -1453857185.0 / 822651844.0
	d7 = 69997945.0 / 29380423.0
)

// errorOrder is the order of the embedded estimate; the controller exponent
// is -1/(errorOrder+1).
const errorOrder = 4

// DormandPrince integrates with the 5(4) embedded pair and stores dense
// output for every accepted step. A DormandPrince value may be reused and
// shared; each Integrate call owns all of its working state.
type DormandPrince struct {
	tol       dynamo.Tolerances
	observers []dynamo.Observer
}

func NewDormandPrince(tol dynamo.Tolerances) *DormandPrince {
	return &DormandPrince{tol: tol}
}

func (r *DormandPrince) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

func (r *DormandPrince) Tolerances() dynamo.Tolerances { return r.tol }

// Integrate is a convenience wrapper for a single run without observers.
func Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, tStart, tStop float64, tol dynamo.Tolerances) (*dynamo.Trajectory, error) {
	return NewDormandPrince(tol).Integrate(ctx, sys, x0, tStart, tStop)
}

// stages holds the seven slope evaluations of one attempted step.
type stages struct {
	k1, k2, k3, k4, k5, k6, k7 dynamo.State
	xNew                       dynamo.State
	evals                      int
}

func (r *DormandPrince) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, tStart, tStop float64) (*dynamo.Trajectory, error) {
	cfg := r.tol
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateSpan(tStart, tStop); err != nil {
		return nil, err
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system expects %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, dynamo.ErrInvalidState
	}

	hMin := cfg.HMin
	hMax := cfg.HMax
	if hMax == 0 {
		hMax = tStop - tStart
	}
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = dynamo.DefaultTolerances().MaxSteps
	}

	tr := dynamo.NewTrajectory(tStart, tStop, x0, cfg.Interpolation)
	t := tStart
	x := x0.Clone()

	fail := func(step int, h float64, err error) (*dynamo.Trajectory, error) {
		tr.Status = dynamo.Failed
		return nil, &dynamo.IntegrationError{Step: step, Time: t, StepSize: h, State: x.Clone(), Wrapped: err}
	}

	f0 := sys.Derive(x, t)
	tr.Stats.Evaluations++
	if !f0.IsValid() {
		return fail(0, 0, dynamo.ErrNonFiniteEvaluation)
	}

	h := cfg.HInit
	if h == 0 {
		var evals int
		h, evals = initialStep(sys, t, x, f0, cfg, hMax)
		tr.Stats.Evaluations += evals
	}
	h = math.Min(math.Max(h, hMin), hMax)

	rejectedLast := false
	attempts := 0
	tr.Status = dynamo.Stepping

	for t < tStop {
		select {
		case <-ctx.Done():
			return fail(attempts, h, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err()))
		default:
		}

		if attempts >= maxSteps {
			return fail(attempts, h, fmt.Errorf("%w: %d attempts", dynamo.ErrStepLimit, maxSteps))
		}
		attempts++

		last := false
		if tStop-t <= hMax && t+1.01*h >= tStop {
			h = tStop - t
			last = true
		}
		if t+h == t {
			return fail(attempts, h, dynamo.ErrStepSizeUnderflow)
		}

		st := r.attempt(sys, x, f0, t, h)
		tr.Stats.Evaluations += st.evals
		if !st.valid() {
			return fail(attempts, h, dynamo.ErrNonFiniteEvaluation)
		}

		errNorm := errorNorm(x, st, h, cfg)

		if errNorm <= 1 {
			tNew := t + h
			if last {
				tNew = tStop
			}
			tr.Append(r.record(cfg.Interpolation, t, tNew, h, x, f0, st, errNorm))
			tr.Stats.Accepted++

			for _, o := range r.observers {
				o.OnStep(tNew, st.xNew, h, errNorm)
			}

			facMax := cfg.FacMax
			if rejectedLast {
				facMax = 1
			}

			t = tNew
			x = st.xNew
			f0 = st.k7
			h = math.Min(math.Max(h*stepFactor(errNorm, cfg.Safety, cfg.FacMin, facMax), hMin), hMax)
			rejectedLast = false
			continue
		}

		tr.Stats.Rejected++
		if h <= hMin {
			return fail(attempts, h, fmt.Errorf("%w: error norm %.3g at h=%.3g", dynamo.ErrStepSizeUnderflow, errNorm, h))
		}
		h = math.Max(h*stepFactor(errNorm, cfg.Safety, cfg.FacMin, 1), hMin)
		rejectedLast = true
	}

	tr.Status = dynamo.Finished
	return tr, nil
}

func (r *DormandPrince) attempt(dyn dynamo.System, x, k1 dynamo.State, t, dt float64) *stages {
	n := len(x)
	st := &stages{k1: k1}

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	st.k2 = dyn.Derive(x2, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*st.k2[i])
	}
	st.k3 = dyn.Derive(x3, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*st.k2[i]+b43*st.k3[i])
	}
	st.k4 = dyn.Derive(x4, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*st.k2[i]+b53*st.k3[i]+b54*st.k4[i])
	}
	st.k5 = dyn.Derive(x5, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*st.k2[i]+b63*st.k3[i]+b64*st.k4[i]+b65*st.k5[i])
	}
	st.k6 = dyn.Derive(x6, t+dt)

	st.xNew = make(dynamo.State, n)
	for i := 0; i < n; i++ {
		st.xNew[i] = x[i] + dt*(c1*k1[i]+c3*st.k3[i]+c4*st.k4[i]+c5*st.k5[i]+c6*st.k6[i])
	}

	st.k7 = dyn.Derive(st.xNew, t+dt)
	st.evals = 6
	return st
}

func (st *stages) valid() bool {
	for _, k := range []dynamo.State{st.k2, st.k3, st.k4, st.k5, st.k6, st.k7, st.xNew} {
		if !k.IsValid() {
			return false
		}
	}
	return true
}

// errorNorm is max_i |e_i| / (atol + rtol·max(|x_i|, |x_new_i|)).
func errorNorm(x dynamo.State, st *stages, dt float64, cfg dynamo.Tolerances) float64 {
	errMax := 0.0
	for i := range x {
		errEst := dt * (dc1*st.k1[i] + dc3*st.k3[i] + dc4*st.k4[i] + dc5*st.k5[i] + dc6*st.k6[i] + dc7*st.k7[i])
		if errEst == 0 {
			continue
		}
		scale := cfg.ATol + cfg.RTol*math.Max(math.Abs(x[i]), math.Abs(st.xNew[i]))
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return errMax
}

func stepFactor(errNorm, safety, facMin, facMax float64) float64 {
	if errNorm == 0 {
		return facMax
	}
	return math.Min(facMax, math.Max(facMin, safety*math.Pow(errNorm, -1.0/(errorOrder+1))))
}

func (r *DormandPrince) record(kind dynamo.Interpolation, t0, t1, h float64, x, f0 dynamo.State, st *stages, errNorm float64) dynamo.Step {
	s := dynamo.Step{
		T0:      t0,
		T1:      t1,
		H:       h,
		X0:      x.Clone(),
		X1:      st.xNew.Clone(),
		F0:      f0.Clone(),
		F1:      st.k7.Clone(),
		ErrNorm: errNorm,
		Kind:    kind,
	}
	if kind != dynamo.InterpDopri {
		return s
	}

	n := len(x)
	r3 := make(dynamo.State, n)
	r4 := make(dynamo.State, n)
	r5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		diff := st.xNew[i] - x[i]
		r3[i] = h*st.k1[i] - diff
		r4[i] = diff - h*st.k7[i] - r3[i]
		r5[i] = h * (d1*st.k1[i] + d3*st.k3[i] + d4*st.k4[i] + d5*st.k5[i] + d6*st.k6[i] + d7*st.k7[i])
	}
	s.Dense = []dynamo.State{r3, r4, r5}
	return s
}

func validateSpan(tStart, tStop float64) error {
	for _, v := range []float64{tStart, tStop} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound %g", dynamo.ErrInvalidTimeSpan, v)
		}
	}
	if tStop <= tStart {
		return fmt.Errorf("%w: t_stop=%g must exceed t_start=%g", dynamo.ErrInvalidTimeSpan, tStop, tStart)
	}
	return nil
}
