package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{math.Inf(-1), 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestTolerances_Validate(t *testing.T) {
	with := func(mod func(*Tolerances)) Tolerances {
		c := DefaultTolerances()
		mod(&c)
		return c
	}

	tests := []struct {
		name  string
		tol   Tolerances
		valid bool
	}{
		{"defaults", DefaultTolerances(), true},
		{"pure relative", with(func(c *Tolerances) { c.ATol = 0 }), true},
		{"pure absolute", with(func(c *Tolerances) { c.RTol = 0 }), true},
		{"both zero", with(func(c *Tolerances) { c.RTol, c.ATol = 0, 0 }), false},
		{"negative rtol", with(func(c *Tolerances) { c.RTol = -1e-6 }), false},
		{"nan atol", with(func(c *Tolerances) { c.ATol = math.NaN() }), false},
		{"zero safety", with(func(c *Tolerances) { c.Safety = 0 }), false},
		{"safety above one", with(func(c *Tolerances) { c.Safety = 1.1 }), false},
		{"safety one", with(func(c *Tolerances) { c.Safety = 1 }), true},
		{"facmin zero", with(func(c *Tolerances) { c.FacMin = 0 }), false},
		{"facmin one", with(func(c *Tolerances) { c.FacMin = 1 }), false},
		{"facmax one", with(func(c *Tolerances) { c.FacMax = 1 }), false},
		{"facmax inf", with(func(c *Tolerances) { c.FacMax = math.Inf(1) }), false},
		{"zero h_min", with(func(c *Tolerances) { c.HMin = 0 }), false},
		{"h_max below h_min", with(func(c *Tolerances) { c.HMin, c.HMax = 1e-3, 1e-4 }), false},
		{"negative h_max", with(func(c *Tolerances) { c.HMax = -1 }), false},
		{"negative h_init", with(func(c *Tolerances) { c.HInit = -0.1 }), false},
		{"nan h_init", with(func(c *Tolerances) { c.HInit = math.NaN() }), false},
		{"negative max_steps", with(func(c *Tolerances) { c.MaxSteps = -1 }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tol.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidTolerances) {
				t.Errorf("expected ErrInvalidTolerances, got %v", err)
			}
		})
	}
}

// ramp builds a trajectory of x' = 1 with unit steps over [0, n].
func ramp(n int) *Trajectory {
	tr := NewTrajectory(0, float64(n), State{0}, InterpHermite)
	for i := 0; i < n; i++ {
		t0, t1 := float64(i), float64(i+1)
		tr.Append(Step{
			T0: t0, T1: t1, H: 1,
			X0: State{t0}, X1: State{t1},
			F0: State{1}, F1: State{1},
			Kind: InterpHermite,
		})
	}
	return tr
}

func TestTrajectory_Locate(t *testing.T) {
	tr := ramp(5)

	tests := []struct {
		name string
		t    float64
		hint int
		want int
	}{
		{"start", 0, 0, 0},
		{"interior", 2.5, 0, 2},
		{"boundary belongs to earlier step", 3, 0, 2},
		{"end", 5, 0, 4},
		{"negative hint", 1.5, -7, 1},
		{"hint past the end", 1.5, 99, 1},
		{"hint ahead of t", 0.5, 4, 0},
		{"hint at answer", 3.5, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Locate(tt.t, tt.hint); got != tt.want {
				t.Errorf("Locate(%g, %d) = %d, want %d", tt.t, tt.hint, got, tt.want)
			}
		})
	}

	empty := NewTrajectory(0, 1, State{0}, InterpHermite)
	if got := empty.Locate(0.5, 3); got != 0 {
		t.Errorf("Locate on empty trajectory = %d, want 0", got)
	}
}

func TestTrajectory_At(t *testing.T) {
	tr := ramp(4)

	for _, q := range []float64{0, 0.25, 1, 2.75, 4} {
		x, err := tr.At(q)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(x[0]-q) > 1e-12 {
			t.Errorf("At(%g) = %g", q, x[0])
		}
	}

	if _, err := tr.At(-0.1); !errors.Is(err, ErrOutOfSpan) {
		t.Errorf("expected ErrOutOfSpan, got %v", err)
	}
	if _, err := NewTrajectory(0, 1, State{0}, InterpHermite).At(0.5); !errors.Is(err, ErrEmptyTrajectory) {
		t.Errorf("expected ErrEmptyTrajectory, got %v", err)
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{Initializing, Stepping, Accepted, Rejected} {
		if s.Terminal() {
			t.Errorf("%v reported terminal", s)
		}
	}
	for _, s := range []Status{Finished, Failed} {
		if !s.Terminal() {
			t.Errorf("%v not terminal", s)
		}
	}
}
