package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// Duffing implements a nonlinear oscillator driven by explicit time forcing:
// x'' = −δx' − αx − βx³ + γcos(ωt).
type Duffing struct {
	Alpha, Beta, Delta, Gamma, Omega float64
}

func NewDuffing() *Duffing {
	return &Duffing{-1.0, 1.0, 0.3, 0.5, 1.2}
}

func (d *Duffing) StateDim() int { return 2 }

func (d *Duffing) Derive(s dynamo.State, t float64) dynamo.State {
	x, v := s[0], s[1]
	return dynamo.State{v, -d.Delta*v - d.Alpha*x - d.Beta*x*x*x + d.Gamma*math.Cos(d.Omega*t)}
}

func (d *Duffing) Energy(s dynamo.State) float64 {
	x, v := s[0], s[1]
	return 0.5*v*v + 0.5*d.Alpha*x*x + 0.25*d.Beta*x*x*x*x
}

func (d *Duffing) ForcingPeriod() float64 {
	if d.Omega == 0 {
		return 0
	}
	return 2 * math.Pi / math.Abs(d.Omega)
}

func (d *Duffing) Params() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta, "gamma": d.Gamma, "omega": d.Omega}
}

func (d *Duffing) With(n string, v float64) (dynamo.System, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s is not finite", dynamo.ErrInvalidParameters, n)
	}
	c := *d
	switch n {
	case "alpha":
		c.Alpha = v
	case "beta":
		c.Beta = v
	case "delta":
		c.Delta = v
	case "gamma":
		c.Gamma = v
	case "omega":
		c.Omega = v
	default:
		return nil, fmt.Errorf("%w: unknown param %q", dynamo.ErrInvalidParameters, n)
	}
	return &c, nil
}
