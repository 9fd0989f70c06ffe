package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// Coefficient names as they appear in configuration files.
const (
	ParamQ      = "q"
	ParamOmega  = "OMEGA"
	ParamOmega0 = "omega0"
	ParamBeta   = "beta"
)

// Params are the coefficients of the parametrically forced pendulum.
type Params struct {
	Q      float64 // forcing amplitude
	Omega  float64 // forcing frequency
	Omega0 float64 // stiffness; natural frequency when positive
	Beta   float64 // damping
}

func DefaultParams() Params {
	return Params{Q: 0.2, Omega: 2.0, Omega0: 1.0, Beta: 0.1}
}

func (p Params) Validate() error {
	m := p.asMap()
	for _, name := range paramOrder {
		if v := m[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", dynamo.ErrInvalidParameters, name)
		}
	}
	return nil
}

var paramOrder = []string{ParamQ, ParamOmega, ParamOmega0, ParamBeta}

func (p Params) asMap() map[string]float64 {
	return map[string]float64{
		ParamQ:      p.Q,
		ParamOmega:  p.Omega,
		ParamOmega0: p.Omega0,
		ParamBeta:   p.Beta,
	}
}

// ParamsFromMap builds Params from a named mapping. Every coefficient must be
// present; unknown names are rejected.
func ParamsFromMap(m map[string]float64) (Params, error) {
	var p Params
	seen := 0
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := p.set(name, m[name]); err != nil {
			return Params{}, err
		}
		seen++
	}
	if seen != 4 {
		missing := make([]string, 0, 4)
		for _, name := range []string{ParamQ, ParamOmega, ParamOmega0, ParamBeta} {
			if _, ok := m[name]; !ok {
				missing = append(missing, name)
			}
		}
		return Params{}, fmt.Errorf("%w: missing %v", dynamo.ErrInvalidParameters, missing)
	}
	return p, p.Validate()
}

func (p *Params) set(name string, value float64) error {
	switch name {
	case ParamQ:
		p.Q = value
	case ParamOmega:
		p.Omega = value
	case ParamOmega0:
		p.Omega0 = value
	case ParamBeta:
		p.Beta = value
	default:
		return fmt.Errorf("%w: unknown param %q", dynamo.ErrInvalidParameters, name)
	}
	return nil
}

// ParametricPendulum is a damped pendulum whose pivot is driven vertically:
//
//	θ' = v
//	v' = −2βω₀v − (ω₀² − qΩ²cos(Ωt))·sin θ
//
// The coefficients are fixed at construction.
type ParametricPendulum struct {
	p Params
}

func NewParametricPendulum(p Params) (*ParametricPendulum, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &ParametricPendulum{p: p}, nil
}

func (pp *ParametricPendulum) StateDim() int { return 2 }

func (pp *ParametricPendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta, v := x[0], x[1]
	p := pp.p
	stiffness := p.Omega0*p.Omega0 - p.Q*p.Omega*p.Omega*math.Cos(p.Omega*t)
	a := -2*p.Beta*p.Omega0*v - stiffness*math.Sin(theta)
	return dynamo.State{v, a}
}

// Energy is the mechanical energy of the unforced pendulum per unit inertia.
// It is conserved only when q and β are zero.
func (pp *ParametricPendulum) Energy(x dynamo.State) float64 {
	return 0.5*x[1]*x[1] + pp.p.Omega0*pp.p.Omega0*(1-math.Cos(x[0]))
}

// ForcingPeriod returns 2π/Ω, or 0 for an unforced system.
func (pp *ParametricPendulum) ForcingPeriod() float64 {
	if pp.p.Omega == 0 {
		return 0
	}
	return 2 * math.Pi / math.Abs(pp.p.Omega)
}

// SupportOffset is the pivot displacement q·cos(Ωt).
func (pp *ParametricPendulum) SupportOffset(t float64) float64 {
	return pp.p.Q * math.Cos(pp.p.Omega*t)
}

func (pp *ParametricPendulum) Coefficients() Params { return pp.p }

func (pp *ParametricPendulum) Params() map[string]float64 { return pp.p.asMap() }

func (pp *ParametricPendulum) With(name string, value float64) (dynamo.System, error) {
	p := pp.p
	if err := p.set(name, value); err != nil {
		return nil, err
	}
	return NewParametricPendulum(p)
}
