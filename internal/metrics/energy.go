package metrics

import (
	"math"

	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/series"
)

// Energy returns the energy of every sample of s. It returns nil when sys
// has no energy function.
func Energy(sys dynamo.System, s *series.Series) []float64 {
	h, ok := sys.(dynamo.Hamiltonian)
	if !ok || s == nil {
		return nil
	}
	out := make([]float64, len(s.States))
	for i, x := range s.States {
		out[i] = h.Energy(x)
	}
	return out
}

// EnergyDrift is the largest relative deviation from the first observed
// energy. It stays zero for systems without an energy function.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	ec, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// DriftOf is the maximum relative energy drift over a sampled series.
func DriftOf(sys dynamo.System, s *series.Series) float64 {
	d := NewEnergyDrift(sys)
	ObserveSeries(s.Times, s.States, d)
	return d.Value()
}
