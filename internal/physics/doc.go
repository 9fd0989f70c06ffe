// Package physics provides dynamical system models for simulation.
//
// Each model implements the [dynamo.System] interface, defining the
// differential equations governing the system's evolution:
//
//   - [ParametricPendulum]: damped pendulum with a vertically driven pivot
//   - [Duffing]: cubic oscillator with harmonic forcing
//   - [Pendulum]: simple damped pendulum
//
// All models also implement [dynamo.Configurable] and [dynamo.Hamiltonian].
// Models with a periodic drive implement [Forced].
//
// # Energy Conservation
//
// For Hamiltonian systems, use [dynamo.Hamiltonian] to monitor energy drift:
//
//	dyn, _ := physics.NewParametricPendulum(physics.Params{Omega0: 1})
//	if h, ok := dyn.(dynamo.Hamiltonian); ok {
//	    energy := h.Energy(state)
//	}
package physics

// Forced is implemented by systems with a periodic external drive.
type Forced interface {
	ForcingPeriod() float64
}
