// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types shared by the
// integrator, the resampler and the spectral estimator:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Tolerances]: adaptive integrator configuration
//   - [Trajectory]: accepted steps plus their dense output
//   - [Ensemble]: independent runs executed concurrently
//
// # Example
//
//	dyn, _ := physics.NewParametricPendulum(physics.DefaultParams())
//	tr, err := integrators.Integrate(ctx, dyn, x0, 0, 40*math.Pi, dynamo.DefaultTolerances())
//	s, err := series.Resample(tr, math.Pi/100)
//
// # Thread Safety
//
// A Trajectory is written only by the integrator that builds it. Once
// Integrate returns it is read-only and may be shared between goroutines.
package dynamo
