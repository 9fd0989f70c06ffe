package dynamo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Integrator produces a Trajectory for a system over [tStart, tStop].
type Integrator interface {
	Integrate(ctx context.Context, sys System, x0 State, tStart, tStop float64) (*Trajectory, error)
}

// Ensemble integrates independent systems concurrently. Each run owns its
// system, state and trajectory, so no synchronization beyond the final wait
// is needed.
type Ensemble struct {
	integ   Integrator
	workers int
}

func NewEnsemble(integ Integrator, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ensemble{integ: integ, workers: workers}
}

// Run integrates every system from the same initial condition. Results are
// returned in input order. The first failure cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, systems []System, x0 State, tStart, tStop float64) ([]*Trajectory, error) {
	results := make([]*Trajectory, len(systems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, sys := range systems {
		g.Go(func() error {
			tr, err := e.integ.Integrate(gctx, sys, x0.Clone(), tStart, tStop)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
