package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// Sweep runs one independent integration per point of a parameter grid.
// Runs share nothing but the read-only configuration.
type Sweep struct {
	exp        *Experiment
	paramNames []string
	ranges     [][]float64
}

func NewSweep(exp *Experiment, params []string, ranges [][]float64) (*Sweep, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters with %d value lists", dynamo.ErrInvalidParameters, len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: no values for %s", dynamo.ErrInvalidParameters, params[i])
		}
	}
	return &Sweep{exp: exp, paramNames: params, ranges: ranges}, nil
}

// Points expands the grid. The first parameter varies slowest.
func (s *Sweep) Points() []map[string]float64 {
	var out []map[string]float64
	s.expand(0, make(map[string]float64), &out)
	return out
}

func (s *Sweep) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(s.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := s.paramNames[depth]
	for _, val := range s.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		s.expand(depth+1, newParams, out)
	}
}

// Run integrates every grid point concurrently and returns results in grid
// order. The first failure cancels the remaining runs.
func (s *Sweep) Run(ctx context.Context) ([]*Result, error) {
	e := s.exp
	if err := e.Setup(); err != nil {
		return nil, err
	}

	points := s.Points()
	systems := make([]dynamo.System, len(points))
	for i, p := range points {
		merged := make(map[string]float64, len(e.cfg.Params)+len(p))
		for k, v := range e.cfg.Params {
			merged[k] = v
		}
		for k, v := range p {
			merged[k] = v
		}
		sys, err := e.registry.GetModel(e.cfg.Model, merged)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		systems[i] = sys
	}

	l := e.log.WithFields(log.Fields{"model": e.cfg.Model, "points": len(points)})
	l.Info("sweep started")
	start := time.Now()

	ens := dynamo.NewEnsemble(e.integrator(), e.cfg.Workers)
	trs, err := ens.Run(ctx, systems, e.cfg.GetInitState(), e.cfg.TStart, e.cfg.TStop)
	if err != nil {
		l.WithError(err).Warn("sweep failed")
		return nil, err
	}

	results := make([]*Result, len(points))
	for i, tr := range trs {
		id := uuid.New()
		res, err := e.analyze(l.WithField("run", id.String()), id, systems[i], tr)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		results[i] = res
	}

	l.WithField("elapsed", time.Since(start)).Info("sweep complete")
	return results, nil
}

// Best returns the result with the smallest value of metric, or nil when no
// result reports it.
func Best(results []*Result, metric string) (*Result, float64) {
	best := math.Inf(1)
	var bestResult *Result
	for _, r := range results {
		val, ok := r.Metrics[metric]
		if !ok {
			continue
		}
		if val < best {
			best = val
			bestResult = r
		}
	}
	return bestResult, best
}
