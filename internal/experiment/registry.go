package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/metrics"
	"github.com/san-kum/pendspec/internal/physics"
)

type Registry struct {
	models map[string]func() dynamo.System
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() dynamo.System),
	}

	r.models["parametric_pendulum"] = func() dynamo.System {
		p, _ := physics.NewParametricPendulum(physics.DefaultParams())
		return p
	}
	r.models["pendulum"] = func() dynamo.System { return physics.NewPendulum() }
	r.models["duffing"] = func() dynamo.System { return physics.NewDuffing() }

	return r
}

// GetModel builds the named model and applies params on top of its defaults.
// Overrides are applied in name order so the outcome is deterministic.
func (r *Registry) GetModel(name string, params map[string]float64) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", dynamo.ErrInvalidParameters, name)
	}
	sys := fn()

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		c, ok := sys.(dynamo.Configurable)
		if !ok {
			return nil, fmt.Errorf("%w: model %q takes no parameters", dynamo.ErrInvalidParameters, name)
		}
		next, err := c.With(k, params[k])
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		sys = next
	}
	return sys, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are evaluated over every resampled run.
func (r *Registry) DefaultMetrics(sys dynamo.System) []metrics.Metric {
	return []metrics.Metric{
		metrics.NewEnergyDrift(sys),
		metrics.NewStability(math.Pi),
	}
}
