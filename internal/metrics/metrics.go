package metrics

import "github.com/san-kum/pendspec/internal/dynamo"

// Metric accumulates a scalar over a stream of samples.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

// ObserveSeries feeds every sample of times/states to each metric.
func ObserveSeries(times []float64, states []dynamo.State, ms ...Metric) {
	for i, x := range states {
		for _, m := range ms {
			m.Observe(x, times[i])
		}
	}
}
