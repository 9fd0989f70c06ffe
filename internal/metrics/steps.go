package metrics

import (
	"math"
	"sync"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// StepObserver records accepted-step statistics as the integrator reports
// them. It is safe to share between concurrent runs.
type StepObserver struct {
	mu      sync.Mutex
	steps   int
	maxNorm float64
	minH    float64
	maxH    float64
	lastT   float64
}

func NewStepObserver() *StepObserver {
	return &StepObserver{minH: math.Inf(1)}
}

func (o *StepObserver) OnStep(t float64, _ dynamo.State, h, errNorm float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps++
	o.lastT = t
	o.maxNorm = math.Max(o.maxNorm, errNorm)
	o.minH = math.Min(o.minH, h)
	o.maxH = math.Max(o.maxH, h)
}

func (o *StepObserver) Steps() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.steps
}

// MaxErrNorm is the largest error norm of any accepted step.
func (o *StepObserver) MaxErrNorm() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxNorm
}

// StepRange returns the smallest and largest accepted step sizes.
func (o *StepObserver) StepRange() (float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.steps == 0 {
		return 0, 0
	}
	return o.minH, o.maxH
}

func (o *StepObserver) LastTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastT
}

func (o *StepObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps, o.maxNorm, o.maxH, o.lastT = 0, 0, 0, 0
	o.minH = math.Inf(1)
}
