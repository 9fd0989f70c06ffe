package integrators

import (
	"math"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// initialStep guesses a first step size from the size of the state, its
// derivative and a finite-difference estimate of the second derivative
// (Hairer, Nørsett & Wanner, section II.4). It returns the guess and the
// number of extra vector field evaluations it spent.
func initialStep(sys dynamo.System, t float64, x, f0 dynamo.State, cfg dynamo.Tolerances, hMax float64) (float64, int) {
	n := len(x)
	sc := make([]float64, n)
	used := 0
	dnf, dny := 0.0, 0.0
	for i := 0; i < n; i++ {
		sc[i] = cfg.ATol + cfg.RTol*math.Abs(x[i])
		if sc[i] == 0 {
			continue
		}
		used++
		dnf += (f0[i] / sc[i]) * (f0[i] / sc[i])
		dny += (x[i] / sc[i]) * (x[i] / sc[i])
	}
	if used == 0 {
		return math.Min(1e-6, hMax), 0
	}
	dnf = math.Sqrt(dnf / float64(used))
	dny = math.Sqrt(dny / float64(used))

	var h float64
	if dnf < 1e-5 || dny < 1e-5 || math.IsInf(dnf, 0) || math.IsInf(dny, 0) || math.IsNaN(dnf) || math.IsNaN(dny) {
		h = 1e-6
	} else {
		h = 0.01 * dny / dnf
	}
	h = math.Min(h, hMax)

	// explicit Euler step
	x1 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x1[i] = x[i] + h*f0[i]
	}
	f1 := sys.Derive(x1, t+h)
	if !f1.IsValid() {
		return h, 1
	}

	der2 := 0.0
	for i := 0; i < n; i++ {
		if sc[i] == 0 {
			continue
		}
		d := (f1[i] - f0[i]) / sc[i]
		der2 += d * d
	}
	der2 = math.Sqrt(der2/float64(used)) / h

	der12 := math.Max(der2, dnf)
	var h1 float64
	if der12 <= 1e-15 || math.IsInf(der12, 0) || math.IsNaN(der12) {
		h1 = math.Max(1e-6, h*1e-3)
	} else {
		h1 = math.Pow(0.01/der12, 1.0/float64(errorOrder+1))
	}
	return math.Min(100*h, math.Min(h1, hMax)), 1
}
