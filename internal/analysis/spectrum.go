package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// Scaling selects how periodogram bins are normalized.
type Scaling int

const (
	// ScaleSpectrum divides by (Σw)², so a bin-centred sinusoid of
	// amplitude A reads A²/2 under a rectangular window.
	ScaleSpectrum Scaling = iota
	// ScaleDensity divides by fs·Σw², giving power per unit frequency.
	ScaleDensity
)

func (s Scaling) String() string {
	switch s {
	case ScaleSpectrum:
		return "spectrum"
	case ScaleDensity:
		return "density"
	default:
		return fmt.Sprintf("Scaling(%d)", int(s))
	}
}

func ParseScaling(name string) (Scaling, error) {
	switch name {
	case "", "spectrum":
		return ScaleSpectrum, nil
	case "density":
		return ScaleDensity, nil
	}
	return 0, fmt.Errorf("%w: unknown scaling %q", dynamo.ErrInvalidParameters, name)
}

// Detrend is applied before windowing.
type Detrend int

const (
	DetrendNone Detrend = iota
	DetrendMean
)

func ParseDetrend(name string) (Detrend, error) {
	switch name {
	case "", "none":
		return DetrendNone, nil
	case "mean":
		return DetrendMean, nil
	}
	return 0, fmt.Errorf("%w: unknown detrend %q", dynamo.ErrInvalidParameters, name)
}

// Spectrum is a one-sided power spectrum. Freqs[k] = k/(NFFT·dt), scaled
// by 2π when Angular is set.
type Spectrum struct {
	Freqs      []float64
	Power      []float64
	NFFT       int
	Resolution float64
	Nyquist    float64
	Angular    bool
	Scaling    Scaling
	Window     string
}

// Peak returns the frequency and power of the strongest bin, ignoring DC.
func (s *Spectrum) Peak() (float64, float64) {
	if len(s.Power) < 2 {
		return 0, 0
	}
	k := floats.MaxIdx(s.Power[1:]) + 1
	return s.Freqs[k], s.Power[k]
}

type options struct {
	nfft       int
	window     WindowFunc
	windowName string
	scaling    Scaling
	detrend    Detrend
	angular    bool
	err        error
}

type Option func(*options)

// WithNFFT truncates or zero-pads the signal to n points. Zero keeps the
// signal length.
func WithNFFT(n int) Option {
	return func(o *options) { o.nfft = n }
}

func WithWindow(name string, w WindowFunc) Option {
	return func(o *options) {
		o.window = w
		o.windowName = name
	}
}

func WithWindowName(name string) Option {
	return func(o *options) {
		w, err := LookupWindow(name)
		if err != nil {
			o.err = err
			return
		}
		o.window = w
		o.windowName = name
	}
}

func WithScaling(s Scaling) Option {
	return func(o *options) { o.scaling = s }
}

func WithDetrend(d Detrend) Option {
	return func(o *options) { o.detrend = d }
}

// WithAngular reports frequencies in rad/s instead of Hz.
func WithAngular(angular bool) Option {
	return func(o *options) { o.angular = angular }
}

// EstimateSpectrum computes the windowed periodogram of a uniformly sampled
// real signal. The input slice is never modified.
func EstimateSpectrum(signal []float64, dt float64, opts ...Option) (*Spectrum, error) {
	o := options{windowName: WindowRectangular}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.window == nil {
		o.window, _ = LookupWindow(o.windowName)
	}

	if len(signal) < 2 {
		return nil, fmt.Errorf("%w: %d samples", dynamo.ErrInsufficientSignal, len(signal))
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return nil, fmt.Errorf("%w: dt=%g", dynamo.ErrInvalidSamplingStep, dt)
	}
	nfft := o.nfft
	if nfft == 0 {
		nfft = len(signal)
	}
	if nfft < 2 {
		return nil, fmt.Errorf("%w: nfft=%d", dynamo.ErrInvalidFFTLength, nfft)
	}
	if !dynamo.State(signal).IsValid() {
		return nil, fmt.Errorf("signal: %w", dynamo.ErrInvalidState)
	}

	m := min(len(signal), nfft)
	seg := make([]float64, nfft)
	copy(seg, signal[:m])
	if o.detrend == DetrendMean {
		floats.AddConst(-floats.Sum(seg[:m])/float64(m), seg[:m])
	}
	w := taper(o.window, m)
	floats.Mul(seg[:m], w)

	var norm float64
	switch o.scaling {
	case ScaleDensity:
		norm = floats.Dot(w, w) / dt
	default:
		sum := floats.Sum(w)
		norm = sum * sum
	}
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: %s window vanishes over %d samples", dynamo.ErrInsufficientSignal, o.windowName, m)
	}

	coeffs := fft.FFTReal(seg)
	bins := nfft/2 + 1
	power := make([]float64, bins)
	for k := range power {
		mag := cmplx.Abs(coeffs[k])
		power[k] = mag * mag / norm
		if k != 0 && !(nfft%2 == 0 && k == nfft/2) {
			power[k] *= 2
		}
	}

	fs := 1 / dt
	if o.angular {
		fs *= 2 * math.Pi
	}
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(nfft)
	}

	return &Spectrum{
		Freqs:      freqs,
		Power:      power,
		NFFT:       nfft,
		Resolution: fs / float64(nfft),
		Nyquist:    fs / 2,
		Angular:    o.angular,
		Scaling:    o.scaling,
		Window:     o.windowName,
	}, nil
}
