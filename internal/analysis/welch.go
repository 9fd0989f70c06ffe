package analysis

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/spectral"

	"github.com/san-kum/pendspec/internal/dynamo"
)

// EstimateWelch averages periodograms of overlapping segments. The result
// is a density estimate in Hz; segment must be at least two samples and
// overlap must be smaller than segment.
func EstimateWelch(signal []float64, dt float64, segment, overlap int, windowName string) (*Spectrum, error) {
	if len(signal) < 2 {
		return nil, fmt.Errorf("%w: %d samples", dynamo.ErrInsufficientSignal, len(signal))
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return nil, fmt.Errorf("%w: dt=%g", dynamo.ErrInvalidSamplingStep, dt)
	}
	if segment < 2 || overlap < 0 || overlap >= segment {
		return nil, fmt.Errorf("%w: segment=%d overlap=%d", dynamo.ErrInvalidFFTLength, segment, overlap)
	}
	if !dynamo.State(signal).IsValid() {
		return nil, fmt.Errorf("signal: %w", dynamo.ErrInvalidState)
	}
	w, err := LookupWindow(windowName)
	if err != nil {
		return nil, err
	}
	if windowName == "" {
		windowName = WindowRectangular
	}

	fs := 1 / dt
	x := make([]float64, len(signal))
	copy(x, signal)
	power, freqs := spectral.Pwelch(x, fs, &spectral.PwelchOptions{
		NFFT:     segment,
		Noverlap: overlap,
		Window:   w,
	})

	return &Spectrum{
		Freqs:      freqs,
		Power:      power,
		NFFT:       segment,
		Resolution: fs / float64(segment),
		Nyquist:    fs / 2,
		Scaling:    ScaleDensity,
		Window:     windowName,
	}, nil
}
