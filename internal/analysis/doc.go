// Package analysis turns uniformly sampled signals into spectra and plots.
//
//   - [EstimateSpectrum]: windowed one-sided periodogram
//   - [EstimateWelch]: averaged periodogram over overlapping segments
//   - [PhasePortrait]: two channels of a sampled trajectory
//
// # Scaling
//
// By default bins are divided by (Σw)², the power-spectrum convention: a
// sinusoid of amplitude A centred on a bin reads A²/2 under the rectangular
// window. [ScaleDensity] divides by fs·Σw² instead.
//
//	theta, _ := s.Channel(0)
//	spec, err := analysis.EstimateSpectrum(theta, s.Dt, analysis.WithWindowName("hann"))
//	f, p := spec.Peak()
package analysis
