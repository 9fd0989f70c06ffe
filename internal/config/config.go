package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendspec/internal/analysis"
	"github.com/san-kum/pendspec/internal/dynamo"
)

const (
	DefaultModel          = "parametric_pendulum"
	DefaultTStop          = 40 * math.Pi
	DefaultTheta          = math.Pi / 10
	DefaultStepsPerPeriod = 100
)

// Config describes one run: the model, where it starts, how it is integrated
// and how the resampled angle is turned into a spectrum.
type Config struct {
	Model string `yaml:"model"`
	// Params overrides individual model coefficients by name.
	Params         map[string]float64 `yaml:"params,omitempty"`
	InitState      InitStateConfig    `yaml:"init_state"`
	TStart         float64            `yaml:"t_start"`
	TStop          float64            `yaml:"t_stop"`
	SampleDt       float64            `yaml:"sample_dt"`
	StepsPerPeriod int                `yaml:"steps_per_period"`
	Workers        int                `yaml:"workers"`
	Tolerances     ToleranceConfig    `yaml:"tolerances"`
	Spectrum       SpectrumConfig     `yaml:"spectrum"`
}

type InitStateConfig struct {
	Theta float64 `yaml:"theta"`
	V     float64 `yaml:"v"`
}

type ToleranceConfig struct {
	RTol          float64 `yaml:"rtol"`
	ATol          float64 `yaml:"atol"`
	HInit         float64 `yaml:"h_init"`
	HMin          float64 `yaml:"h_min"`
	HMax          float64 `yaml:"h_max"`
	Safety        float64 `yaml:"safety"`
	FacMin        float64 `yaml:"facmin"`
	FacMax        float64 `yaml:"facmax"`
	MaxSteps      int     `yaml:"max_steps"`
	Interpolation string  `yaml:"interpolation"`
}

type SpectrumConfig struct {
	NFFT    int    `yaml:"nfft"`
	Window  string `yaml:"window"`
	Scaling string `yaml:"scaling"`
	Detrend string `yaml:"detrend"`
	Angular bool   `yaml:"angular"`
}

// DefaultConfig is q=0.2, Ω=2, ω₀=1, β=0.1 from θ=π/10 at rest over
// [0, 40π], sampled 100 times per forcing period.
func DefaultConfig() *Config {
	tol := dynamo.DefaultTolerances()
	return &Config{
		Model:          DefaultModel,
		InitState:      InitStateConfig{Theta: DefaultTheta},
		TStop:          DefaultTStop,
		StepsPerPeriod: DefaultStepsPerPeriod,
		Tolerances: ToleranceConfig{
			RTol:          tol.RTol,
			ATol:          tol.ATol,
			HMin:          tol.HMin,
			Safety:        tol.Safety,
			FacMin:        tol.FacMin,
			FacMax:        tol.FacMax,
			MaxSteps:      tol.MaxSteps,
			Interpolation: tol.Interpolation.String(),
		},
		Spectrum: SpectrumConfig{
			Window:  analysis.WindowRectangular,
			Scaling: analysis.ScaleSpectrum.String(),
			Detrend: "none",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays a YAML document onto DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Clone returns a deep copy; presets hand out clones.
func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func (c *Config) GetInitState() dynamo.State {
	return dynamo.State{c.InitState.Theta, c.InitState.V}
}

func (c *Config) GetTolerances() (dynamo.Tolerances, error) {
	interp, err := dynamo.ParseInterpolation(c.Tolerances.Interpolation)
	if err != nil {
		return dynamo.Tolerances{}, err
	}
	t := c.Tolerances
	return dynamo.Tolerances{
		RTol:          t.RTol,
		ATol:          t.ATol,
		HInit:         t.HInit,
		HMin:          t.HMin,
		HMax:          t.HMax,
		Safety:        t.Safety,
		FacMin:        t.FacMin,
		FacMax:        t.FacMax,
		MaxSteps:      t.MaxSteps,
		Interpolation: interp,
	}, nil
}

// SampleStep returns sample_dt when set, otherwise the forcing period split
// into steps_per_period samples.
func (c *Config) SampleStep(forcingPeriod float64) (float64, error) {
	if c.SampleDt > 0 {
		return c.SampleDt, nil
	}
	if forcingPeriod <= 0 || c.StepsPerPeriod <= 0 {
		return 0, fmt.Errorf("%w: sample_dt is unset and the model has no forcing period", dynamo.ErrInvalidResampleStep)
	}
	return forcingPeriod / float64(c.StepsPerPeriod), nil
}

func (c *Config) SpectrumOptions() ([]analysis.Option, error) {
	scaling, err := analysis.ParseScaling(c.Spectrum.Scaling)
	if err != nil {
		return nil, err
	}
	detrend, err := analysis.ParseDetrend(c.Spectrum.Detrend)
	if err != nil {
		return nil, err
	}
	return []analysis.Option{
		analysis.WithNFFT(c.Spectrum.NFFT),
		analysis.WithWindowName(c.Spectrum.Window),
		analysis.WithScaling(scaling),
		analysis.WithDetrend(detrend),
		analysis.WithAngular(c.Spectrum.Angular),
	}, nil
}

func (c *Config) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	if c.Model == "" {
		return fmt.Errorf("%w: model is required", dynamo.ErrInvalidParameters)
	}
	for name, v := range c.Params {
		if !finite(v) {
			return fmt.Errorf("%w: %s=%g", dynamo.ErrInvalidParameters, name, v)
		}
	}
	if !c.GetInitState().IsValid() {
		return fmt.Errorf("init_state: %w", dynamo.ErrInvalidState)
	}
	if !finite(c.TStart) || !finite(c.TStop) || c.TStop <= c.TStart {
		return fmt.Errorf("%w: [%g, %g]", dynamo.ErrInvalidTimeSpan, c.TStart, c.TStop)
	}
	if !finite(c.SampleDt) || c.SampleDt < 0 {
		return fmt.Errorf("%w: sample_dt=%g", dynamo.ErrInvalidResampleStep, c.SampleDt)
	}
	if c.SampleDt == 0 && c.StepsPerPeriod <= 0 {
		return fmt.Errorf("%w: steps_per_period must be positive", dynamo.ErrInvalidParameters)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers=%d", dynamo.ErrInvalidParameters, c.Workers)
	}
	tol, err := c.GetTolerances()
	if err != nil {
		return err
	}
	if err := tol.Validate(); err != nil {
		return err
	}
	if c.Spectrum.NFFT < 0 || c.Spectrum.NFFT == 1 {
		return fmt.Errorf("%w: nfft=%d", dynamo.ErrInvalidFFTLength, c.Spectrum.NFFT)
	}
	if _, err := analysis.LookupWindow(c.Spectrum.Window); err != nil {
		return err
	}
	_, err = c.SpectrumOptions()
	return err
}
