package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendspec/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "parametric_pendulum", cfg.Model)
	require.Equal(t, 0.0, cfg.TStart)
	require.Equal(t, 40*math.Pi, cfg.TStop)
	require.Equal(t, dynamo.State{math.Pi / 10, 0}, cfg.GetInitState())
	require.NoError(t, cfg.Validate())

	dt, err := cfg.SampleStep(math.Pi)
	require.NoError(t, err)
	require.InDelta(t, math.Pi/100, dt, 1e-15)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
params:
  q: 0.35
init_state:
  theta: 0.1
t_stop: 50
tolerances:
  rtol: 1.0e-8
  interpolation: hermite
spectrum:
  window: hann
  nfft: 4096
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, DefaultModel, cfg.Model)
	require.Equal(t, map[string]float64{"q": 0.35}, cfg.Params)
	require.Equal(t, 0.1, cfg.InitState.Theta)
	require.Equal(t, 50.0, cfg.TStop)
	require.Equal(t, DefaultStepsPerPeriod, cfg.StepsPerPeriod)

	tol, err := cfg.GetTolerances()
	require.NoError(t, err)
	require.Equal(t, 1e-8, tol.RTol)
	require.Equal(t, dynamo.DefaultTolerances().ATol, tol.ATol)
	require.Equal(t, dynamo.InterpHermite, tol.Interpolation)

	opts, err := cfg.SpectrumOptions()
	require.NoError(t, err)
	require.Len(t, opts, 5)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_dt: 0.05\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	dt, err := cfg.SampleStep(0)
	require.NoError(t, err)
	require.Equal(t, 0.05, dt)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Parse([]byte("t_stop: [1, 2"))
	require.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := GetPreset("resonance")
	require.NotNil(t, cfg)

	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, cfg, back)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no model", func(c *Config) { c.Model = "" }, dynamo.ErrInvalidParameters},
		{"nan param", func(c *Config) { c.Params = map[string]float64{"q": math.NaN()} }, dynamo.ErrInvalidParameters},
		{"inf theta", func(c *Config) { c.InitState.Theta = math.Inf(1) }, dynamo.ErrInvalidState},
		{"reversed span", func(c *Config) { c.TStop = -1 }, dynamo.ErrInvalidTimeSpan},
		{"negative sample dt", func(c *Config) { c.SampleDt = -1 }, dynamo.ErrInvalidResampleStep},
		{"no sampling", func(c *Config) { c.StepsPerPeriod = 0 }, dynamo.ErrInvalidParameters},
		{"zero tolerances", func(c *Config) { c.Tolerances.RTol, c.Tolerances.ATol = 0, 0 }, dynamo.ErrInvalidTolerances},
		{"bad interpolation", func(c *Config) { c.Tolerances.Interpolation = "spline" }, dynamo.ErrInvalidTolerances},
		{"nfft one", func(c *Config) { c.Spectrum.NFFT = 1 }, dynamo.ErrInvalidFFTLength},
		{"bad window", func(c *Config) { c.Spectrum.Window = "kaiser" }, dynamo.ErrInvalidParameters},
		{"bad scaling", func(c *Config) { c.Spectrum.Scaling = "psd" }, dynamo.ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSampleStepWithoutForcing(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.SampleStep(0)
	require.ErrorIs(t, err, dynamo.ErrInvalidResampleStep)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("conservative")
	require.NotNil(t, cfg)
	require.Equal(t, 0.0, cfg.Params["q"])
	require.Equal(t, 0.0, cfg.Params["beta"])

	cfg.Params["q"] = 1
	require.Equal(t, 0.0, GetPreset("conservative").Params["q"], "presets must not share state")

	require.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	require.Equal(t, []string{"conservative", "damped", "resonance", "textbook"}, names)

	for _, name := range names {
		require.NoError(t, GetPreset(name).Validate(), name)
	}
}
