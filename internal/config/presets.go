package config

import "sort"

// Presets are named starting points for the parametric pendulum. Params
// entries override the model defaults.
var Presets = map[string]*Config{
	"textbook": DefaultConfig(),
	"conservative": withParams(DefaultConfig(), map[string]float64{
		"q": 0, "beta": 0,
	}),
	"resonance": withParams(DefaultConfig(), map[string]float64{
		"q": 0.5, "OMEGA": 2, "omega0": 1, "beta": 0.05,
	}),
	"damped": withParams(DefaultConfig(), map[string]float64{
		"q": 0.05, "beta": 0.5,
	}),
}

func withParams(c *Config, params map[string]float64) *Config {
	c.Params = params
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
