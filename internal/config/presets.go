package config

import (
	"slices"
	"sort"
)

var Presets = map[string]map[string]*Config{
	ModelHHD: {
		"spring": {
			Model: ModelHHD, InputDim: 2, HiddenDim: 32, Seed: 1, Reference: "spring",
			Rollout: RolloutConfig{Integrator: "rk4", Dt: 0.01, Duration: 20.0, InitState: []float64{1, 0}},
		},
		"pendulum": {
			Model: ModelHHD, InputDim: 2, HiddenDim: 64, Seed: 1, Reference: "pendulum",
			Rollout: RolloutConfig{Integrator: "rk4", Dt: 0.01, Duration: 20.0, InitState: []float64{0.5, 0}},
		},
		"duffing": {
			Model: ModelHHD, InputDim: 2, HiddenDim: 64, Seed: 1, Reference: "duffing",
			Rollout: RolloutConfig{Integrator: "rk45", Dt: 0.01, Duration: 30.0, InitState: []float64{1, 0}},
		},
		"forced": {
			Model: ModelHHD, InputDim: 2, AuxDim: 1, HiddenDim: 32, Seed: 1,
			Rollout: RolloutConfig{Integrator: "rk4", Dt: 0.01, Duration: 10.0, InitState: []float64{1, 0}, Aux: []float64{0}},
		},
	},
	ModelHNN: {
		"spring": {
			Model: ModelHNN, InputDim: 2, HiddenDim: 32, Seed: 1, Reference: "spring",
			Rollout: RolloutConfig{Integrator: "leapfrog", Dt: 0.01, Duration: 20.0, InitState: []float64{1, 0}},
		},
		"pendulum": {
			Model: ModelHNN, InputDim: 2, HiddenDim: 64, Seed: 1, Reference: "pendulum",
			Rollout: RolloutConfig{Integrator: "leapfrog", Dt: 0.01, Duration: 20.0, InitState: []float64{2.5, 0}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.Rollout.InitState = slices.Clone(cfg.Rollout.InitState)
	c.Rollout.Aux = slices.Clone(cfg.Rollout.Aux)
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
