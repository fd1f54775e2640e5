package config

import "sort"

// Presets are named protocols. "reference" reproduces the published
// dataset recipe.
var Presets = map[string]*Config{
	"reference": {
		Steps: 100, Dt: 0.1, Displacement: 5, Samples: 100000,
		Physics: PhysicsConfig{K: 1, Beta: 1, Gamma: 1},
	},
	"smoke": {
		Steps: 100, Dt: 0.1, Displacement: 5, Samples: 1000,
		Physics: PhysicsConfig{K: 1, Beta: 1, Gamma: 1},
	},
	"slow": {
		Steps: 1000, Dt: 0.1, Displacement: 5, Samples: 20000,
		Physics: PhysicsConfig{K: 1, Beta: 1, Gamma: 1},
	},
	"fast": {
		Steps: 100, Dt: 0.01, Displacement: 5, Samples: 100000,
		Physics: PhysicsConfig{K: 1, Beta: 1, Gamma: 1},
	},
	"hot": {
		Steps: 100, Dt: 0.1, Displacement: 5, Samples: 100000,
		Physics: PhysicsConfig{K: 1, Beta: 0.25, Gamma: 1},
	},
	"stiff": {
		Steps: 200, Dt: 0.05, Displacement: 5, Samples: 100000,
		Physics: PhysicsConfig{K: 4, Beta: 1, Gamma: 1},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Workers = 1
	c.BatchSize = DefaultConfig().BatchSize
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
