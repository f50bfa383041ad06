package config

var Presets = map[string]*Config{
	"gaussian": {
		System: SystemConfig{Kind: "isotropic"},
		Target: TargetConfig{Name: "gaussian", Dim: 2},
		Seed:   DefaultSeed,
	},
	"gaussian-diagonal": {
		System: SystemConfig{Kind: "diagonal", MetricDiagonal: []float64{0.5, 2.0}},
		Target: TargetConfig{Name: "gaussian", Dim: 2},
		Seed:   DefaultSeed,
	},
	"correlated": {
		System: SystemConfig{Kind: "dense", Metric: [][]float64{{2.0, 0.5}, {0.5, 1.0}}},
		Target: TargetConfig{
			Name:       "correlated_gaussian",
			Dim:        2,
			Covariance: [][]float64{{2.0, 0.5}, {0.5, 1.0}},
		},
		Seed: DefaultSeed,
	},
	"rosenbrock": {
		System: SystemConfig{Kind: "softabs", SoftAbsCoeff: 1.0},
		Target: TargetConfig{Name: "rosenbrock", Dim: 2, A: 1.0, B: 100.0},
		Seed:   DefaultSeed,
	},
	"doublewell": {
		System: SystemConfig{Kind: "softabs", SoftAbsCoeff: 0.5},
		Target: TargetConfig{Name: "doublewell", Dim: 2, A: 1.0, B: 1.0},
		Seed:   DefaultSeed,
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
