// Package config holds the YAML-backed description of a system/target
// pair. Config is pure data; cmd assembles systems and targets from
// it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDim          = 2
	DefaultSoftAbsCoeff = 1.0
	DefaultSeed         = 1
)

// Config describes a system variant over a named target.
type Config struct {
	System SystemConfig `yaml:"system"`
	Target TargetConfig `yaml:"target"`
	Seed   int64        `yaml:"seed"`
}

// SystemConfig selects the Hamiltonian system variant and its fixed
// parameters.
type SystemConfig struct {
	// Kind is one of: isotropic, diagonal, dense, softabs.
	Kind string `yaml:"kind"`
	// MetricDiagonal is the diagonal of the metric for kind diagonal.
	MetricDiagonal []float64 `yaml:"metric_diagonal"`
	// Metric is the full metric matrix for kind dense (also accepted
	// for kind diagonal, keeping only its diagonal).
	Metric [][]float64 `yaml:"metric"`
	// SoftAbsCoeff is the regularization coefficient for kind softabs.
	SoftAbsCoeff float64 `yaml:"softabs_coeff"`
}

// TargetConfig selects the example target distribution.
type TargetConfig struct {
	// Name is one of: gaussian, correlated_gaussian, rosenbrock,
	// doublewell.
	Name string `yaml:"name"`
	Dim  int    `yaml:"dim"`
	// Covariance is the covariance matrix for correlated_gaussian.
	Covariance [][]float64 `yaml:"covariance"`
	// A and B parameterize rosenbrock and doublewell.
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			Kind:         "isotropic",
			SoftAbsCoeff: DefaultSoftAbsCoeff,
		},
		Target: TargetConfig{
			Name: "gaussian",
			Dim:  DefaultDim,
		},
		Seed: DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.System.Kind {
	case "isotropic", "softabs":
	case "diagonal":
		if len(c.System.MetricDiagonal) == 0 && len(c.System.Metric) == 0 {
			return fmt.Errorf("config: diagonal system needs metric_diagonal or metric")
		}
	case "dense":
		if len(c.System.Metric) == 0 {
			return fmt.Errorf("config: dense system needs metric")
		}
	default:
		return fmt.Errorf("config: unknown system kind %q", c.System.Kind)
	}
	switch c.Target.Name {
	case "gaussian", "rosenbrock", "doublewell":
	case "correlated_gaussian":
		if len(c.Target.Covariance) == 0 {
			return fmt.Errorf("config: correlated_gaussian needs covariance")
		}
	default:
		return fmt.Errorf("config: unknown target %q", c.Target.Name)
	}
	if c.System.SoftAbsCoeff < 0 {
		return fmt.Errorf("config: softabs_coeff must be positive")
	}
	return nil
}
