// Package config loads training parameters from a YAML file.
//
//	algorithm: QN
//	iterations: 200
//	cutoff: 1
//	l1_cost: 0.5
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"github.com/happyhackingspace/maxent"
)

// Params mirrors maxent.TrainConfig. Fields left out of the file stay nil
// and do not override defaults.
type Params struct {
	Algorithm              *string  `yaml:"algorithm"`
	Iterations             *int     `yaml:"iterations"`
	Cutoff                 *int     `yaml:"cutoff"`
	SortAndMerge           *bool    `yaml:"sort_and_merge"`
	OnePass                *bool    `yaml:"one_pass"`
	TempDir                *string  `yaml:"temp_dir"`
	Smoothing              *bool    `yaml:"smoothing"`
	SmoothingObservation   *float64 `yaml:"smoothing_observation"`
	LLThreshold            *float64 `yaml:"ll_threshold"`
	Threads                *int     `yaml:"threads"`
	L1Cost                 *float64 `yaml:"l1_cost"`
	L2Cost                 *float64 `yaml:"l2_cost"`
	Memory                 *int     `yaml:"memory"`
	MaxFunctionEvaluations *int     `yaml:"max_function_evaluations"`
}

// Load reads a parameters file. Unknown keys are an error.
func Load(fs afero.Fs, path string) (*Params, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read params")
	}
	var p Params
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := p.validate(); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return &p, nil
}

func (p *Params) validate() error {
	if p.Algorithm != nil {
		if _, err := maxent.ParseAlgorithm(*p.Algorithm); err != nil {
			return err
		}
	}
	for name, v := range map[string]*int{
		"iterations": p.Iterations,
		"cutoff":     p.Cutoff,
		"threads":    p.Threads,
		"memory":     p.Memory,
	} {
		if v != nil && *v < 0 {
			return errors.Errorf("%s must not be negative, got %d", name, *v)
		}
	}
	for name, v := range map[string]*float64{
		"l1_cost": p.L1Cost,
		"l2_cost": p.L2Cost,
	} {
		if v != nil && *v < 0 {
			return errors.Errorf("%s must not be negative, got %g", name, *v)
		}
	}
	return nil
}

// Apply copies every parameter present in the file into cfg.
func (p *Params) Apply(cfg *maxent.TrainConfig) {
	if p.Algorithm != nil {
		// validated on load
		cfg.Algorithm, _ = maxent.ParseAlgorithm(*p.Algorithm)
	}
	setInt(&cfg.Iterations, p.Iterations)
	setInt(&cfg.Cutoff, p.Cutoff)
	setBool(&cfg.SortAndMerge, p.SortAndMerge)
	setBool(&cfg.OnePass, p.OnePass)
	if p.TempDir != nil {
		cfg.TempDir = *p.TempDir
	}
	setBool(&cfg.Smoothing, p.Smoothing)
	setFloat(&cfg.SmoothingObservation, p.SmoothingObservation)
	setFloat(&cfg.LLThreshold, p.LLThreshold)
	setInt(&cfg.Threads, p.Threads)
	setFloat(&cfg.L1Cost, p.L1Cost)
	setFloat(&cfg.L2Cost, p.L2Cost)
	setInt(&cfg.Memory, p.Memory)
	setInt(&cfg.MaxFunctionEvaluations, p.MaxFunctionEvaluations)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
