package optim

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/pmgrav/internal/config"
	"gopkg.in/yaml.v3"
)

// Plan is a sweep described in YAML:
//
//	name: dt_convergence
//	preset: plummer
//	metric: energy_drift
//	params:
//	  - name: dt
//	    values: [0.01, 0.005, 0.0025]
//	  - name: grid
//	    min: 16
//	    max: 64
//	    count: 3
//	seeds: 4
type Plan struct {
	Name   string       `yaml:"name"`
	Preset string       `yaml:"preset"`
	Config string       `yaml:"config"`
	Metric string       `yaml:"metric"`
	Params []ParamRange `yaml:"params"`
	// Seeds > 1 runs an ensemble at the best point.
	Seeds int `yaml:"seeds"`
}

type ParamRange struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values,flow"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Count  int       `yaml:"count"`
}

func (r ParamRange) Points() []float64 {
	if len(r.Values) > 0 {
		return r.Values
	}
	return Linspace(r.Min, r.Max, r.Count)
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("optim: parse %s: %w", path, err)
	}
	if p.Metric == "" {
		p.Metric = "energy_drift"
	}
	return &p, nil
}

// Base resolves the configuration the plan varies.
func (p *Plan) Base() (*config.Config, error) {
	switch {
	case p.Preset != "" && p.Config != "":
		return nil, errors.New("optim: plan sets both preset and config")
	case p.Preset != "":
		cfg := config.GetPreset(p.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("optim: unknown preset %q", p.Preset)
		}
		return cfg, nil
	case p.Config != "":
		return config.Load(p.Config)
	}
	cfg := config.DefaultConfig()
	cfg.Name = p.Name
	return cfg, nil
}

func (p *Plan) GridSearch() (*GridSearch, error) {
	names := make([]string, len(p.Params))
	ranges := make([][]float64, len(p.Params))
	for i, r := range p.Params {
		names[i], ranges[i] = r.Name, r.Points()
	}
	return NewGridSearch(names, ranges)
}
