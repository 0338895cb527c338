package optim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/pmgrav/internal/config"
)

var ErrUnknownParam = errors.New("optim: unknown parameter")

// Setters are the configuration knobs a sweep can vary.
var Setters = map[string]func(*config.Config, float64){
	"dt":                  func(c *config.Config, v float64) { c.Integrator.Dt = v },
	"steps":               func(c *config.Config, v float64) { c.Integrator.Steps = int(v) },
	"grid":                func(c *config.Config, v float64) { c.Grid.N = int(v) },
	"particles":           func(c *config.Config, v float64) { c.Particles.Count = int(v) },
	"softening":           func(c *config.Config, v float64) { c.Gravity.Softening = v },
	"damping":             func(c *config.Config, v float64) { c.Integrator.Damping = v },
	"deconvolution_order": func(c *config.Config, v float64) { c.PM.DeconvolutionOrder = int(v) },
	"smoothing":           func(c *config.Config, v float64) { c.PM.Smoothing = v },
	"split_sigma":         func(c *config.Config, v float64) { c.PM.Split.Sigma = v },
	"split_k_cut":         func(c *config.Config, v float64) { c.PM.Split.KCut = v },
	"radius":              func(c *config.Config, v float64) { c.Particles.Radius = v },
	"seed":                func(c *config.Config, v float64) { c.Particles.Seed = int64(v) },
}

func ParamNames() []string {
	names := make([]string, 0, len(Setters))
	for name := range Setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of base with params set.
func Apply(base *config.Config, params map[string]float64) (*config.Config, error) {
	cfg := base.Clone()
	for name, v := range params {
		set, ok := Setters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParam, name)
		}
		set(cfg, v)
	}
	return cfg, nil
}
