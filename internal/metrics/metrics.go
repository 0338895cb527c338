package metrics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/pmgrav/internal/sim"
)

var ErrUnknownMetric = errors.New("metrics: unknown metric")

// DefaultSpeedLimit is the stability threshold used when a metric is built by
// name.
const DefaultSpeedLimit = 1e3

var registry = map[string]func() sim.Metric{
	"energy":         func() sim.Metric { return NewEnergy() },
	"energy_drift":   func() sim.Metric { return NewEnergyDrift() },
	"momentum_drift": func() sim.Metric { return NewMomentumDrift() },
	"mass_error":     func() sim.Metric { return NewMassConservation() },
	"virial_ratio":   func() sim.Metric { return NewVirial() },
	"stability":      func() sim.Metric { return NewStability(DefaultSpeedLimit) },
}

// New builds a metric by name.
func New(name string) (sim.Metric, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return ctor(), nil
}

// Names lists the registered metrics in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
