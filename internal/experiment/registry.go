package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/integrators"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/sim"
	"github.com/san-kum/pmgrav/internal/solvers"
)

var (
	ErrUnknownSolver     = errors.New("experiment: unknown solver")
	ErrUnknownIntegrator = errors.New("experiment: unknown integrator")
)

type SolverFactory func(b compute.Backend, cfg *config.Config, opts ...pm.Option) (sim.ForceSolver, error)

type IntegratorFactory func(b compute.Backend, cfg *config.Config) sim.Integrator

type Registry struct {
	solvers     map[string]SolverFactory
	integrators map[string]IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers:     make(map[string]SolverFactory),
		integrators: make(map[string]IntegratorFactory),
	}

	r.solvers["pm"] = func(b compute.Backend, cfg *config.Config, opts ...pm.Option) (sim.ForceSolver, error) {
		pc, err := PMConfig(cfg)
		if err != nil {
			return nil, err
		}
		return solvers.NewPM(b, pc, opts...)
	}
	r.solvers["direct"] = func(b compute.Backend, cfg *config.Config, _ ...pm.Option) (sim.ForceSolver, error) {
		return solvers.NewDirect(b, cfg.Particles.Count, cfg.NewtonG(), cfg.Gravity.Softening)
	}
	r.solvers["split"] = func(b compute.Backend, cfg *config.Config, opts ...pm.Option) (sim.ForceSolver, error) {
		pc, err := PMConfig(cfg)
		if err != nil {
			return nil, err
		}
		long, err := solvers.NewPM(b, pc, opts...)
		if err != nil {
			return nil, err
		}
		short, err := solvers.NewShortRange(b, cfg.Particles.Count, cfg.NewtonG(), cfg.Gravity.Softening, cfg.PM.Split.Sigma)
		if err != nil {
			return nil, err
		}
		return solvers.NewSplit(short, long)
	}

	r.integrators["euler"] = func(b compute.Backend, cfg *config.Config) sim.Integrator {
		return integrators.NewSemiImplicitEuler(b, integratorParams(cfg))
	}
	r.integrators["leapfrog"] = func(b compute.Backend, cfg *config.Config) sim.Integrator {
		return integrators.NewLeapfrog(b, integratorParams(cfg))
	}

	return r
}

func (r *Registry) GetSolver(name string, b compute.Backend, cfg *config.Config, opts ...pm.Option) (sim.ForceSolver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSolver, name)
	}
	return fn(b, cfg, opts...)
}

func (r *Registry) GetIntegrator(name string, b compute.Backend, cfg *config.Config) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn(b, cfg), nil
}

func (r *Registry) ListSolvers() []string {
	return sortedKeys(r.solvers)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

// DefaultMetrics are the conservation checks attached to every run.
func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	limit := metrics.DefaultSpeedLimit
	if cfg.Integrator.MaxSpeed > 0 {
		limit = cfg.Integrator.MaxSpeed
	}
	return []sim.Metric{
		metrics.NewEnergyDrift(),
		metrics.NewMomentumDrift(),
		metrics.NewMassConservation(),
		metrics.NewVirial(),
		metrics.NewStability(limit),
	}
}

// PMConfig converts the grid, world and pm sections into a pipeline config.
func PMConfig(cfg *config.Config) (pm.Config, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return pm.Config{}, err
	}
	assign, err := pm.ParseAssignment(cfg.PM.Assignment)
	if err != nil {
		return pm.Config{}, err
	}
	mode, err := pm.ParseSplitMode(cfg.PM.Split.Mode)
	if err != nil {
		return pm.Config{}, err
	}
	return pm.Config{
		Layout:     layout,
		Bounds:     cfg.Bounds(),
		Count:      cfg.Particles.Count,
		Assignment: assign,
		Poisson: pm.PoissonParams{
			G:                  cfg.Gravity.Constant,
			DeconvolutionOrder: cfg.PM.DeconvolutionOrder,
			DiscreteLaplacian:  cfg.PM.DiscreteLaplacian,
			Split: pm.Split{
				Mode:  mode,
				KCut:  cfg.PM.Split.KCut,
				Sigma: cfg.PM.Split.Sigma,
			},
			Smoothing: cfg.PM.Smoothing,
		},
	}, nil
}

func integratorParams(cfg *config.Config) integrators.Params {
	return integrators.Params{
		Damping:  cfg.Integrator.Damping,
		MaxSpeed: cfg.Integrator.MaxSpeed,
		MaxAccel: cfg.Integrator.MaxAccel,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
