package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/sim"
)

// Experiment is a configured run: backend, particle state, solver,
// integrator and simulator.
type Experiment struct {
	cfg       *config.Config
	backend   compute.Backend
	state     *particles.State
	simulator *sim.Simulator
	perf      *metrics.PerfCollector
	logger    *slog.Logger
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithBackend(b compute.Backend) Option {
	return func(e *Experiment) { e.backend = b }
}

// WithPerf times every step and every pipeline pass into p.
func WithPerf(p *metrics.PerfCollector) Option {
	return func(e *Experiment) { e.perf = p }
}

// New validates cfg, generates the initial conditions and wires the solver
// and integrator named by it.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.backend == nil {
		e.backend = compute.NewCPUBackend(compute.WithWorkers(cfg.Workers))
	}

	st, err := particles.NewState(e.backend, cfg.Particles.Count)
	if err != nil {
		return nil, err
	}
	err = particles.Generate(st, cfg.Bounds(), particles.InitParams{
		Distribution:       particles.Distribution(cfg.Particles.Distribution),
		Seed:               cfg.Particles.Seed,
		TotalMass:          cfg.Particles.Mass,
		Radius:             cfg.Particles.Radius,
		VelocityDispersion: cfg.Particles.VelocityDispersion,
		G:                  cfg.NewtonG(),
	})
	if err != nil {
		return nil, fmt.Errorf("experiment: initial conditions: %w", err)
	}
	e.state = st

	pmOpts := []pm.Option{pm.WithLogger(e.logger)}
	simOpts := []sim.Option{sim.WithLogger(e.logger)}
	if e.perf != nil {
		pmOpts = append(pmOpts, pm.WithPassTimer(e.perf))
		simOpts = append(simOpts, sim.WithTimer(e.perf))
	}

	reg := NewRegistry()
	solver, err := reg.GetSolver(cfg.Solver, e.backend, cfg, pmOpts...)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator.Name, e.backend, cfg)
	if err != nil {
		return nil, err
	}

	e.simulator = sim.New(solver, integ, simOpts...)
	for _, m := range reg.DefaultMetrics(cfg) {
		e.simulator.AddMetric(m)
	}

	e.logger.Info("experiment ready",
		"name", cfg.Name,
		"solver", solver.Name(),
		"integrator", integ.Name(),
		"particles", cfg.Particles.Count,
		"grid", cfg.Grid.N,
		"backend", e.backend.Name(),
	)
	return e, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.state, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:               e.cfg.Integrator.Dt,
		Steps:            e.cfg.Integrator.Steps,
		ValidateState:    true,
		DiagnosticsEvery: e.cfg.Output.DiagnosticsEvery,
	}
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Backend() compute.Backend     { return e.backend }
func (e *Experiment) State() *particles.State      { return e.state }
func (e *Experiment) Perf() *metrics.PerfCollector { return e.perf }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }
