package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

type Simulator struct {
	solver     ForceSolver
	integrator Integrator
	metrics    []Metric
	observers  []Observer
	logger     *slog.Logger
	timer      TickTimer

	// scratch receives forces when diagnostics refresh the potential.
	scratch *compute.Texture
	phi     []float64
}

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTimer(t TickTimer) Option {
	return func(s *Simulator) { s.timer = t }
}

func New(solver ForceSolver, integrator Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		solver:     solver,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Solver() ForceSolver    { return s.solver }
func (s *Simulator) Integrator() Integrator { return s.integrator }

// Run advances st by cfg.Steps steps. The context is checked between steps;
// a step in progress always completes.
func (s *Simulator) Run(ctx context.Context, st *particles.State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Diagnostics: make([]Diagnostics, 0),
		Metrics:     make(map[string]float64),
		Errors:      make([]error, 0),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	t := 0.0
	if err := s.record(result, st, 0, t); err != nil {
		return result, err
	}

	for i := 1; i <= cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		if s.timer != nil {
			s.timer.StartTick()
			s.timer.StartPhase("integrate")
		}
		if err := s.integrator.Step(st, s.solver, cfg.Dt); err != nil {
			s.endTick()
			return result, &SimulationError{Step: i, Time: t, Wrapped: err}
		}
		t += cfg.Dt
		result.StepsTaken++
		result.Time = t

		if cfg.ValidateState && !st.IsFinite() {
			err := &SimulationError{Step: i, Time: t, Wrapped: ErrInvalidState}
			result.Errors = append(result.Errors, err)
			s.logger.Warn("state diverged", "step", i, "time", t)
			s.endTick()
			break
		}

		for _, obs := range s.observers {
			obs.OnStep(st, i, t)
		}

		if i == cfg.Steps || (cfg.DiagnosticsEvery > 0 && i%cfg.DiagnosticsEvery == 0) {
			if s.timer != nil {
				s.timer.StartPhase("diagnostics")
			}
			if err := s.record(result, st, i, t); err != nil {
				s.endTick()
				return result, err
			}
		}
		s.endTick()
	}

	if n := len(result.Diagnostics); n > 1 {
		e0 := result.Diagnostics[0].Total
		if e0 != 0 {
			result.EnergyDrift = math.Abs(result.Diagnostics[n-1].Total-e0) / math.Abs(e0)
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

func (s *Simulator) record(result *Result, st *particles.State, step int, t float64) error {
	d, err := s.Diagnose(st)
	if err != nil {
		return &SimulationError{Step: step, Time: t, Wrapped: err}
	}
	d.Step = step
	d.Time = t

	result.Diagnostics = append(result.Diagnostics, d)
	for _, m := range s.metrics {
		m.Observe(d)
	}
	s.logger.Debug("diagnostics",
		"step", step,
		"kinetic", d.Kinetic,
		"potential", d.Potential,
		"grid_mass", d.GridMass,
	)
	return nil
}

// Diagnose measures st. Solvers that sample potentials are re-evaluated at
// the current positions first so kinetic and potential energy agree in time.
func (s *Simulator) Diagnose(st *particles.State) (Diagnostics, error) {
	var phi []float64
	if sampler, ok := s.solver.(PotentialSampler); ok {
		if s.scratch == nil || !s.scratch.SameShape(st.Force) || len(s.phi) < st.Count {
			s.scratch = st.Force.Clone()
			s.scratch.Name = "diagnostic_forces"
			s.phi = make([]float64, st.Count)
		}
		if err := s.solver.ComputeForces(st.Pos.Current(), s.scratch, compute.BlendReplace); err != nil {
			return Diagnostics{}, err
		}
		if err := sampler.SamplePotential(st.Pos.Current(), s.phi); err != nil {
			return Diagnostics{}, err
		}
		phi = s.phi
	}

	d := Measure(st, phi)
	if gm, ok := s.solver.(GridMasser); ok {
		d.GridMass = gm.GridMass()
	}
	return d, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if cfg.DiagnosticsEvery < 0 {
		return fmt.Errorf("%w: diagnostics interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (s *Simulator) endTick() {
	if s.timer != nil {
		s.timer.EndTick()
	}
}
