package sim

import (
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

// ForceSolver writes per-particle accelerations for the positions in pos
// into out, clearing or accumulating according to blend.
type ForceSolver interface {
	Name() string
	ComputeForces(pos, out *compute.Texture, blend compute.BlendMode) error
}

// PotentialSampler is implemented by solvers that can report the
// gravitational potential at each particle of their last evaluation.
type PotentialSampler interface {
	SamplePotential(pos *compute.Texture, out []float64) error
}

// GridMasser is implemented by grid-based solvers.
type GridMasser interface {
	GridMass() float64
}

type Integrator interface {
	Name() string
	Step(st *particles.State, solver ForceSolver, dt float64) error
}

type Metric interface {
	Name() string
	Observe(d Diagnostics)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(st *particles.State, step int, t float64)
}

// TickTimer receives step boundaries; metrics.PerfCollector implements it.
type TickTimer interface {
	StartTick()
	StartPhase(name string)
	EndTick()
}

type Config struct {
	Dt            float64
	Steps         int
	ValidateState bool
	// DiagnosticsEvery records diagnostics every n steps; 0 records only the
	// first and last step.
	DiagnosticsEvery int
}

type Result struct {
	StepsTaken  int
	Time        float64
	Diagnostics []Diagnostics
	Metrics     map[string]float64
	EnergyDrift float64
	Errors      []error
}

func (r *Result) Last() (Diagnostics, bool) {
	if len(r.Diagnostics) == 0 {
		return Diagnostics{}, false
	}
	return r.Diagnostics[len(r.Diagnostics)-1], true
}
