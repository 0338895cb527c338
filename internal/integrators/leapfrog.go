package integrators

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// Leapfrog is kick-drift-kick. The closing force evaluation of one step is
// the opening kick of the next, so a step costs one solve after the first.
type Leapfrog struct {
	backend compute.Backend
	params  Params
	primed  bool
}

func NewLeapfrog(b compute.Backend, p Params) *Leapfrog {
	return &Leapfrog{backend: b, params: p}
}

func (l *Leapfrog) Name() string { return "leapfrog" }

// Reset forgets the cached force. Call it after positions change outside
// Step.
func (l *Leapfrog) Reset() { l.primed = false }

func (l *Leapfrog) Step(st *particles.State, solver sim.ForceSolver, dt float64) error {
	if !l.primed {
		if err := solver.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace); err != nil {
			return fmt.Errorf("integrators: leapfrog force evaluation: %w", err)
		}
		l.primed = true
	}
	halfDt := 0.5 * dt

	// Both stages write only the target buffers; the swap publishes them,
	// so a failed closing solve leaves the state at the start of the step.
	pos, vel := st.Pos.Current(), st.Vel.Current()
	nextPos, nextVel := st.Pos.Target(), st.Vel.Target()

	l.backend.Dispatch(st.Count, func(_, start, end int) {
		for i := start; i < end; i++ {
			a := clampNorm(vec(st.Force.At(i)), l.params.MaxAccel)
			v := r3.Add(vec(vel.At(i)), r3.Scale(halfDt, a))
			x := r3.Add(vec(pos.At(i)), r3.Scale(dt, v))

			writeVec(nextVel.At(i), v, 0)
			writeVec(nextPos.At(i), x, pos.At(i)[3])
		}
	})

	if err := solver.ComputeForces(nextPos, st.Force, compute.BlendReplace); err != nil {
		l.primed = false
		return fmt.Errorf("integrators: leapfrog force evaluation: %w", err)
	}

	l.backend.Dispatch(st.Count, func(_, start, end int) {
		for i := start; i < end; i++ {
			a := clampNorm(vec(st.Force.At(i)), l.params.MaxAccel)
			v := r3.Add(vec(nextVel.At(i)), r3.Scale(halfDt, a))
			writeVec(nextVel.At(i), l.params.finishVelocity(v), 0)
		}
	})
	st.Pos.Swap()
	st.Vel.Swap()
	return nil
}
