package integrators

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params bound each update. Zero values disable the corresponding limit.
type Params struct {
	// Damping is the fraction of velocity removed every step.
	Damping  float64
	MaxSpeed float64
	MaxAccel float64
}

// SemiImplicitEuler updates velocity from the current force, then position
// from the new velocity.
type SemiImplicitEuler struct {
	backend compute.Backend
	params  Params
}

func NewSemiImplicitEuler(b compute.Backend, p Params) *SemiImplicitEuler {
	return &SemiImplicitEuler{backend: b, params: p}
}

func (e *SemiImplicitEuler) Name() string { return "euler" }

func (e *SemiImplicitEuler) Step(st *particles.State, solver sim.ForceSolver, dt float64) error {
	if err := solver.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace); err != nil {
		return fmt.Errorf("integrators: euler force evaluation: %w", err)
	}

	pos, vel := st.Pos.Current(), st.Vel.Current()
	nextPos, nextVel := st.Pos.Target(), st.Vel.Target()

	e.backend.Dispatch(st.Count, func(_, start, end int) {
		for i := start; i < end; i++ {
			a := clampNorm(vec(st.Force.At(i)), e.params.MaxAccel)
			v := r3.Add(vec(vel.At(i)), r3.Scale(dt, a))
			v = e.params.finishVelocity(v)
			x := r3.Add(vec(pos.At(i)), r3.Scale(dt, v))

			writeVec(nextVel.At(i), v, 0)
			writeVec(nextPos.At(i), x, pos.At(i)[3])
		}
	})

	st.Pos.Swap()
	st.Vel.Swap()
	return nil
}

func (p Params) finishVelocity(v r3.Vec) r3.Vec {
	if p.Damping != 0 {
		v = r3.Scale(1-p.Damping, v)
	}
	return clampNorm(v, p.MaxSpeed)
}

func vec(rec []float32) r3.Vec {
	return r3.Vec{X: float64(rec[0]), Y: float64(rec[1]), Z: float64(rec[2])}
}

func writeVec(rec []float32, v r3.Vec, w float32) {
	rec[0], rec[1], rec[2], rec[3] = float32(v.X), float32(v.Y), float32(v.Z), w
}

// clampNorm scales v down to length limit; limit ≤ 0 means unbounded.
func clampNorm(v r3.Vec, limit float64) r3.Vec {
	if limit <= 0 {
		return v
	}
	n := r3.Norm(v)
	if n <= limit {
		return v
	}
	return r3.Scale(limit/n, v)
}
