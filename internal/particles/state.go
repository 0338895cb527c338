// Package particles holds particle buffers, world bounds and initial conditions.
//
// Particles live in RGBA32F textures addressed by index: positions carry
// {x, y, z, mass}, velocities {vx, vy, vz, 0} and forces {fx, fy, fz, 0}.
// Positions and velocities are double-buffered so an integration pass never
// reads the texture it writes.
package particles

import (
	"math"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"gonum.org/v1/gonum/spatial/r3"
)

type State struct {
	Layout atlas.ParticleLayout
	Pos    *compute.PingPong
	Vel    *compute.PingPong
	Force  *compute.Texture
	Count  int
}

func NewState(b compute.Backend, count int) (*State, error) {
	layout, err := atlas.NewParticleLayout(count)
	if err != nil {
		return nil, err
	}
	pos, err := compute.NewPingPong(b, "positions", layout.Width, layout.Height, compute.RGBA32F)
	if err != nil {
		return nil, err
	}
	vel, err := compute.NewPingPong(b, "velocities", layout.Width, layout.Height, compute.RGBA32F)
	if err != nil {
		return nil, err
	}
	force, err := b.NewTexture("forces", layout.Width, layout.Height, compute.RGBA32F)
	if err != nil {
		return nil, err
	}
	return &State{
		Layout: layout,
		Pos:    pos,
		Vel:    vel,
		Force:  force,
		Count:  count,
	}, nil
}

func (s *State) SetParticle(i int, p r3.Vec, mass float64) {
	rec := s.Pos.Current().At(i)
	rec[0], rec[1], rec[2], rec[3] = float32(p.X), float32(p.Y), float32(p.Z), float32(mass)
}

func (s *State) SetVelocity(i int, v r3.Vec) {
	rec := s.Vel.Current().At(i)
	rec[0], rec[1], rec[2], rec[3] = float32(v.X), float32(v.Y), float32(v.Z), 0
}

func (s *State) Position(i int) r3.Vec {
	return vec(s.Pos.Current().At(i))
}

func (s *State) Mass(i int) float64 {
	return float64(s.Pos.Current().At(i)[3])
}

func (s *State) Velocity(i int) r3.Vec {
	return vec(s.Vel.Current().At(i))
}

func (s *State) ForceOn(i int) r3.Vec {
	return vec(s.Force.At(i))
}

func (s *State) TotalMass() float64 {
	sum := 0.0
	for i := 0; i < s.Count; i++ {
		sum += s.Mass(i)
	}
	return sum
}

// PositionsAndMasses flattens current positions to xyz triples for direct
// summation.
func (s *State) PositionsAndMasses() ([]float64, []float64) {
	pos := make([]float64, s.Count*3)
	masses := make([]float64, s.Count)
	cur := s.Pos.Current()
	for i := 0; i < s.Count; i++ {
		rec := cur.At(i)
		pos[i*3] = float64(rec[0])
		pos[i*3+1] = float64(rec[1])
		pos[i*3+2] = float64(rec[2])
		masses[i] = float64(rec[3])
	}
	return pos, masses
}

// IsFinite reports whether every live position and velocity is finite.
func (s *State) IsFinite() bool {
	for _, tex := range []*compute.Texture{s.Pos.Current(), s.Vel.Current()} {
		for _, v := range tex.Data[:s.Count*4] {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

func vec(rec []float32) r3.Vec {
	return r3.Vec{X: float64(rec[0]), Y: float64(rec[1]), Z: float64(rec[2])}
}
