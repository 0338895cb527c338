package particles

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

type Distribution string

const (
	Uniform    Distribution = "uniform"
	ColdSphere Distribution = "cold_sphere"
	Plummer    Distribution = "plummer"
	Binary     Distribution = "binary"
)

var ErrDistribution = errors.New("particles: unknown or unsupported distribution")

type InitParams struct {
	Distribution Distribution
	Seed         int64
	TotalMass    float64
	// Radius is the sphere radius (cold_sphere), scale length (plummer) or
	// separation (binary).
	Radius float64
	// VelocityDispersion adds isotropic gaussian noise to the velocities.
	VelocityDispersion float64
	// G is the Newtonian constant used for equilibrium velocities.
	G float64
}

// Generate fills the current position and velocity buffers of st.
func Generate(st *State, bounds Bounds, p InitParams) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(p.Seed))
	center := bounds.Center()
	m := p.TotalMass / float64(st.Count)

	switch p.Distribution {
	case Uniform:
		s := bounds.Size()
		for i := 0; i < st.Count; i++ {
			pos := r3.Vec{
				X: bounds.Min.X + rng.Float64()*s.X,
				Y: bounds.Min.Y + rng.Float64()*s.Y,
				Z: bounds.Min.Z + rng.Float64()*s.Z,
			}
			st.SetParticle(i, pos, m)
			st.SetVelocity(i, r3.Vec{})
		}
	case ColdSphere:
		for i := 0; i < st.Count; i++ {
			r := p.Radius * math.Cbrt(rng.Float64())
			st.SetParticle(i, r3.Add(center, r3.Scale(r, randomDirection(rng))), m)
			st.SetVelocity(i, r3.Vec{})
		}
	case Plummer:
		generatePlummer(st, rng, center, p, m)
	case Binary:
		if st.Count != 2 {
			return fmt.Errorf("%w: binary needs exactly 2 particles, got %d", ErrDistribution, st.Count)
		}
		half := 0.5 * p.Radius
		// Circular orbit of two equal masses about their barycenter.
		v := math.Sqrt(p.G * m / (2 * p.Radius))
		st.SetParticle(0, r3.Add(center, r3.Vec{X: -half}), m)
		st.SetParticle(1, r3.Add(center, r3.Vec{X: half}), m)
		st.SetVelocity(0, r3.Vec{Y: -v})
		st.SetVelocity(1, r3.Vec{Y: v})
	default:
		return fmt.Errorf("%w: %q", ErrDistribution, p.Distribution)
	}

	if p.VelocityDispersion > 0 {
		for i := 0; i < st.Count; i++ {
			noise := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
			st.SetVelocity(i, r3.Add(st.Velocity(i), r3.Scale(p.VelocityDispersion, noise)))
		}
		removeBulkMotion(st)
	}
	return nil
}

// generatePlummer samples positions from the Plummer density and speeds from
// its isotropic distribution function by von Neumann rejection.
func generatePlummer(st *State, rng *rand.Rand, center r3.Vec, p InitParams, m float64) {
	a := p.Radius
	for i := 0; i < st.Count; i++ {
		var r float64
		for {
			x := rng.Float64()
			if x == 0 {
				continue
			}
			r = a / math.Sqrt(math.Pow(x, -2.0/3.0)-1)
			if r < 10*a {
				break
			}
		}

		var q float64
		for {
			q = rng.Float64()
			g := 0.1 * rng.Float64()
			if g < q*q*math.Pow(1-q*q, 3.5) {
				break
			}
		}
		vEsc := math.Sqrt(2*p.G*p.TotalMass) * math.Pow(r*r+a*a, -0.25)

		st.SetParticle(i, r3.Add(center, r3.Scale(r, randomDirection(rng))), m)
		st.SetVelocity(i, r3.Scale(q*vEsc, randomDirection(rng)))
	}
	removeBulkMotion(st)
}

func randomDirection(rng *rand.Rand) r3.Vec {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	s := math.Sqrt(1 - z*z)
	return r3.Vec{X: s * math.Cos(phi), Y: s * math.Sin(phi), Z: z}
}

func removeBulkMotion(st *State) {
	var p r3.Vec
	total := 0.0
	for i := 0; i < st.Count; i++ {
		m := st.Mass(i)
		p = r3.Add(p, r3.Scale(m, st.Velocity(i)))
		total += m
	}
	if total == 0 {
		return
	}
	mean := r3.Scale(1/total, p)
	for i := 0; i < st.Count; i++ {
		st.SetVelocity(i, r3.Sub(st.Velocity(i), mean))
	}
}
