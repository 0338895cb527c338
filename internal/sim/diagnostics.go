package sim

import (
	"math"

	"github.com/san-kum/pmgrav/internal/particles"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Diagnostics is one row of the per-run diagnostics table.
type Diagnostics struct {
	Step      int     `csv:"step" json:"step"`
	Time      float64 `csv:"time" json:"time"`
	Kinetic   float64 `csv:"kinetic" json:"kinetic"`
	Potential float64 `csv:"potential" json:"potential"`
	Total     float64 `csv:"total" json:"total"`
	MomentumX float64 `csv:"momentum_x" json:"momentum_x"`
	MomentumY float64 `csv:"momentum_y" json:"momentum_y"`
	MomentumZ float64 `csv:"momentum_z" json:"momentum_z"`
	TotalMass float64 `csv:"total_mass" json:"total_mass"`
	// GridMass is zero for solvers without a mass grid.
	GridMass float64 `csv:"grid_mass" json:"grid_mass"`
	MaxSpeed float64 `csv:"max_speed" json:"max_speed"`
}

func (d Diagnostics) Momentum() r3.Vec {
	return r3.Vec{X: d.MomentumX, Y: d.MomentumY, Z: d.MomentumZ}
}

// VirialRatio is 2K/|W|; 1 for a system in virial equilibrium.
func (d Diagnostics) VirialRatio() float64 {
	if d.Potential == 0 {
		return 0
	}
	return 2 * d.Kinetic / math.Abs(d.Potential)
}

// Measure computes kinetic energy, momentum and mass of st. phi holds the
// potential at every particle and may be nil.
func Measure(st *particles.State, phi []float64) Diagnostics {
	n := st.Count
	masses := make([]float64, n)
	speed2 := make([]float64, n)
	var p r3.Vec

	for i := 0; i < n; i++ {
		m := st.Mass(i)
		v := st.Velocity(i)
		masses[i] = m
		speed2[i] = r3.Norm2(v)
		p = r3.Add(p, r3.Scale(m, v))
	}

	d := Diagnostics{
		Kinetic:   0.5 * floats.Dot(masses, speed2),
		MomentumX: p.X,
		MomentumY: p.Y,
		MomentumZ: p.Z,
		TotalMass: floats.Sum(masses),
	}
	if n > 0 {
		d.MaxSpeed = math.Sqrt(floats.Max(speed2))
	}
	if len(phi) >= n {
		d.Potential = 0.5 * floats.Dot(masses, phi[:n])
	}
	d.Total = d.Kinetic + d.Potential
	return d
}
