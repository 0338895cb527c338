package analysis

import (
	"sort"

	"github.com/san-kum/pmgrav/internal/particles"
	"gonum.org/v1/gonum/spatial/r3"
)

// CenterOfMass returns the mass-weighted mean position.
func CenterOfMass(st *particles.State) r3.Vec {
	var sum r3.Vec
	var mass float64
	for i := 0; i < st.Count; i++ {
		m := st.Mass(i)
		sum = r3.Add(sum, r3.Scale(m, st.Position(i)))
		mass += m
	}
	if mass == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/mass, sum)
}

// LagrangianRadii returns, for each fraction in (0, 1], the smallest radius
// about center enclosing that fraction of the total mass.
func LagrangianRadii(st *particles.State, center r3.Vec, fractions []float64) []float64 {
	type shell struct{ r, m float64 }
	shells := make([]shell, st.Count)
	var total float64
	for i := range shells {
		shells[i] = shell{r: r3.Norm(r3.Sub(st.Position(i), center)), m: st.Mass(i)}
		total += shells[i].m
	}
	sort.Slice(shells, func(i, j int) bool { return shells[i].r < shells[j].r })

	radii := make([]float64, len(fractions))
	for f, frac := range fractions {
		target := frac * total
		var enclosed float64
		for _, s := range shells {
			enclosed += s.m
			radii[f] = s.r
			if enclosed >= target {
				break
			}
		}
	}
	return radii
}

// HalfMassRadius is the Lagrangian radius at one half about the centre of
// mass.
func HalfMassRadius(st *particles.State) float64 {
	return LagrangianRadii(st, CenterOfMass(st), []float64{0.5})[0]
}
