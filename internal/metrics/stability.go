package metrics

import (
	"math"

	"github.com/san-kum/pmgrav/internal/sim"
)

// Stability is the fraction of observations whose fastest particle stayed
// under threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(d sim.Diagnostics) {
	s.samples++
	if math.IsNaN(d.MaxSpeed) || d.MaxSpeed > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// MassConservation is the largest relative gap between deposited grid mass
// and particle mass. Rows without a mass grid are skipped.
type MassConservation struct {
	maxError float64
}

func NewMassConservation() *MassConservation {
	return &MassConservation{}
}

func (m *MassConservation) Name() string { return "mass_error" }

func (m *MassConservation) Observe(d sim.Diagnostics) {
	if d.GridMass == 0 || d.TotalMass == 0 {
		return
	}
	m.maxError = math.Max(m.maxError, math.Abs(d.GridMass-d.TotalMass)/d.TotalMass)
}

func (m *MassConservation) Value() float64 { return m.maxError }

func (m *MassConservation) Reset() { m.maxError = 0 }
