package metrics

import (
	"math"

	"github.com/san-kum/pmgrav/internal/sim"
)

// Energy is the mean total energy over the observed diagnostics.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(d sim.Diagnostics) {
	e.totalEnergy += d.Total
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation of total energy from the
// first observation.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(d sim.Diagnostics) {
	if e.samples == 0 {
		e.initialEnergy = d.Total
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(d.Total-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// Virial reports the last observed 2K/|W|.
type Virial struct {
	last float64
}

func NewVirial() *Virial { return &Virial{} }

func (v *Virial) Name() string                { return "virial_ratio" }
func (v *Virial) Observe(d sim.Diagnostics) { v.last = d.VirialRatio() }
func (v *Virial) Value() float64              { return v.last }
func (v *Virial) Reset()                      { v.last = 0 }
