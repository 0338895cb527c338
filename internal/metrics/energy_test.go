package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pmgrav/internal/sim"
)

func diag(kinetic, potential float64) sim.Diagnostics {
	return sim.Diagnostics{
		Kinetic:   kinetic,
		Potential: potential,
		Total:     kinetic + potential,
		TotalMass: 1,
	}
}

func TestEnergyMean(t *testing.T) {
	m := NewEnergy()
	m.Observe(diag(1, -3))
	m.Observe(diag(2, -3))

	if v := m.Value(); math.Abs(v+1.5) > 1e-12 {
		t.Errorf("expected energy %f, got %f", -1.5, v)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	for _, total := range []float64{-2, -2.1, -1.95, -2.02} {
		m.Observe(diag(0, total))
	}

	if v := m.Value(); math.Abs(v-0.05) > 1e-12 {
		t.Errorf("expected drift %f, got %f", 0.05, v)
	}

	m.Reset()
	m.Observe(diag(1, -1))
	m.Observe(diag(2, -1))
	if v := m.Value(); v != 0 {
		t.Errorf("expected zero drift from zero initial energy, got %f", v)
	}
}

func TestMomentumDrift(t *testing.T) {
	m := NewMomentumDrift()
	m.Observe(sim.Diagnostics{MomentumX: 1})
	m.Observe(sim.Diagnostics{MomentumX: 1, MomentumY: 3, MomentumZ: 4})
	m.Observe(sim.Diagnostics{MomentumX: 1, MomentumY: 0.5})

	if v := m.Value(); math.Abs(v-5) > 1e-12 {
		t.Errorf("expected drift 5, got %f", v)
	}
}

func TestVirial(t *testing.T) {
	m := NewVirial()
	m.Observe(diag(1, -2))
	if v := m.Value(); math.Abs(v-1) > 1e-12 {
		t.Errorf("expected virial ratio 1, got %f", v)
	}
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	if m.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %f", m.Value())
	}
	for _, speed := range []float64{1, 5, 20, math.NaN()} {
		m.Observe(sim.Diagnostics{MaxSpeed: speed})
	}
	if v := m.Value(); v != 0.5 {
		t.Errorf("expected stability 0.5, got %f", v)
	}
}

func TestMassConservation(t *testing.T) {
	m := NewMassConservation()
	m.Observe(sim.Diagnostics{TotalMass: 2})
	if m.Value() != 0 {
		t.Errorf("expected rows without grid mass to be skipped, got %f", m.Value())
	}
	m.Observe(sim.Diagnostics{TotalMass: 2, GridMass: 2.002})
	if v := m.Value(); math.Abs(v-0.001) > 1e-9 {
		t.Errorf("expected mass error 0.001, got %f", v)
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		m, err := New(name)
		if err != nil {
			t.Fatalf("new %q: %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("expected name %q, got %q", name, m.Name())
		}
	}
	if _, err := New("entropy"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
}
