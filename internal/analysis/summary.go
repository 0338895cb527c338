package analysis

import (
	"log/slog"

	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/sim"
)

// Summary condenses a diagnostics series.
type Summary struct {
	Samples       int
	Duration      float64
	EnergyDrift   float64
	MomentumDrift float64
	MassError     float64
	FinalVirial   float64
	// VirialPeriod is the dominant oscillation period of 2K/|W|, zero when
	// the series is too short or flat.
	VirialPeriod float64
}

// Summarize replays the series through the conservation metrics.
func Summarize(diags []sim.Diagnostics) Summary {
	s := Summary{Samples: len(diags)}
	if len(diags) == 0 {
		return s
	}

	energy := metrics.NewEnergyDrift()
	momentum := metrics.NewMomentumDrift()
	mass := metrics.NewMassConservation()
	virial := make([]float64, len(diags))
	for i, d := range diags {
		energy.Observe(d)
		momentum.Observe(d)
		mass.Observe(d)
		virial[i] = d.VirialRatio()
	}

	last := diags[len(diags)-1]
	s.Duration = last.Time - diags[0].Time
	s.EnergyDrift = energy.Value()
	s.MomentumDrift = momentum.Value()
	s.MassError = mass.Value()
	s.FinalVirial = last.VirialRatio()

	if len(diags) > 2 && s.Duration > 0 {
		dt := s.Duration / float64(len(diags)-1)
		if period, ok := DominantPeriod(virial, dt); ok {
			s.VirialPeriod = period
		}
	}
	return s
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("samples", s.Samples),
		slog.Float64("duration", s.Duration),
		slog.Float64("energy_drift", s.EnergyDrift),
		slog.Float64("momentum_drift", s.MomentumDrift),
		slog.Float64("mass_error", s.MassError),
		slog.Float64("final_virial", s.FinalVirial),
		slog.Float64("virial_period", s.VirialPeriod),
	)
}
