package metrics

import (
	"log/slog"
	"testing"
	"time"

	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/sim"
)

var (
	_ sim.TickTimer  = (*PerfCollector)(nil)
	_ pm.PassTimer   = (*PerfCollector)(nil)
	_ slog.LogValuer = PerfStats{}
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDeposit)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseFFTForward)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if _, ok := stats.PhaseAvg[PhaseDeposit]; !ok {
		t.Error("expected deposit phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseFFTForward]; !ok {
		t.Error("expected fft_forward phase to be tracked")
	}
	if stats.MinTickDuration > stats.MaxTickDuration {
		t.Errorf("expected min ≤ max, got %v > %v", stats.MinTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhasePoisson)
		pc.EndTick()
	}

	if pc.Samples() != 5 {
		t.Errorf("expected 5 samples in window, got %d", pc.Samples())
	}
	if pc.Stats().TicksPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(2 * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow > fast, got %f vs %f", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
	if total := stats.PhasePct["slow"] + stats.PhasePct["fast"]; total > 101 {
		t.Errorf("expected phases to fit in the step, got %f%%", total)
	}
	if phases := stats.Phases(); phases[0] != "slow" {
		t.Errorf("expected slowest phase first, got %v", phases)
	}
}

func TestPerfCollector_ImplicitTick(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.StartPhase(PhaseDeposit)
	pc.EndTick()
	pc.EndTick()

	if pc.Samples() != 1 {
		t.Errorf("expected a single implicit tick, got %d", pc.Samples())
	}
}

func TestPerfCollector_Empty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgTickDuration != 0 || stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Errorf("expected zero stats with initialized maps, got %+v", stats)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	stats := PerfStats{
		AvgTickDuration: 2 * time.Millisecond,
		PhasePct: map[string]float64{
			PhaseGradientX: 1, PhaseGradientY: 2, PhaseGradientZ: 3,
			PhaseInverseX: 4, PhaseInverseY: 4, PhaseInverseZ: 4,
		},
	}
	row := stats.ToCSV(100)
	if row.WindowEnd != 100 || row.AvgStepUS != 2000 {
		t.Errorf("unexpected header fields %+v", row)
	}
	if row.GradientPct != 6 || row.FFTInversePct != 12 {
		t.Errorf("expected summed axes 6 and 12, got %f and %f", row.GradientPct, row.FFTInversePct)
	}
}
