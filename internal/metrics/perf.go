package metrics

import (
	"log/slog"
	"sort"
	"time"
)

// Phase names reported by the simulator and the particle-mesh pipeline.
const (
	PhaseIntegrate   = "integrate"
	PhaseDeposit     = "deposit"
	PhaseFFTForward  = "fft_forward"
	PhasePoisson     = "poisson"
	PhaseGradientX   = "gradient_x"
	PhaseGradientY   = "gradient_y"
	PhaseGradientZ   = "gradient_z"
	PhaseInverseX    = "fft_inverse_x"
	PhaseInverseY    = "fft_inverse_y"
	PhaseInverseZ    = "fft_inverse_z"
	PhaseForceSample = "force_sample"
	PhasePotential   = "fft_inverse_potential"
	PhaseDiagnostics = "diagnostics"
)

// PerfSample holds timing data for a single step.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks step and kernel timings over a rolling window. It
// satisfies both sim.TickTimer and pm.PassTimer.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
	inTick        bool
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
	p.inTick = true
}

// StartPhase closes the running phase and opens the named one. Calls made
// outside a tick (a standalone pipeline invocation) open an implicit tick.
func (p *PerfCollector) StartPhase(phase string) {
	if !p.inTick {
		p.StartTick()
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current step and records the sample.
func (p *PerfCollector) EndTick() {
	if !p.inTick {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.inTick = false
}

// Samples returns how many steps the window currently holds.
func (p *PerfCollector) Samples() int { return p.sampleCount }

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Average duration per phase and its share of the average step.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick, minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

// Phases returns the recorded phase names, slowest first.
func (s PerfStats) Phases() []string {
	names := make([]string, 0, len(s.PhaseAvg))
	for name := range s.PhaseAvg {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.PhaseAvg[names[i]] != s.PhaseAvg[names[j]] {
			return s.PhaseAvg[names[i]] > s.PhaseAvg[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.TicksPerSecond),
	}
	for _, phase := range s.Phases() {
		attrs = append(attrs, slog.Float64(phase+"_pct", s.PhasePct[phase]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat row for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd      int     `csv:"window_end"`
	AvgStepUS      int64   `csv:"avg_step_us"`
	MinStepUS      int64   `csv:"min_step_us"`
	MaxStepUS      int64   `csv:"max_step_us"`
	StepsPerSec    float64 `csv:"steps_per_sec"`
	IntegratePct   float64 `csv:"integrate_pct"`
	DepositPct     float64 `csv:"deposit_pct"`
	FFTForwardPct  float64 `csv:"fft_forward_pct"`
	PoissonPct     float64 `csv:"poisson_pct"`
	GradientPct    float64 `csv:"gradient_pct"`
	FFTInversePct  float64 `csv:"fft_inverse_pct"`
	ForceSamplePct float64 `csv:"force_sample_pct"`
	DiagnosticsPct float64 `csv:"diagnostics_pct"`
}

// ToCSV flattens the stats; per-axis phases are summed.
func (s PerfStats) ToCSV(windowEnd int) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgStepUS:      s.AvgTickDuration.Microseconds(),
		MinStepUS:      s.MinTickDuration.Microseconds(),
		MaxStepUS:      s.MaxTickDuration.Microseconds(),
		StepsPerSec:    s.TicksPerSecond,
		IntegratePct:   pct[PhaseIntegrate],
		DepositPct:     pct[PhaseDeposit],
		FFTForwardPct:  pct[PhaseFFTForward],
		PoissonPct:     pct[PhasePoisson],
		GradientPct:    pct[PhaseGradientX] + pct[PhaseGradientY] + pct[PhaseGradientZ],
		FFTInversePct:  pct[PhaseInverseX] + pct[PhaseInverseY] + pct[PhaseInverseZ] + pct[PhasePotential],
		ForceSamplePct: pct[PhaseForceSample],
		DiagnosticsPct: pct[PhaseDiagnostics],
	}
}
