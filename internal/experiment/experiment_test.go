package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/pm"
)

func smallConfig(solver string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Solver = solver
	cfg.Grid.N = 8
	cfg.Particles.Count = 64
	cfg.Integrator.Steps = 4
	cfg.Integrator.Dt = 0.001
	cfg.Output.DiagnosticsEvery = 2
	if solver == "split" {
		cfg.PM.Split = config.SplitConfig{Mode: "gaussian", Sigma: 0.3}
	}
	return cfg
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if got := r.ListSolvers(); len(got) != 3 || got[0] != "direct" || got[1] != "pm" || got[2] != "split" {
		t.Errorf("unexpected solvers %v", got)
	}
	if got := r.ListIntegrators(); len(got) != 2 || got[0] != "euler" || got[1] != "leapfrog" {
		t.Errorf("unexpected integrators %v", got)
	}

	b := compute.NewCPUBackend()
	if _, err := r.GetSolver("tree", b, smallConfig("pm")); !errors.Is(err, ErrUnknownSolver) {
		t.Errorf("expected ErrUnknownSolver, got %v", err)
	}
	if _, err := r.GetIntegrator("rk4", b, smallConfig("pm")); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
	if n := len(r.DefaultMetrics(smallConfig("pm"))); n != 5 {
		t.Errorf("expected 5 default metrics, got %d", n)
	}
}

func TestPMConfig(t *testing.T) {
	cfg := smallConfig("split")
	cfg.Grid.SlicesPerRow = 4
	pc, err := PMConfig(cfg)
	if err != nil {
		t.Fatalf("pm config: %v", err)
	}
	if pc.Layout.N != 8 || pc.Layout.SlicesPerRow != 4 || pc.Count != 64 {
		t.Errorf("unexpected layout or count %+v", pc)
	}
	if pc.Poisson.G != cfg.Gravity.Constant || pc.Poisson.Split.Sigma != 0.3 {
		t.Errorf("unexpected poisson params %+v", pc.Poisson)
	}
	if err := pc.Validate(); err != nil {
		t.Errorf("expected valid pipeline config, got %v", err)
	}
}

func TestDefaultPMConfigSmooths(t *testing.T) {
	pc, err := PMConfig(config.DefaultConfig())
	if err != nil {
		t.Fatalf("pm config: %v", err)
	}
	if pc.Assignment != pm.CIC || pc.Poisson.DeconvolutionOrder != 2 {
		t.Errorf("unexpected defaults %+v", pc)
	}
	if pc.Poisson.Smoothing != config.DefaultSmoothing || pc.Poisson.Split.Mode != pm.SplitNone {
		t.Errorf("expected %v voxel smoothing without a split, got %+v", config.DefaultSmoothing, pc.Poisson)
	}
}

func TestExperimentRun(t *testing.T) {
	for _, solver := range []string{"pm", "direct", "split"} {
		t.Run(solver, func(t *testing.T) {
			perf := metrics.NewPerfCollector(8)
			e, err := New(smallConfig(solver), WithPerf(perf))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if e.GetSimulator().Solver().Name() == "" {
				t.Error("expected a named solver")
			}

			res, err := e.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if res.StepsTaken != 4 || len(res.Errors) != 0 {
				t.Errorf("expected 4 clean steps, got %d (%v)", res.StepsTaken, res.Errors)
			}
			if len(res.Diagnostics) != 3 {
				t.Errorf("expected diagnostics at 0, 2, 4, got %d rows", len(res.Diagnostics))
			}
			if _, ok := res.Metrics["energy_drift"]; !ok {
				t.Error("expected energy drift metric")
			}
			if perf.Samples() != 4 {
				t.Errorf("expected 4 timed steps, got %d", perf.Samples())
			}
			if solver != "direct" {
				if _, ok := perf.Stats().PhaseAvg[metrics.PhaseDeposit]; !ok {
					t.Error("expected pipeline passes to be timed")
				}
			}
		})
	}
}

func TestBinaryPresetConservesEnergy(t *testing.T) {
	cfg := config.GetPreset("binary")
	cfg.Integrator.Steps = 2000
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if drift := res.Metrics["energy_drift"]; drift > 1e-3 {
		t.Errorf("expected leapfrog binary to conserve energy, drift %g", drift)
	}
	if v := res.Metrics["virial_ratio"]; v < 0.9 || v > 1.1 {
		t.Errorf("expected circular orbit virial ratio ≈1, got %f", v)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig("pm")
	cfg.Grid.N = 12
	if _, err := New(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	e, err := New(smallConfig("pm"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}
