package optim

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/sim"
)

// fakeRun scores a config by its distance from dt=0.005, softening=0.02.
func fakeRun(calls *int) RunFunc {
	return func(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
		*calls++
		v := math.Abs(cfg.Integrator.Dt-0.005) + math.Abs(cfg.Gravity.Softening-0.02)
		return &sim.Result{Metrics: map[string]float64{"energy_drift": v}}, nil
	}
}

func TestApply(t *testing.T) {
	base := config.DefaultConfig()
	cfg, err := Apply(base, map[string]float64{"dt": 0.01, "grid": 64, "seed": 7})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Integrator.Dt != 0.01 || cfg.Grid.N != 64 || cfg.Particles.Seed != 7 {
		t.Errorf("expected params applied, got dt=%v n=%d seed=%d", cfg.Integrator.Dt, cfg.Grid.N, cfg.Particles.Seed)
	}
	if base.Grid.N != config.DefaultGridN {
		t.Error("expected base untouched")
	}
	if _, err := Apply(base, map[string]float64{"bogus": 1}); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestGridSearch(t *testing.T) {
	g, err := NewGridSearch(
		[]string{"dt", "softening"},
		[][]float64{{0.01, 0.005, 0.0025}, {0, 0.02}},
	)
	if err != nil {
		t.Fatalf("new grid search: %v", err)
	}
	if g.Size() != 6 {
		t.Errorf("expected 6 combinations, got %d", g.Size())
	}

	calls := 0
	best, trials, err := g.Search(context.Background(), config.DefaultConfig(), fakeRun(&calls), "energy_drift")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls != 6 || len(trials) != 6 {
		t.Errorf("expected 6 runs, got %d calls and %d trials", calls, len(trials))
	}
	if best.Params["dt"] != 0.005 || best.Params["softening"] != 0.02 || best.Value != 0 {
		t.Errorf("expected dt=0.005 softening=0.02, got %v (%v)", best.Params, best.Value)
	}
	if trials[0].Params["dt"] != 0.01 || trials[0].Params["softening"] != 0 {
		t.Errorf("expected evaluation order to follow the ranges, got %v", trials[0].Params)
	}
}

func TestGridSearchFailures(t *testing.T) {
	g, _ := NewGridSearch([]string{"dt"}, [][]float64{{-1, 0.004}})
	calls := 0
	best, trials, err := g.Search(context.Background(), config.DefaultConfig(), fakeRun(&calls), "energy_drift")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the invalid dt skipped before running, got %d calls", calls)
	}
	if !errors.Is(trials[0].Err, config.ErrInvalid) {
		t.Errorf("expected a validation error, got %v", trials[0].Err)
	}
	if best.Params["dt"] != 0.004 {
		t.Errorf("expected dt=0.004 to win, got %v", best.Params)
	}

	ranked := Rank(trials)
	if ranked[0].Err != nil || ranked[1].Err == nil {
		t.Error("expected failures ranked last")
	}

	_, _, err = g.Search(context.Background(), config.DefaultConfig(), fakeRun(&calls), "missing")
	if !errors.Is(err, ErrNoTrials) {
		t.Errorf("expected ErrNoTrials, got %v", err)
	}
}

func TestGridSearchCanceled(t *testing.T) {
	g, _ := NewGridSearch([]string{"dt"}, [][]float64{{0.001, 0.002}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	if _, _, err := g.Search(ctx, config.DefaultConfig(), fakeRun(&calls), "energy_drift"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no runs, got %d", calls)
	}
}

func TestNewGridSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		ranges [][]float64
	}{
		{"mismatch", []string{"dt"}, nil},
		{"unknown", []string{"bogus"}, [][]float64{{1}}},
		{"empty range", []string{"dt"}, [][]float64{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGridSearch(tt.params, tt.ranges); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLinspace(t *testing.T) {
	tests := []struct {
		lo, hi float64
		n      int
		want   []float64
	}{
		{0, 1, 3, []float64{0, 0.5, 1}},
		{2, 9, 1, []float64{2}},
		{0, 1, 0, nil},
	}
	for _, tt := range tests {
		got := Linspace(tt.lo, tt.hi, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("expected %v, got %v", tt.want, got)
		}
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		}
	}
}

func TestRunEnsemble(t *testing.T) {
	base := config.DefaultConfig()
	base.Particles.Seed = 10

	var seeds []int64
	run := func(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
		seeds = append(seeds, cfg.Particles.Seed)
		switch cfg.Particles.Seed {
		case 13:
			return nil, errors.New("diverged")
		case 12:
			return &sim.Result{Metrics: map[string]float64{"energy_drift": 1}, Errors: []error{sim.ErrInvalidState}}, nil
		}
		return &sim.Result{Metrics: map[string]float64{"energy_drift": float64(cfg.Particles.Seed - 9)}}, nil
	}

	res, err := RunEnsemble(context.Background(), base, 4, run, "energy_drift")
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(seeds) != 4 || seeds[0] != 10 || seeds[3] != 13 {
		t.Errorf("expected seeds 10..13, got %v", seeds)
	}
	if res.Stable != 2 || res.Unstable != 2 {
		t.Errorf("expected 2 stable and 2 unstable, got %d and %d", res.Stable, res.Unstable)
	}
	if res.Mean != 1.5 {
		t.Errorf("expected mean 1.5, got %v", res.Mean)
	}
	if math.Abs(res.StdDev-math.Sqrt(0.5)) > 1e-12 {
		t.Errorf("expected sample stddev %v, got %v", math.Sqrt(0.5), res.StdDev)
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	data := `
name: dt_convergence
preset: binary
params:
  - name: dt
    values: [0.002, 0.001]
  - name: softening
    min: 0
    max: 0.1
    count: 3
seeds: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Metric != "energy_drift" || p.Seeds != 2 {
		t.Errorf("expected default metric and 2 seeds, got %q %d", p.Metric, p.Seeds)
	}
	base, err := p.Base()
	if err != nil || base.Name != "binary" {
		t.Fatalf("expected the binary preset, got %v", err)
	}
	g, err := p.GridSearch()
	if err != nil {
		t.Fatalf("grid search: %v", err)
	}
	if g.Size() != 6 {
		t.Errorf("expected 6 combinations, got %d", g.Size())
	}

	p.Preset = "nope"
	if _, err := p.Base(); err == nil {
		t.Error("expected an unknown preset error")
	}
}

func TestRunExperiment(t *testing.T) {
	cfg := config.GetPreset("binary")
	cfg.Integrator.Steps = 20
	res, err := RunExperiment(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := res.Metrics["energy_drift"]; !ok {
		t.Errorf("expected energy_drift, got %v", res.Metrics)
	}
}
