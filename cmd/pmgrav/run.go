package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/experiment"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"github.com/san-kum/pmgrav/internal/storage"
	"github.com/san-kum/pmgrav/internal/viz"
	"github.com/spf13/cobra"
)

// perfRecorder appends a perf.csv row every window steps.
type perfRecorder struct {
	run    *storage.Run
	perf   *metrics.PerfCollector
	window int
}

func (p *perfRecorder) OnStep(_ *particles.State, step int, _ float64) {
	if p.window <= 0 || step%p.window != 0 || p.perf.Samples() == 0 {
		return
	}
	if err := p.run.WritePerf(p.perf.Stats(), step); err != nil {
		slog.Warn("perf row dropped", "step", step, "error", err)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	perf := metrics.NewPerfCollector(perfWindow)
	exp, err := experiment.New(cfg, experiment.WithPerf(perf))
	if err != nil {
		return err
	}

	store := storage.New(cfg.Output.DataDir)
	if err := store.Init(); err != nil {
		return err
	}
	run, err := store.Create(cfg)
	if err != nil {
		return err
	}
	s := exp.GetSimulator()
	s.AddObserver(run)
	s.AddObserver(&perfRecorder{run: run, perf: perf, window: perfWindow})

	fmt.Printf("running %s: %d particles, %s solver, %d steps...\n", cfg.Name, cfg.Particles.Count, cfg.Solver, cfg.Integrator.Steps)
	start := time.Now()

	result, runErr := exp.Run(cmd.Context())
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	meta, err := run.Finish(result, s.Solver().Name(), s.Integrator().Name())
	if err != nil {
		return errors.Join(runErr, err)
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", meta.ID)
	fmt.Printf("steps: %d (t=%.4f)\n", meta.StepsTaken, meta.Time)
	fmt.Printf("snapshots: %d\n", meta.Snapshots)
	if len(meta.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		printMetrics(meta.Metrics)
	}
	for _, e := range meta.Errors {
		fmt.Printf("warning: %s\n", e)
	}
	if errors.Is(runErr, sim.ErrCanceled) {
		fmt.Println("interrupted; partial run saved")
		return nil
	}
	return runErr
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

func pickConfig() (*config.Config, bool, error) {
	return viz.RunPicker(tea.WithAltScreen())
}

func liveRun(ctx context.Context, cfg *config.Config) error {
	perf := metrics.NewPerfCollector(50)
	exp, err := experiment.New(cfg, experiment.WithPerf(perf))
	if err != nil {
		return err
	}

	every := max(1, cfg.Integrator.Steps/300)
	feed := viz.NewFeed(exp.GetSimulator(), every, 8192)
	exp.GetSimulator().AddObserver(feed)

	result, err := viz.RunLive(ctx, exp, feed, viz.LiveOptions{
		Title:      cfg.Name,
		TotalSteps: cfg.Integrator.Steps,
		Bounds:     cfg.Bounds(),
		Perf:       perf,
		Theme:      viz.GetTheme(themeName),
	})
	if err != nil && !errors.Is(err, sim.ErrCanceled) {
		return err
	}
	if result != nil {
		fmt.Printf("%d steps, t=%.4f, energy drift %.3g\n", result.StepsTaken, result.Time, result.EnergyDrift)
	}
	return nil
}

func benchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") {
		cfg.Integrator.Steps = perfWindow
	}
	cfg.Output.DiagnosticsEvery = 0

	perf := metrics.NewPerfCollector(perfWindow)
	exp, err := experiment.New(cfg, experiment.WithPerf(perf))
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%s, N=%d, %d particles, %s backend)...\n",
		cfg.Name, cfg.Solver, cfg.Grid.N, cfg.Particles.Count, exp.Backend().Name())
	start := time.Now()
	if _, err := exp.Run(cmd.Context()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := perf.Stats()
	fmt.Printf("\ntotal:       %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("steps/sec:   %.1f\n", stats.TicksPerSecond)
	fmt.Printf("step avg:    %v (min %v, max %v)\n", stats.AvgTickDuration, stats.MinTickDuration, stats.MaxTickDuration)
	fmt.Printf("particles/s: %.3g\n\n", stats.TicksPerSecond*float64(cfg.Particles.Count))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tAVG\tSHARE")
	for _, name := range stats.Phases() {
		fmt.Fprintf(w, "%s\t%v\t%5.1f%%\n", name, stats.PhaseAvg[name], stats.PhasePct[name])
	}
	return w.Flush()
}
