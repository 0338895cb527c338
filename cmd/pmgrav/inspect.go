package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pmgrav/internal/analysis"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/experiment"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/pm"
	"github.com/san-kum/pmgrav/internal/sim"
	"github.com/san-kum/pmgrav/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

var plotFields = map[string]func(sim.Diagnostics) float64{
	"total":     func(d sim.Diagnostics) float64 { return d.Total },
	"kinetic":   func(d sim.Diagnostics) float64 { return d.Kinetic },
	"potential": func(d sim.Diagnostics) float64 { return d.Potential },
	"virial":    func(d sim.Diagnostics) float64 { return d.VirialRatio() },
	"momentum":  func(d sim.Diagnostics) float64 { return r3.Norm(d.Momentum()) },
	"max_speed": func(d sim.Diagnostics) float64 { return d.MaxSpeed },
}

var defaultPlotFields = []string{"total", "kinetic", "potential", "virial"}

func plotFieldNames() []string {
	names := make([]string, 0, len(plotFields))
	for name := range plotFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOLVER\tINTEG\tPARTICLES\tGRID\tSTEPS\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d/%d\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Solver,
			run.Integrator,
			run.Particles,
			run.GridN,
			run.StepsTaken,
			run.Steps,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(storeDir())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	diags, err := st.LoadDiagnostics(runID)
	if err != nil {
		return err
	}
	if len(diags) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fields := defaultPlotFields
	if plotField != "" {
		if _, ok := plotFields[plotField]; !ok {
			return fmt.Errorf("unknown field %q (available: %v)", plotField, plotFieldNames())
		}
		fields = []string{plotField}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("solver: %s, %d particles\n", meta.Solver, meta.Particles)
	fmt.Printf("samples: %d (t=%.4f)\n\n", len(diags), diags[len(diags)-1].Time)

	for _, name := range fields {
		get := plotFields[name]
		data := make([]float64, len(diags))
		for i, d := range diags {
			data[i] = get(d)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(storeDir())
	diags, err := st.LoadDiagnostics(runID)
	if err != nil {
		return err
	}
	summary := analysis.Summarize(diags)

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("samples:         %d over t=%.4f\n", summary.Samples, summary.Duration)
	fmt.Printf("energy drift:    %.3e\n", summary.EnergyDrift)
	fmt.Printf("momentum drift:  %.3e\n", summary.MomentumDrift)
	fmt.Printf("grid mass error: %.3e\n", summary.MassError)
	fmt.Printf("final 2K/|W|:    %.4f\n", summary.FinalVirial)
	if summary.VirialPeriod > 0 {
		fmt.Printf("virial period:   %.4f\n", summary.VirialPeriod)
	}

	if len(diags) < 4 {
		return nil
	}
	virial := make([]float64, len(diags))
	for i, d := range diags {
		virial[i] = d.VirialRatio()
	}
	freqs, power, err := analysis.TimeSeriesSpectrum(virial, diags[1].Time-diags[0].Time)
	if err != nil {
		return err
	}
	if len(power) > 1 {
		graph := asciigraph.Plot(power[1:],
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption(fmt.Sprintf("virial ratio power, %.3g to %.3g", freqs[1], freqs[len(freqs)-1])),
		)
		fmt.Println()
		fmt.Println(graph)
	}
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(storeDir())
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	backend := compute.NewCPUBackend(compute.WithWorkers(cfg.Workers))

	state, step, err := loadState(st, runID, cfg, backend)
	if err != nil {
		return err
	}
	cfg.Particles.Count = state.Count

	pcfg, err := experiment.PMConfig(cfg)
	if err != nil {
		return err
	}
	pcfg.Poisson.Split = pm.Split{}
	pipe, err := pm.NewPipeline(backend, pcfg)
	if err != nil {
		return err
	}
	if err := pipe.ComputeForces(state.Pos.Current(), state.Force, compute.BlendReplace); err != nil {
		return err
	}
	bins, err := analysis.RadialPowerSpectrum(pipe.Layout(), cfg.Bounds(), pipe.DensitySpectrum(), spectrumBins)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s, step %d, N=%d\n\n", runID, step, cfg.Grid.N)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHELL\tK\tMODES\tP(K)")
	logP := make([]float64, 0, len(bins))
	for _, b := range bins {
		fmt.Fprintf(w, "%d\t%.4g\t%d\t%.4e\n", b.Shell, b.K, b.Modes, b.Power)
		if b.Power > 0 {
			logP = append(logP, math.Log10(b.Power))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(logP) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(logP, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("log10 P(k)")))
	}
	return nil
}

// loadState reads the requested snapshot, the latest one, or regenerates the
// initial conditions when the run kept none.
func loadState(st *storage.Store, runID string, cfg *config.Config, b compute.Backend) (*particles.State, int, error) {
	steps, err := st.Snapshots(runID)
	if err != nil {
		return nil, 0, err
	}
	step := snapshotStep
	if step < 0 {
		if len(steps) == 0 {
			exp, err := experiment.New(cfg, experiment.WithBackend(b))
			if err != nil {
				return nil, 0, err
			}
			return exp.State(), 0, nil
		}
		step = steps[len(steps)-1]
	}
	state, err := st.LoadSnapshot(runID, step, b)
	return state, step, err
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	fmt.Printf("config %s: ok\n", cfg.Name)

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	st := exp.State()
	s := exp.GetSimulator()
	if err := s.Solver().ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace); err != nil {
		return err
	}

	var failed []error
	report := func(name string, ok bool, format string, args ...any) {
		status := "ok"
		if !ok {
			status = "FAIL"
			failed = append(failed, fmt.Errorf("%s: "+format, append([]any{name}, args...)...))
		}
		fmt.Printf("%-16s %-4s "+format+"\n", append([]any{name, status}, args...)...)
	}

	var net r3.Vec
	scale := 0.0
	finite := true
	for i := 0; i < st.Count; i++ {
		a := st.ForceOn(i)
		if math.IsNaN(a.X+a.Y+a.Z) || math.IsInf(a.X+a.Y+a.Z, 0) {
			finite = false
		}
		m := st.Mass(i)
		net = r3.Add(net, r3.Scale(m, a))
		scale += m * r3.Norm(a)
	}
	report("finite forces", finite, "%d particles", st.Count)
	if scale > 0 {
		rel := r3.Norm(net) / scale
		report("net force", rel < 1e-2, "|Σ m·a| / Σ m·|a| = %.2e", rel)
	}

	d, err := s.Diagnose(st)
	if err != nil {
		return err
	}
	if d.GridMass > 0 {
		rel := math.Abs(d.GridMass-d.TotalMass) / d.TotalMass
		report("grid mass", rel < 1e-4, "deposited %.6g of %.6g", d.GridMass, d.TotalMass)
	}
	report("potential", d.Potential < 0, "W = %.4g, 2K/|W| = %.3f", d.Potential, d.VirialRatio())

	return errors.Join(failed...)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSOLVER\tDISTRIBUTION\tPARTICLES\tGRID\tDT\tSTEPS")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%g\t%d\n",
			name, c.Solver, c.Particles.Distribution, c.Particles.Count, c.Grid.N, c.Integrator.Dt, c.Integrator.Steps)
	}
	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outPath, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}
