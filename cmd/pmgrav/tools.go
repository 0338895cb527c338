package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/export"
	"github.com/san-kum/pmgrav/internal/optim"
	"github.com/san-kum/pmgrav/internal/storage"
	"github.com/san-kum/pmgrav/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(storeDir())
	theme := viz.GetTheme(themeName)

	var svg string
	switch renderView {
	case "energy":
		diags, err := st.LoadDiagnostics(runID)
		if err != nil {
			return err
		}
		values := make([]float64, len(diags))
		for i, d := range diags {
			values[i] = d.Total
		}
		svg = export.SeriesSVG(values, 800, 300, string(theme.Accent))
	case "density", "cloud":
		cfg, err := st.LoadConfig(runID)
		if err != nil {
			return err
		}
		state, _, err := loadState(st, runID, cfg, compute.NewCPUBackend())
		if err != nil {
			return err
		}
		bounds := cfg.Bounds()
		cloud := make([]r3.Vec, state.Count)
		for i := range cloud {
			cloud[i] = state.Position(i)
		}
		if renderView == "density" {
			svg = export.DensitySVG(viz.DensityMap(cloud, bounds, 128, 128, renderAxis), 4, theme)
		} else {
			cv := viz.NewCanvas(100, 50)
			cam := viz.NewCamera(bounds)
			cam.DrawBox(cv, bounds)
			cam.DrawPoints(cv, cloud)
			svg = export.CanvasSVG(cv, 4, theme)
		}
	default:
		return fmt.Errorf("unknown view %q (want density, cloud or energy)", renderView)
	}
	if svg == "" {
		return fmt.Errorf("nothing to render")
	}

	path := outPath
	if path == "" {
		path = fmt.Sprintf("%s_%s.svg", runID, renderView)
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func sweepPlan(cmd *cobra.Command, args []string) error {
	plan, err := optim.LoadPlan(args[0])
	if err != nil {
		return err
	}
	base, err := plan.Base()
	if err != nil {
		return err
	}
	search, err := plan.GridSearch()
	if err != nil {
		return err
	}

	fmt.Printf("sweep %s: %d combinations, minimising %s\n", plan.Name, search.Size(), plan.Metric)
	best, trials, err := search.Search(cmd.Context(), base, optim.RunExperiment, plan.Metric)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMS\tVALUE\tERROR")
	for _, t := range optim.Rank(trials) {
		if t.Err != nil {
			fmt.Fprintf(w, "%v\t-\t%v\n", t.Params, t.Err)
			continue
		}
		fmt.Fprintf(w, "%v\t%.4e\t\n", t.Params, t.Value)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %v (%s=%.4e)\n", best.Params, plan.Metric, best.Value)

	if plan.Seeds > 1 {
		cfg, err := optim.Apply(base, best.Params)
		if err != nil {
			return err
		}
		ens, err := optim.RunEnsemble(cmd.Context(), cfg, plan.Seeds, optim.RunExperiment, plan.Metric)
		if err != nil {
			return err
		}
		fmt.Printf("ensemble over %d seeds: %s = %.4e ± %.2e (%d stable, %d unstable)\n",
			plan.Seeds, plan.Metric, ens.Mean, ens.StdDev, ens.Stable, ens.Unstable)
	}
	return nil
}
