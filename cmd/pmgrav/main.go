package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/san-kum/pmgrav/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string

	particleCount int
	gridN         int
	steps         int
	dt            float64
	seed          int64
	solverName    string
	integrator    string
	workers       int
	snapEvery     int
	perfWindow    int

	plotField    string
	snapshotStep int
	spectrumBins int
	outPath      string
	themeName    string
	renderView   string
	renderAxis   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pmgrav",
		Short: "particle-mesh gravity lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ok, err := pickConfig()
			if err != nil || !ok {
				return err
			}
			return liveRun(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&snapEvery, "snapshot-every", 0, "write a snapshot every n steps")
	runCmd.Flags().IntVar(&perfWindow, "perf-window", 50, "steps per perf.csv row")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a simulation with the terminal monitor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args)
			if err != nil {
				return err
			}
			return liveRun(cmd.Context(), cfg)
		},
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "colour theme")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time the pipeline passes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSimulation,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().IntVar(&perfWindow, "perf-window", 100, "steps averaged")

	checkCmd := &cobra.Command{
		Use:   "check [preset]",
		Short: "validate a config and sanity check one force pass",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkConfig,
	}
	addConfigFlags(checkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot diagnostics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotField, "field", "", "one field to plot: "+strings.Join(plotFieldNames(), ", "))

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "conservation summary and virial oscillation spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "radial density power spectrum of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().IntVar(&snapshotStep, "step", -1, "snapshot step (default latest)")
	spectrumCmd.Flags().IntVar(&spectrumBins, "bins", 0, "number of shells (default N/2)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE:  listPresets,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and diagnostics to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a snapshot or the energy curve to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&renderView, "view", "density", "density, cloud or energy")
	renderCmd.Flags().IntVar(&renderAxis, "axis", 2, "projection axis for density (0=x, 1=y, 2=z)")
	renderCmd.Flags().IntVar(&snapshotStep, "step", -1, "snapshot step (default latest)")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	renderCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "colour theme")

	sweepCmd := &cobra.Command{
		Use:   "sweep [plan.yaml]",
		Short: "grid search config parameters against a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepPlan,
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, checkCmd, listCmd, plotCmd, analyzeCmd, spectrumCmd, presetsCmd, exportJSONCmd, renderCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().IntVar(&particleCount, "particles", 0, "particle count")
	cmd.Flags().IntVar(&gridN, "grid", 0, "grid resolution (power of two)")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().Int64Var(&seed, "seed", 0, "initial condition seed")
	cmd.Flags().StringVar(&solverName, "solver", "", "force solver: pm, direct, split")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator: euler, leapfrog")
	cmd.Flags().IntVar(&workers, "workers", 0, "backend workers (default GOMAXPROCS)")
}

// buildConfig resolves defaults, then a preset or config file, then any
// flags set on the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case len(args) > 0 && configFile != "":
		return nil, fmt.Errorf("give either a preset or --config, not both")
	case len(args) > 0:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	case configFile != "":
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	default:
		cfg = config.DefaultConfig()
		cfg.Name = "default"
	}

	f := cmd.Flags()
	if f.Changed("particles") {
		cfg.Particles.Count = particleCount
	}
	if f.Changed("grid") {
		cfg.Grid.N = gridN
	}
	if f.Changed("steps") {
		cfg.Integrator.Steps = steps
	}
	if f.Changed("dt") {
		cfg.Integrator.Dt = dt
	}
	if f.Changed("seed") {
		cfg.Particles.Seed = seed
	}
	if f.Changed("solver") {
		cfg.Solver = solverName
	}
	if f.Changed("integrator") {
		cfg.Integrator.Name = integrator
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Lookup("snapshot-every") != nil && f.Changed("snapshot-every") {
		cfg.Output.SnapshotEvery = snapEvery
	}
	if dataDir != "" {
		cfg.Output.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

func storeDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultDataDir
}
