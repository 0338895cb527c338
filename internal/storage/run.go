package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/metrics"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
)

// Run is an open run directory. It is a sim.Observer that snapshots the
// particles every snapshotEvery steps.
type Run struct {
	id            string
	dir           string
	cfg           *config.Config
	snapshotEvery int
	snapshots     int
	started       time.Time

	perf              *os.File
	perfHeaderWritten bool

	// err holds the first failure seen while observing.
	err error
}

func (r *Run) ID() string  { return r.id }
func (r *Run) Dir() string { return r.dir }

func (r *Run) OnStep(st *particles.State, step int, t float64) {
	if r.err != nil || r.snapshotEvery <= 0 || step%r.snapshotEvery != 0 {
		return
	}
	if err := r.WriteSnapshot(step, st); err != nil {
		r.err = err
	}
}

func (r *Run) WriteSnapshot(step int, st *particles.State) error {
	path := filepath.Join(r.dir, snapshotDir, snapshotName(step))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := particles.WriteSnapshot(w, st); err != nil {
		return fmt.Errorf("snapshot %d: %w", step, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	r.snapshots++
	return nil
}

// WritePerf appends a performance window to perf.csv.
func (r *Run) WritePerf(stats metrics.PerfStats, windowEnd int) error {
	if r.perf == nil {
		f, err := os.Create(filepath.Join(r.dir, perfFile))
		if err != nil {
			return fmt.Errorf("creating %s: %w", perfFile, err)
		}
		r.perf = f
	}

	records := []metrics.PerfStatsCSV{stats.ToCSV(windowEnd)}
	if !r.perfHeaderWritten {
		if err := gocsv.Marshal(records, r.perf); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		r.perfHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.perf); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Finish writes diagnostics.csv and metadata.json and closes the run. It
// reports the first snapshot failure seen while observing.
func (r *Run) Finish(result *sim.Result, solver, integrator string) (*RunMetadata, error) {
	if r.perf != nil {
		r.perf.Close()
		r.perf = nil
	}
	if r.err != nil {
		return nil, r.err
	}

	f, err := os.Create(filepath.Join(r.dir, diagnosticsFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", diagnosticsFile, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&result.Diagnostics, f); err != nil {
		return nil, fmt.Errorf("writing diagnostics: %w", err)
	}

	meta := &RunMetadata{
		ID:          r.id,
		Name:        r.cfg.Name,
		Timestamp:   r.started,
		Solver:      solver,
		Integrator:  integrator,
		Particles:   r.cfg.Particles.Count,
		GridN:       r.cfg.Grid.N,
		Seed:        r.cfg.Particles.Seed,
		Dt:          r.cfg.Integrator.Dt,
		Steps:       r.cfg.Integrator.Steps,
		StepsTaken:  result.StepsTaken,
		Time:        result.Time,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
		Snapshots:   r.snapshots,
	}
	for _, e := range result.Errors {
		meta.Errors = append(meta.Errors, e.Error())
	}

	mf, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return nil, err
	}
	return meta, nil
}
