package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/config"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
)

const (
	metadataFile    = "metadata.json"
	configFile      = "config.yaml"
	diagnosticsFile = "diagnostics.csv"
	perfFile        = "perf.csv"
	snapshotDir     = "snapshots"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Solver      string             `json:"solver"`
	Integrator  string             `json:"integrator"`
	Particles   int                `json:"particles"`
	GridN       int                `json:"grid_n"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	StepsTaken  int                `json:"steps_taken"`
	Time        float64            `json:"time"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
	Snapshots   int                `json:"snapshots"`
	Errors      []string           `json:"errors,omitempty"`
}

// Create makes a fresh run directory and stores the config beside it.
func (s *Store) Create(cfg *config.Config) (*Run, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Particles.Distribution
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for i := 2; ; i++ {
		if _, err := os.Stat(s.Dir(runID)); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s-%d", base, i)
	}

	dir := s.Dir(runID)
	if err := os.MkdirAll(filepath.Join(dir, snapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
		return nil, fmt.Errorf("writing %s: %w", configFile, err)
	}

	return &Run{
		id:            runID,
		dir:           dir,
		cfg:           cfg,
		snapshotEvery: cfg.Output.SnapshotEvery,
		started:       time.Now(),
	}, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", metadataFile, err)
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.Dir(runID), configFile))
}

func (s *Store) LoadDiagnostics(runID string) ([]sim.Diagnostics, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), diagnosticsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	var rows []sim.Diagnostics
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", diagnosticsFile, err)
	}
	return rows, nil
}

// Snapshots lists the stored snapshot steps in ascending order.
func (s *Store) Snapshots(runID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.Dir(runID), snapshotDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	steps := make([]int, 0, len(entries))
	for _, e := range entries {
		var step int
		if _, err := fmt.Sscanf(e.Name(), "step_%d.bin", &step); err != nil || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

// LoadSnapshot reads one snapshot; the particle count comes from its size.
func (s *Store) LoadSnapshot(runID string, step int, b compute.Backend) (*particles.State, error) {
	path := filepath.Join(s.Dir(runID), snapshotDir, snapshotName(step))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	count, err := particles.SnapshotCount(info.Size())
	if err != nil {
		return nil, err
	}
	return particles.ReadSnapshot(f, b, count)
}

func snapshotName(step int) string {
	return fmt.Sprintf("step_%06d.bin", step)
}
