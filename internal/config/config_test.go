package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Solver != "pm" {
		t.Errorf("expected solver pm, got %s", cfg.Solver)
	}
	if cfg.Integrator.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
	if g := cfg.NewtonG(); math.Abs(g-1) > 1e-12 {
		t.Errorf("expected Newtonian G 1, got %f", g)
	}
}

func TestSlicesPerRow(t *testing.T) {
	tests := []struct {
		n, s, want int
	}{
		{32, 0, 6},
		{64, 0, 8},
		{16, 0, 4},
		{2, 0, 2},
		{32, 8, 8},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Grid = GridConfig{N: tt.n, SlicesPerRow: tt.s}
		if got := cfg.SlicesPerRow(); got != tt.want {
			t.Errorf("n=%d s=%d: expected %d, got %d", tt.n, tt.s, tt.want, got)
		}
		if _, err := cfg.Layout(); err != nil {
			t.Errorf("n=%d: layout: %v", tt.n, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"solver", func(c *Config) { c.Solver = "tree" }, "solver"},
		{"grid not power of two", func(c *Config) { c.Grid.N = 24 }, "grid.n"},
		{"inverted world", func(c *Config) { c.World.Max[1] = -2 }, "world"},
		{"gravity", func(c *Config) { c.Gravity.Constant = 0 }, "gravity.constant"},
		{"assignment", func(c *Config) { c.PM.Assignment = "tsc" }, "pm.assignment"},
		{"deconvolution", func(c *Config) { c.PM.DeconvolutionOrder = 7 }, "pm:"},
		{"split mode", func(c *Config) { c.PM.Split.Mode = "soft" }, "pm.split.mode"},
		{"gaussian without sigma", func(c *Config) { c.PM.Split.Mode = "gaussian" }, "pm:"},
		{"negative smoothing", func(c *Config) { c.PM.Smoothing = -0.5 }, "pm:"},
		{"split solver without gaussian", func(c *Config) { c.Solver = "split" }, "solver split"},
		{"particle count", func(c *Config) { c.Particles.Count = 0 }, "particles.count"},
		{"binary count", func(c *Config) { c.Particles.Distribution = "binary" }, "binary"},
		{"distribution", func(c *Config) { c.Particles.Distribution = "hernquist" }, "particles.distribution"},
		{"integrator", func(c *Config) { c.Integrator.Name = "rk4" }, "integrator.name"},
		{"dt", func(c *Config) { c.Integrator.Dt = -1 }, "integrator.dt"},
		{"damping", func(c *Config) { c.Integrator.Damping = 1 }, "integrator.damping"},
		{"output", func(c *Config) { c.Output.SnapshotEvery = -5 }, "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got %v", tt.field, err)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver = "tree"
	cfg.Integrator.Steps = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := err.Error(); !strings.Contains(msg, "solver") || !strings.Contains(msg, "integrator.steps") {
		t.Errorf("expected both problems reported, got %v", msg)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := "grid:\n  n: 16\nparticles:\n  count: 100\n  distribution: uniform\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Grid.N != 16 || cfg.Particles.Count != 100 || cfg.Particles.Distribution != "uniform" {
		t.Errorf("expected file values, got %+v", cfg)
	}
	if cfg.Integrator.Name != "leapfrog" || cfg.PM.Assignment != "cic" {
		t.Errorf("expected defaults for missing fields, got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("grid: [1, 2"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := GetPreset("plummer")
	path := filepath.Join(t.TempDir(), "plummer.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("expected preset %s", name)
		}
		if cfg.Name != name {
			t.Errorf("expected name %s, got %s", name, cfg.Name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}

	a, b := GetPreset("binary"), GetPreset("binary")
	a.Particles.Count = 99
	if b.Particles.Count != 2 {
		t.Error("expected presets to be independent copies")
	}
}
