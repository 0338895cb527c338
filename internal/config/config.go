package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/pm"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGridN              = 32
	DefaultGravity            = 4 * math.Pi
	DefaultDeconvolutionOrder = 2
	DefaultSmoothing          = 1.0
	DefaultParticles          = 8192
	DefaultDt                 = 0.002
	DefaultSteps              = 400
	DefaultDataDir            = "runs"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Solver     string           `yaml:"solver"`
	Workers    int              `yaml:"workers,omitempty"`
	Grid       GridConfig       `yaml:"grid"`
	World      WorldConfig      `yaml:"world"`
	Gravity    GravityConfig    `yaml:"gravity"`
	PM         PMConfig         `yaml:"pm"`
	Particles  ParticleConfig   `yaml:"particles"`
	Integrator IntegratorConfig `yaml:"integrator"`
	Output     OutputConfig     `yaml:"output"`
}

type GridConfig struct {
	N int `yaml:"n"`
	// SlicesPerRow of 0 picks the smallest S with S² ≥ N.
	SlicesPerRow int `yaml:"slices_per_row"`
}

type WorldConfig struct {
	Min [3]float64 `yaml:"min,flow"`
	Max [3]float64 `yaml:"max,flow"`
}

type GravityConfig struct {
	// Constant is the Poisson source coefficient, 4π·G_newton.
	Constant  float64 `yaml:"constant"`
	Softening float64 `yaml:"softening"`
}

type PMConfig struct {
	Assignment         string      `yaml:"assignment"`
	DeconvolutionOrder int         `yaml:"deconvolution_order"`
	DiscreteLaplacian  bool        `yaml:"discrete_laplacian"`
	Split              SplitConfig `yaml:"split"`
	// Smoothing is a Gaussian force smoothing width in voxels, used when
	// split.mode is none.
	Smoothing float64 `yaml:"smoothing"`
}

type SplitConfig struct {
	Mode  string  `yaml:"mode"`
	KCut  float64 `yaml:"k_cut,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty"`
}

type ParticleConfig struct {
	Count              int     `yaml:"count"`
	Distribution       string  `yaml:"distribution"`
	Seed               int64   `yaml:"seed"`
	Mass               float64 `yaml:"mass"`
	Radius             float64 `yaml:"radius"`
	VelocityDispersion float64 `yaml:"velocity_dispersion,omitempty"`
}

type IntegratorConfig struct {
	Name     string  `yaml:"name"`
	Dt       float64 `yaml:"dt"`
	Steps    int     `yaml:"steps"`
	Damping  float64 `yaml:"damping,omitempty"`
	MaxSpeed float64 `yaml:"max_speed,omitempty"`
	MaxAccel float64 `yaml:"max_accel,omitempty"`
}

type OutputConfig struct {
	DataDir          string `yaml:"data_dir"`
	SnapshotEvery    int    `yaml:"snapshot_every"`
	DiagnosticsEvery int    `yaml:"diagnostics_every"`
}

func DefaultConfig() *Config {
	return &Config{
		Solver: "pm",
		Grid:   GridConfig{N: DefaultGridN},
		World: WorldConfig{
			Min: [3]float64{-1, -1, -1},
			Max: [3]float64{1, 1, 1},
		},
		Gravity: GravityConfig{Constant: DefaultGravity},
		PM: PMConfig{
			Assignment:         "cic",
			DeconvolutionOrder: DefaultDeconvolutionOrder,
			Split:              SplitConfig{Mode: "none"},
			Smoothing:          DefaultSmoothing,
		},
		Particles: ParticleConfig{
			Count:        DefaultParticles,
			Distribution: string(particles.ColdSphere),
			Seed:         1,
			Mass:         1,
			Radius:       0.5,
		},
		Integrator: IntegratorConfig{
			Name:  "leapfrog",
			Dt:    DefaultDt,
			Steps: DefaultSteps,
		},
		Output: OutputConfig{
			DataDir:          DefaultDataDir,
			DiagnosticsEvery: 10,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// SlicesPerRow resolves the atlas tiling.
func (c *Config) SlicesPerRow() int {
	if c.Grid.SlicesPerRow > 0 {
		return c.Grid.SlicesPerRow
	}
	s := 1
	for s*s < c.Grid.N {
		s++
	}
	return s
}

func (c *Config) Layout() (atlas.Layout, error) {
	return atlas.New(c.Grid.N, c.SlicesPerRow())
}

func (c *Config) Bounds() particles.Bounds {
	return particles.NewBounds(c.World.Min, c.World.Max)
}

// NewtonG is the Newtonian constant implied by the Poisson coefficient.
func (c *Config) NewtonG() float64 {
	return c.Gravity.Constant / (4 * math.Pi)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Solver {
	case "pm", "direct", "split":
	default:
		fail("solver %q (want pm, direct or split)", c.Solver)
	}

	if !atlas.IsPowerOfTwo(c.Grid.N) || c.Grid.N < 2 {
		fail("grid.n must be a power of two ≥ 2, got %d", c.Grid.N)
	}
	if c.Grid.SlicesPerRow < 0 {
		fail("grid.slices_per_row must not be negative")
	}
	if err := c.Bounds().Validate(); err != nil {
		fail("world: %v", err)
	}

	if !(c.Gravity.Constant > 0) {
		fail("gravity.constant must be positive, got %v", c.Gravity.Constant)
	}
	if c.Gravity.Softening < 0 {
		fail("gravity.softening must not be negative")
	}

	if _, err := pm.ParseAssignment(c.PM.Assignment); err != nil {
		fail("pm.assignment: %v", err)
	}
	mode, err := pm.ParseSplitMode(c.PM.Split.Mode)
	if err != nil {
		fail("pm.split.mode: %v", err)
	}
	params := pm.PoissonParams{
		G:                  c.Gravity.Constant,
		DeconvolutionOrder: c.PM.DeconvolutionOrder,
		Split:              pm.Split{Mode: mode, KCut: c.PM.Split.KCut, Sigma: c.PM.Split.Sigma},
		Smoothing:          c.PM.Smoothing,
	}
	if err == nil {
		if err := params.Validate(); err != nil {
			fail("pm: %v", err)
		}
	}
	if c.Solver == "split" && mode != pm.SplitGaussian {
		fail("solver split needs pm.split.mode gaussian, got %q", c.PM.Split.Mode)
	}

	p := c.Particles
	if p.Count < 1 {
		fail("particles.count must be positive, got %d", p.Count)
	}
	switch particles.Distribution(p.Distribution) {
	case particles.Uniform, particles.ColdSphere, particles.Plummer:
	case particles.Binary:
		if p.Count != 2 {
			fail("binary distribution needs 2 particles, got %d", p.Count)
		}
	default:
		fail("particles.distribution %q", p.Distribution)
	}
	if !(p.Mass > 0) {
		fail("particles.mass must be positive, got %v", p.Mass)
	}
	if p.Radius < 0 || p.VelocityDispersion < 0 {
		fail("particles.radius and velocity_dispersion must not be negative")
	}

	in := c.Integrator
	switch in.Name {
	case "euler", "leapfrog":
	default:
		fail("integrator.name %q (want euler or leapfrog)", in.Name)
	}
	if !(in.Dt > 0) {
		fail("integrator.dt must be positive, got %v", in.Dt)
	}
	if in.Steps < 1 {
		fail("integrator.steps must be positive, got %d", in.Steps)
	}
	if in.Damping < 0 || in.Damping >= 1 {
		fail("integrator.damping must be in [0, 1), got %v", in.Damping)
	}
	if in.MaxSpeed < 0 || in.MaxAccel < 0 {
		fail("integrator.max_speed and max_accel must not be negative")
	}

	if c.Output.SnapshotEvery < 0 || c.Output.DiagnosticsEvery < 0 {
		fail("output intervals must not be negative")
	}
	return errors.Join(errs...)
}
