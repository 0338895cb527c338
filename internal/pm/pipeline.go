package pm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

var ErrNotComputed = errors.New("pm: no forces computed yet")

type Config struct {
	Layout     atlas.Layout
	Bounds     particles.Bounds
	Count      int
	Assignment Assignment
	Poisson    PoissonParams
}

func (c Config) Validate() error {
	if _, err := atlas.New(c.Layout.N, c.Layout.SlicesPerRow); err != nil {
		return err
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.Count <= 0 {
		return ErrParticleCount
	}
	if c.Assignment != NGP && c.Assignment != CIC {
		return fmt.Errorf("%w: %v", ErrAssignment, c.Assignment)
	}
	return c.Poisson.Validate()
}

// Pipeline owns every grid and spectrum texture for one layout and runs the
// full particle-mesh force evaluation. Changing N or the slice layout means
// building a new Pipeline.
type Pipeline struct {
	cfg     Config
	backend compute.Backend
	logger  *slog.Logger
	timer   PassTimer

	deposit  *Deposit
	fft      *FFT
	poisson  *Poisson
	gradient [3]*Gradient
	sample   *ForceSample

	mass      *compute.Texture
	density   *compute.Texture
	potential *compute.Texture
	forceSpec *compute.Texture
	forceGrid [3]*compute.Texture
	// potentialGrid is allocated on the first SamplePotential call.
	potentialGrid *compute.Texture

	computed       bool
	potentialReady bool
}

func NewPipeline(b compute.Backend, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pm: invalid pipeline config: %w", err)
	}
	o := buildOptions(opts)
	kernelOpts := []Option{WithLogger(o.logger)}

	p := &Pipeline{
		cfg:     cfg,
		backend: b,
		logger:  o.logger,
		timer:   o.timer,
	}

	var err error
	if p.deposit, err = NewDeposit(b, cfg.Layout, cfg.Bounds, cfg.Count, cfg.Assignment, kernelOpts...); err != nil {
		return nil, err
	}
	if p.fft, err = NewFFT(b, cfg.Layout, kernelOpts...); err != nil {
		return nil, err
	}
	if p.poisson, err = NewPoisson(b, cfg.Layout, cfg.Bounds, cfg.Poisson); err != nil {
		return nil, err
	}
	for a := 0; a < 3; a++ {
		if p.gradient[a], err = NewGradient(b, cfg.Layout, cfg.Bounds, a); err != nil {
			return nil, err
		}
	}
	if p.sample, err = NewForceSample(b, cfg.Layout, cfg.Bounds, cfg.Count, kernelOpts...); err != nil {
		return nil, err
	}

	w, h := cfg.Layout.Width(), cfg.Layout.Height()
	grids := []struct {
		dst    **compute.Texture
		name   string
		format compute.Format
	}{
		{&p.mass, "mass", compute.R32F},
		{&p.density, "density_spectrum", compute.RG32F},
		{&p.potential, "potential_spectrum", compute.RG32F},
		{&p.forceSpec, "force_spectrum", compute.RG32F},
		{&p.forceGrid[0], "force_x", compute.R32F},
		{&p.forceGrid[1], "force_y", compute.R32F},
		{&p.forceGrid[2], "force_z", compute.R32F},
	}
	for _, g := range grids {
		if *g.dst, err = b.NewTexture(g.name, w, h, g.format); err != nil {
			return nil, err
		}
	}

	p.logger.Debug("pm pipeline ready",
		"layout", cfg.Layout.String(),
		"assignment", cfg.Assignment.String(),
		"deconvolution", cfg.Poisson.DeconvolutionOrder,
		"split", cfg.Poisson.Split.Mode.String(),
		"fft_passes", p.fft.Passes(),
	)
	return p, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

func (p *Pipeline) Layout() atlas.Layout { return p.cfg.Layout }

// ComputeForces runs deposit, forward FFT, Poisson, three gradients, three
// inverse FFTs and force sampling. pos is the RGBA32F particle texture (xyz,
// mass); out receives accelerations with the given blend.
func (p *Pipeline) ComputeForces(pos, out *compute.Texture, blend compute.BlendMode) error {
	if pos == nil || out == nil {
		return ErrMissingTexture
	}

	p.phase("deposit")
	p.mass.Clear()
	if err := p.deposit.Run(compute.State{
		Inputs: []*compute.Texture{pos},
		Output: p.mass,
		Blend:  compute.BlendAdditive,
	}); err != nil {
		return err
	}

	p.phase("fft_forward")
	if err := p.fft.Forward(single(p.mass, p.density)); err != nil {
		return err
	}

	p.phase("poisson")
	if err := p.poisson.Run(single(p.density, p.potential)); err != nil {
		return err
	}

	for a := 0; a < 3; a++ {
		axis := string("xyz"[a])
		p.phase("gradient_" + axis)
		if err := p.gradient[a].Run(single(p.potential, p.forceSpec)); err != nil {
			return err
		}
		p.phase("fft_inverse_" + axis)
		if err := p.fft.Inverse(single(p.forceSpec, p.forceGrid[a])); err != nil {
			return err
		}
	}

	p.phase("force_sample")
	if err := p.sample.Run(compute.State{
		Inputs: []*compute.Texture{pos, p.forceGrid[0], p.forceGrid[1], p.forceGrid[2]},
		Output: out,
		Blend:  blend,
	}); err != nil {
		return err
	}

	p.computed = true
	p.potentialReady = false
	return nil
}

// GridMass sums the deposited mass grid of the last evaluation.
func (p *Pipeline) GridMass() float64 {
	var sum float64
	for _, v := range p.mass.Data {
		sum += float64(v)
	}
	return sum
}

// SamplePotential interpolates the real-space potential of the last
// evaluation at every particle position into out.
func (p *Pipeline) SamplePotential(pos *compute.Texture, out []float64) error {
	if !p.computed {
		return ErrNotComputed
	}
	if pos == nil {
		return ErrMissingTexture
	}
	if len(out) < p.cfg.Count {
		return fmt.Errorf("%w: potential buffer holds %d of %d particles", compute.ErrShape, len(out), p.cfg.Count)
	}

	if !p.potentialReady {
		if p.potentialGrid == nil {
			t, err := p.backend.NewTexture("potential", p.cfg.Layout.Width(), p.cfg.Layout.Height(), compute.R32F)
			if err != nil {
				return err
			}
			p.potentialGrid = t
		}
		p.phase("fft_inverse_potential")
		if err := p.fft.Inverse(single(p.potential, p.potentialGrid)); err != nil {
			return err
		}
		p.potentialReady = true
	}

	n := p.cfg.Layout.N
	for i := 0; i < p.cfg.Count; i++ {
		rec := pos.At(i)
		gx, gy, gz := p.cfg.Bounds.ToGrid(float64(rec[0]), float64(rec[1]), float64(rec[2]), n)
		out[i] = Trilinear(p.cfg.Layout, p.potentialGrid.Data, gx, gy, gz)
	}
	return nil
}

func (p *Pipeline) MassGrid() *compute.Texture { return p.mass }

func (p *Pipeline) DensitySpectrum() *compute.Texture { return p.density }

func (p *Pipeline) PotentialSpectrum() *compute.Texture { return p.potential }

// ForceGrid returns the real-space acceleration grid along axis.
func (p *Pipeline) ForceGrid(axis int) *compute.Texture { return p.forceGrid[axis] }

func (p *Pipeline) phase(name string) {
	if p.timer != nil {
		p.timer.StartPhase(name)
	}
}

func single(in, out *compute.Texture) compute.State {
	return compute.State{Inputs: []*compute.Texture{in}, Output: out}
}
