package solvers

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/pm"
)

// PM adapts a particle-mesh pipeline to the solver interface.
type PM struct {
	*pm.Pipeline
}

func NewPM(b compute.Backend, cfg pm.Config, opts ...pm.Option) (*PM, error) {
	p, err := pm.NewPipeline(b, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &PM{Pipeline: p}, nil
}

func (p *PM) Name() string {
	if p.Config().Poisson.Split.Mode != pm.SplitNone {
		return "pm_long"
	}
	return "pm"
}

// Split adds a PM long-range force onto a direct short-range one. The short
// pass takes the caller's blend; the long pass always accumulates.
type Split struct {
	short *Direct
	long  *PM
	phi   []float64
}

func NewSplit(short *Direct, long *PM) (*Split, error) {
	if short.count != long.Config().Count {
		return nil, fmt.Errorf("%w: short range has %d particles, long range %d", ErrParticleCount, short.count, long.Config().Count)
	}
	return &Split{short: short, long: long, phi: make([]float64, short.count)}, nil
}

func (s *Split) Name() string { return "split" }

func (s *Split) Short() *Direct { return s.short }
func (s *Split) Long() *PM      { return s.long }

func (s *Split) ComputeForces(pos, out *compute.Texture, blend compute.BlendMode) error {
	if err := s.short.ComputeForces(pos, out, blend); err != nil {
		return fmt.Errorf("solvers: short range: %w", err)
	}
	if err := s.long.ComputeForces(pos, out, compute.BlendAdditive); err != nil {
		return fmt.Errorf("solvers: long range: %w", err)
	}
	return nil
}

func (s *Split) SamplePotential(pos *compute.Texture, out []float64) error {
	if err := s.long.SamplePotential(pos, out); err != nil {
		return err
	}
	if err := s.short.SamplePotential(pos, s.phi); err != nil {
		return err
	}
	for i := range s.phi {
		out[i] += s.phi[i]
	}
	return nil
}

func (s *Split) GridMass() float64 { return s.long.GridMass() }
