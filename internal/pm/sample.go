package pm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

// ForceSample interpolates three real force grids at particle positions.
//
// Inputs: 0 the RGBA32F particle texture, 1-3 the R32F x, y, z force grids.
// The output is an RGBA32F texture in particle layout with the fourth channel
// unused. Replace clears the output first, Additive accumulates onto it.
type ForceSample struct {
	backend  compute.Backend
	layout   atlas.Layout
	bounds   particles.Bounds
	count    int
	logger   *slog.Logger
	warnOnce sync.Once
}

func NewForceSample(b compute.Backend, layout atlas.Layout, bounds particles.Bounds, count int, opts ...Option) (*ForceSample, error) {
	if count <= 0 {
		return nil, ErrParticleCount
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &ForceSample{
		backend: b,
		layout:  layout,
		bounds:  bounds,
		count:   count,
		logger:  o.logger,
	}, nil
}

func (s *ForceSample) Run(st compute.State) error {
	if err := s.validate(st); err != nil {
		return kernelErr("force_sample", err)
	}
	pos := st.Inputs[0]
	grids := [3][]float32{st.Inputs[1].Data, st.Inputs[2].Data, st.Inputs[3].Data}
	out := st.Output

	additive := st.Blend == compute.BlendAdditive
	if additive && !s.backend.SupportsAdditiveBlend() {
		s.warnOnce.Do(func() {
			s.logger.Warn("additive blending unavailable, sampled forces overwrite output", "backend", s.backend.Name())
		})
		additive = false
	}
	if !additive {
		out.Clear()
	}

	s.backend.Dispatch(s.count, func(_, start, end int) {
		for i := start; i < end; i++ {
			p := pos.At(i)
			gx, gy, gz := s.bounds.ToGrid(float64(p[0]), float64(p[1]), float64(p[2]), s.layout.N)
			rec := out.At(i)
			for a := 0; a < 3; a++ {
				v := float32(Trilinear(s.layout, grids[a], gx, gy, gz))
				if additive {
					rec[a] += v
				} else {
					rec[a] = v
				}
			}
		}
	})
	return nil
}

func (s *ForceSample) validate(st compute.State) error {
	if err := st.Validate(4); err != nil {
		return err
	}
	if st.Blend != compute.BlendReplace && st.Blend != compute.BlendAdditive {
		return fmt.Errorf("%w: %v", compute.ErrBlendMode, st.Blend)
	}
	if err := compute.ExpectFormat(st.Inputs[0], compute.RGBA32F); err != nil {
		return err
	}
	if st.Inputs[0].Texels() < s.count {
		return fmt.Errorf("%w: %s holds fewer than %d particles", compute.ErrShape, st.Inputs[0], s.count)
	}
	for a := 1; a <= 3; a++ {
		if err := checkGrid(st.Inputs[a], s.layout, compute.R32F); err != nil {
			return err
		}
	}
	if err := compute.ExpectFormat(st.Output, compute.RGBA32F); err != nil {
		return err
	}
	if st.Output.Texels() < s.count {
		return fmt.Errorf("%w: %s holds fewer than %d particles", compute.ErrShape, st.Output, s.count)
	}
	return nil
}

// Trilinear samples an R32F grid at continuous grid coordinates, clamping
// neighbour indices to the grid. Interpolation runs along x, then y, then z.
func Trilinear(layout atlas.Layout, grid []float32, gx, gy, gz float64) float64 {
	x0, fx := cellFrac(gx, layout.N)
	y0, fy := cellFrac(gy, layout.N)
	z0, fz := cellFrac(gz, layout.N)
	x1, y1, z1 := layout.Clamp(x0+1), layout.Clamp(y0+1), layout.Clamp(z0+1)
	x0, y0, z0 = layout.Clamp(x0), layout.Clamp(y0), layout.Clamp(z0)

	at := func(x, y, z int) float64 { return float64(grid[layout.Index(x, y, z)]) }

	c00 := lerp(at(x0, y0, z0), at(x1, y0, z0), fx)
	c10 := lerp(at(x0, y1, z0), at(x1, y1, z0), fx)
	c01 := lerp(at(x0, y0, z1), at(x1, y0, z1), fx)
	c11 := lerp(at(x0, y1, z1), at(x1, y1, z1), fx)

	c0 := lerp(c00, c10, fy)
	c1 := lerp(c01, c11, fy)
	return lerp(c0, c1, fz)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
