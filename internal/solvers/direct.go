package solvers

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pmgrav/internal/compute"
)

var (
	ErrParticleCount = errors.New("solvers: particle count must be positive")
	ErrSoftening     = errors.New("solvers: softening must not be negative")
	ErrSplitSigma    = errors.New("solvers: split sigma must be positive")
)

// Direct sums softened pair forces on the backend. With Sigma > 0 it keeps
// only the short-range complement of a Gaussian long-range split:
//
//	a = G·m·[erfc(r/(σ√2))/r² + √(2/π)/σ·exp(-r²/2σ²)/r]
type Direct struct {
	backend   compute.Backend
	count     int
	g         float64
	softening float64
	sigma     float64
	kernel    compute.PairKernel

	positions []float64
	masses    []float64
}

func NewDirect(b compute.Backend, count int, g, softening float64) (*Direct, error) {
	if count <= 0 {
		return nil, ErrParticleCount
	}
	if softening < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrSoftening, softening)
	}
	return &Direct{
		backend:   b,
		count:     count,
		g:         g,
		softening: softening,
		kernel:    compute.Newtonian,
		positions: make([]float64, 3*count),
		masses:    make([]float64, count),
	}, nil
}

// NewShortRange builds a Direct solver for the short-range part of a
// Gaussian split of width sigma.
func NewShortRange(b compute.Backend, count int, g, softening, sigma float64) (*Direct, error) {
	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrSplitSigma, sigma)
	}
	d, err := NewDirect(b, count, g, softening)
	if err != nil {
		return nil, err
	}
	d.sigma = sigma
	d.kernel = ShortRangeKernel(sigma)
	return d, nil
}

// ShortRangeKernel returns the pair kernel of the erfc-truncated force.
func ShortRangeKernel(sigma float64) compute.PairKernel {
	c := math.Sqrt(2/math.Pi) / sigma
	s2 := 2 * sigma * sigma
	return func(r2 float64) float64 {
		r := math.Sqrt(r2)
		return math.Erfc(r/(sigma*math.Sqrt2))/(r2*r) + c*math.Exp(-r2/s2)/r2
	}
}

func (d *Direct) Name() string {
	if d.sigma > 0 {
		return "direct_short"
	}
	return "direct"
}

func (d *Direct) ComputeForces(pos, out *compute.Texture, blend compute.BlendMode) error {
	if err := d.validate(pos, out); err != nil {
		return err
	}
	d.gather(pos)

	ax, ay, az := d.backend.DirectForces(d.positions, d.masses, d.g, d.softening, d.kernel)
	if blend == compute.BlendReplace {
		out.Clear()
	}
	for i := 0; i < d.count; i++ {
		rec := out.At(i)
		rec[0] += float32(ax[i])
		rec[1] += float32(ay[i])
		rec[2] += float32(az[i])
	}
	return nil
}

// SamplePotential writes φ_i = -G·Σ m_j·ψ(r_ij), with ψ = 1/r or the
// erfc-truncated 1/r of the short-range split.
func (d *Direct) SamplePotential(pos *compute.Texture, out []float64) error {
	if pos == nil {
		return fmt.Errorf("%w: positions", compute.ErrMissingInput)
	}
	if len(out) < d.count {
		return fmt.Errorf("%w: potential buffer holds %d of %d particles", compute.ErrShape, len(out), d.count)
	}
	d.gather(pos)
	eps2 := d.softening * d.softening
	p := d.positions

	d.backend.Dispatch(d.count, func(_, start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for j := 0; j < d.count; j++ {
				if i == j {
					continue
				}
				rx := p[j*3] - p[i*3]
				ry := p[j*3+1] - p[i*3+1]
				rz := p[j*3+2] - p[i*3+2]
				r2 := rx*rx + ry*ry + rz*rz + eps2
				if r2 == 0 {
					continue
				}
				r := math.Sqrt(r2)
				psi := 1 / r
				if d.sigma > 0 {
					psi = math.Erfc(r/(d.sigma*math.Sqrt2)) / r
				}
				sum += d.masses[j] * psi
			}
			out[i] = -d.g * sum
		}
	})
	return nil
}

func (d *Direct) validate(pos, out *compute.Texture) error {
	if pos == nil {
		return fmt.Errorf("%w: positions", compute.ErrMissingInput)
	}
	if out == nil {
		return compute.ErrMissingOutput
	}
	if pos == out {
		return fmt.Errorf("%w: %s", compute.ErrAliasing, out)
	}
	for _, t := range []*compute.Texture{pos, out} {
		if err := compute.ExpectFormat(t, compute.RGBA32F); err != nil {
			return err
		}
		if t.Texels() < d.count {
			return fmt.Errorf("%w: %s holds fewer than %d particles", compute.ErrShape, t, d.count)
		}
	}
	return nil
}

func (d *Direct) gather(pos *compute.Texture) {
	for i := 0; i < d.count; i++ {
		rec := pos.At(i)
		d.positions[i*3] = float64(rec[0])
		d.positions[i*3+1] = float64(rec[1])
		d.positions[i*3+2] = float64(rec[2])
		d.masses[i] = float64(rec[3])
	}
}
