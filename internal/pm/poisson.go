package pm

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

const (
	// windowFloor bounds the deconvolution divisor near the Nyquist corner.
	windowFloor = 1e-3
	// minK2 treats smaller |k|² as the DC bin.
	minK2 = 1e-10
)

type SplitMode int

const (
	SplitNone SplitMode = iota
	// SplitHard keeps modes with |k| ≤ KCut.
	SplitHard
	// SplitGaussian multiplies by exp(-½k²σ²).
	SplitGaussian
)

func (m SplitMode) String() string {
	switch m {
	case SplitNone:
		return "none"
	case SplitHard:
		return "hard"
	case SplitGaussian:
		return "gaussian"
	}
	return fmt.Sprintf("split(%d)", int(m))
}

func ParseSplitMode(s string) (SplitMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return SplitNone, nil
	case "hard":
		return SplitHard, nil
	case "gaussian":
		return SplitGaussian, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrSplit, s)
}

// Split selects the long-range part of the potential. KCut is a physical
// wavenumber (radians per world unit), Sigma a world length.
type Split struct {
	Mode  SplitMode
	KCut  float64
	Sigma float64
}

func (s Split) Validate() error {
	switch s.Mode {
	case SplitNone:
		return nil
	case SplitHard:
		if !(s.KCut > 0) {
			return fmt.Errorf("%w: k_cut must be positive, got %v", ErrSplit, s.KCut)
		}
		return nil
	case SplitGaussian:
		if !(s.Sigma > 0) {
			return fmt.Errorf("%w: sigma must be positive, got %v", ErrSplit, s.Sigma)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSplit, s.Mode)
}

func (s Split) factor(k2 float64) float64 {
	switch s.Mode {
	case SplitHard:
		if math.Sqrt(k2) > s.KCut {
			return 0
		}
	case SplitGaussian:
		return math.Exp(-0.5 * k2 * s.Sigma * s.Sigma)
	}
	return 1
}

type PoissonParams struct {
	// G is the source coefficient: ∇²φ = G·ρ. Use 4π times the Newtonian
	// constant for physical units.
	G float64
	// DeconvolutionOrder divides out the assignment window sinc^order.
	// 0 disables it; 1 matches NGP, 2 CIC.
	DeconvolutionOrder int
	// DiscreteLaplacian uses the finite-difference eigenvalues
	// (2/Δx)·sin(πk/N) in place of 2πk/L.
	DiscreteLaplacian bool
	Split             Split
	// Smoothing is the width, in voxels, of a Gaussian low-pass
	// exp(-½k²(sΔx)²) applied only without a split. 0 disables it.
	Smoothing float64
}

func (p PoissonParams) Validate() error {
	if p.DeconvolutionOrder < 0 || p.DeconvolutionOrder > 3 {
		return fmt.Errorf("%w: got %d", ErrDeconvolutionOrder, p.DeconvolutionOrder)
	}
	if p.Smoothing < 0 || math.IsNaN(p.Smoothing) || math.IsInf(p.Smoothing, 0) {
		return fmt.Errorf("%w: got %v", ErrSmoothing, p.Smoothing)
	}
	return p.Split.Validate()
}

// Poisson turns a density spectrum into a potential spectrum:
//
//	φ(k) = -G·ρ(k) / (k²·W(k)),  φ(0) = 0
//
// where ρ is mass per voxel volume and W the assignment window, floored.
// Input and output are RG32F grid atlases.
type Poisson struct {
	backend compute.Backend
	layout  atlas.Layout
	params  PoissonParams
	waves   *Wavenumbers
	// cell is the voxel edge length per axis.
	cell [3]float64
	// massToDensity converts deposited mass per voxel to density.
	massToDensity float64
}

func NewPoisson(b compute.Backend, layout atlas.Layout, bounds particles.Bounds, params PoissonParams) (*Poisson, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	size := bounds.Size()
	fn := float64(layout.N)
	return &Poisson{
		backend:       b,
		layout:        layout,
		params:        params,
		waves:         NewWavenumbers(layout, bounds),
		cell:          [3]float64{size.X / fn, size.Y / fn, size.Z / fn},
		massToDensity: 1 / bounds.CellVolume(layout.N),
	}, nil
}

func (p *Poisson) Params() PoissonParams { return p.params }

// Window returns the floored deconvolution window at bin (i, j, l).
func (p *Poisson) Window(i, j, l int) float64 {
	order := p.params.DeconvolutionOrder
	if order == 0 {
		return 1
	}
	s := p.waves.Sinc[i] * p.waves.Sinc[j] * p.waves.Sinc[l]
	w := 1.0
	for o := 0; o < order; o++ {
		w *= s
	}
	return math.Max(w, windowFloor)
}

// K2 returns |k|² at bin (i, j, l) under the configured Laplacian.
func (p *Poisson) K2(i, j, l int) float64 {
	k := &p.waves.K
	if p.params.DiscreteLaplacian {
		k = &p.waves.KEff
	}
	return k[0][i]*k[0][i] + k[1][j]*k[1][j] + k[2][l]*k[2][l]
}

// Filter returns the smoothing factor at bin (i, j, l). It is 1 when a
// split is configured or smoothing is off.
func (p *Poisson) Filter(i, j, l int) float64 {
	s := p.params.Smoothing
	if s == 0 || p.params.Split.Mode != SplitNone {
		return 1
	}
	k := &p.waves.K
	tx := k[0][i] * p.cell[0]
	ty := k[1][j] * p.cell[1]
	tz := k[2][l] * p.cell[2]
	return math.Exp(-0.5 * s * s * (tx*tx + ty*ty + tz*tz))
}

// Green returns the real multiplier applied to ρ(k) at bin (i, j, l),
// including the split and smoothing factors. It is zero at DC.
func (p *Poisson) Green(i, j, l int) float64 {
	k2 := p.K2(i, j, l)
	if k2 < minK2 {
		return 0
	}
	f := p.params.Split.factor(k2) * p.Filter(i, j, l)
	return -p.params.G * p.massToDensity * f / (k2 * p.Window(i, j, l))
}

func (p *Poisson) Run(st compute.State) error {
	if err := st.Validate(1); err != nil {
		return kernelErr("poisson", err)
	}
	if err := checkGrid(st.Inputs[0], p.layout, compute.RG32F); err != nil {
		return kernelErr("poisson", err)
	}
	if err := checkGrid(st.Output, p.layout, compute.RG32F); err != nil {
		return kernelErr("poisson", err)
	}
	in, out := st.Inputs[0].Data, st.Output.Data
	n := p.layout.N

	p.backend.Dispatch(n, func(_, start, end int) {
		p.layout.ForEachVoxel(start, end, func(x, y, z, idx int) {
			g := p.Green(x, y, z)
			c := idx * 2
			out[c] = float32(float64(in[c]) * g)
			out[c+1] = float32(float64(in[c+1]) * g)
		})
	})
	return nil
}
