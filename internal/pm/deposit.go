package pm

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

// maxScratchGrids bounds the private grids of the blend emulation.
const maxScratchGrids = 8

type Assignment int

const (
	// NGP deposits each particle into its nearest voxel.
	NGP Assignment = iota + 1
	// CIC spreads each particle over its 8 neighbouring voxels with
	// trilinear weights.
	CIC
)

func (a Assignment) String() string {
	switch a {
	case NGP:
		return "ngp"
	case CIC:
		return "cic"
	}
	return fmt.Sprintf("assignment(%d)", int(a))
}

func ParseAssignment(s string) (Assignment, error) {
	switch strings.ToLower(s) {
	case "ngp":
		return NGP, nil
	case "cic":
		return CIC, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrAssignment, s)
}

// Deposit accumulates particle mass onto an R32F grid atlas.
//
// Input 0 is the RGBA32F particle texture (xyz, mass). The output is never
// cleared here: the kernel requires additive blending and callers clear the
// grid once per step.
type Deposit struct {
	backend compute.Backend
	layout  atlas.Layout
	bounds  particles.Bounds
	count   int
	assign  Assignment
	logger  *slog.Logger

	// private grids, borrowed by one dispatch chunk at a time through free
	// and summed into the output after the splat
	scratch  [][]float32
	free     chan []float32
	warnOnce sync.Once
}

func NewDeposit(b compute.Backend, layout atlas.Layout, bounds particles.Bounds, count int, assign Assignment, opts ...Option) (*Deposit, error) {
	if count <= 0 {
		return nil, ErrParticleCount
	}
	if assign != NGP && assign != CIC {
		return nil, fmt.Errorf("%w: %v", ErrAssignment, assign)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	d := &Deposit{
		backend: b,
		layout:  layout,
		bounds:  bounds,
		count:   count,
		assign:  assign,
		logger:  o.logger,
	}
	if b.SupportsAdditiveBlend() {
		texels := layout.Width() * layout.Height()
		grids := max(1, min(b.Workers(), maxScratchGrids))
		d.scratch = make([][]float32, grids)
		d.free = make(chan []float32, grids)
		for i := range d.scratch {
			d.scratch[i] = make([]float32, texels)
			d.free <- d.scratch[i]
		}
	}
	return d, nil
}

func (d *Deposit) Assignment() Assignment { return d.assign }

func (d *Deposit) Run(st compute.State) error {
	if err := d.validate(st); err != nil {
		return kernelErr("deposit", err)
	}
	pos := st.Inputs[0]
	out := st.Output

	if !d.backend.SupportsAdditiveBlend() {
		d.warnOnce.Do(func() {
			d.logger.Warn("additive blending unavailable, depositing serially", "backend", d.backend.Name())
		})
		for i := 0; i < d.count; i++ {
			d.splat(out.Data, pos.At(i))
		}
		return nil
	}

	d.backend.Dispatch(d.count, func(_, start, end int) {
		acc := <-d.free
		for i := start; i < end; i++ {
			d.splat(acc, pos.At(i))
		}
		d.free <- acc
	})

	// Blend: out += Σ scratch, leaving every scratch grid zeroed for the
	// next run.
	d.backend.Dispatch(len(out.Data), func(_, start, end int) {
		for _, acc := range d.scratch {
			for i := start; i < end; i++ {
				if acc[i] != 0 {
					out.Data[i] += acc[i]
					acc[i] = 0
				}
			}
		}
	})
	return nil
}

func (d *Deposit) validate(st compute.State) error {
	if err := st.Validate(1); err != nil {
		return err
	}
	if st.Blend != compute.BlendAdditive {
		return fmt.Errorf("%w: deposit needs additive, got %v", compute.ErrBlendMode, st.Blend)
	}
	if err := compute.ExpectFormat(st.Inputs[0], compute.RGBA32F); err != nil {
		return err
	}
	if st.Inputs[0].Texels() < d.count {
		return fmt.Errorf("%w: %s holds fewer than %d particles", compute.ErrShape, st.Inputs[0], d.count)
	}
	return checkGrid(st.Output, d.layout, compute.R32F)
}

func (d *Deposit) splat(acc []float32, rec []float32) {
	m := rec[3]
	if m == 0 {
		return
	}
	n := d.layout.N
	gx, gy, gz := d.bounds.ToGrid(float64(rec[0]), float64(rec[1]), float64(rec[2]), n)

	if d.assign == NGP {
		acc[d.layout.Index(nearestCell(gx, n), nearestCell(gy, n), nearestCell(gz, n))] += m
		return
	}

	x0, fx := cellFrac(gx, n)
	y0, fy := cellFrac(gy, n)
	z0, fz := cellFrac(gz, n)
	wx := [2]float64{1 - fx, fx}
	wy := [2]float64{1 - fy, fy}
	wz := [2]float64{1 - fz, fz}

	for dz := 0; dz < 2; dz++ {
		z := d.layout.Clamp(z0 + dz)
		for dy := 0; dy < 2; dy++ {
			y := d.layout.Clamp(y0 + dy)
			wyz := wy[dy] * wz[dz]
			for dx := 0; dx < 2; dx++ {
				x := d.layout.Clamp(x0 + dx)
				acc[d.layout.Index(x, y, z)] += m * float32(wx[dx]*wyz)
			}
		}
	}
}

// nearestCell floors a grid coordinate into [0, n-1].
func nearestCell(g float64, n int) int {
	return int(math.Floor(clampCoord(g, 0, float64(n-1))))
}

// cellFrac splits a grid coordinate, clamped to [-1, n], into its base cell
// and the fractional offset inside it.
func cellFrac(g float64, n int) (int, float64) {
	g = clampCoord(g, -1, float64(n))
	f := math.Floor(g)
	return int(f), g - f
}

// clampCoord clamps before any int conversion so far and infinite
// coordinates land on their own side of the grid. NaN maps to lo.
func clampCoord(g, lo, hi float64) float64 {
	switch {
	case math.IsNaN(g), g < lo:
		return lo
	case g > hi:
		return hi
	}
	return g
}

func checkGrid(t *compute.Texture, layout atlas.Layout, format compute.Format) error {
	if err := compute.ExpectFormat(t, format); err != nil {
		return err
	}
	if t.Width != layout.Width() || t.Height != layout.Height() {
		return fmt.Errorf("%w: %s for %v", ErrLayoutMismatch, t, layout)
	}
	return nil
}
