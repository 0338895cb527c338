package pm

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
)

// Gradient computes one force component in Fourier space:
//
//	F(k) = -i·k_axis·φ(k),  Re F = k·Im φ,  Im F = -k·Re φ
//
// The Nyquist plane along the differentiated axis is zeroed so the inverse
// transform is real.
type Gradient struct {
	backend compute.Backend
	layout  atlas.Layout
	axis    int
	k       []float64
}

func NewGradient(b compute.Backend, layout atlas.Layout, bounds particles.Bounds, axis int) (*Gradient, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("%w: got %d", ErrAxis, axis)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	waves := NewWavenumbers(layout, bounds)
	k := make([]float64, layout.N)
	for idx := range k {
		if !waves.IsNyquist(idx) {
			k[idx] = waves.K[axis][idx]
		}
	}
	return &Gradient{backend: b, layout: layout, axis: axis, k: k}, nil
}

func (g *Gradient) Axis() int { return g.axis }

func (g *Gradient) Run(st compute.State) error {
	if err := st.Validate(1); err != nil {
		return kernelErr("gradient", err)
	}
	if err := checkGrid(st.Inputs[0], g.layout, compute.RG32F); err != nil {
		return kernelErr("gradient", err)
	}
	if err := checkGrid(st.Output, g.layout, compute.RG32F); err != nil {
		return kernelErr("gradient", err)
	}
	in, out := st.Inputs[0].Data, st.Output.Data

	g.backend.Dispatch(g.layout.N, func(_, start, end int) {
		g.layout.ForEachVoxel(start, end, func(x, y, z, idx int) {
			var k float64
			switch g.axis {
			case 0:
				k = g.k[x]
			case 1:
				k = g.k[y]
			default:
				k = g.k[z]
			}
			c := idx * 2
			re, im := float64(in[c]), float64(in[c+1])
			out[c] = float32(im * k)
			out[c+1] = float32(-re * k)
		})
	})
	return nil
}
