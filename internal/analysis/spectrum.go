package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/pm"
)

var ErrEmptySpectrum = errors.New("analysis: spectrum has no DC component")

// PowerBin is one spherical shell of the power spectrum.
type PowerBin struct {
	Shell int
	// K is the mean physical wavenumber of the modes in the shell.
	K     float64
	Power float64
	Modes int
}

// RadialPowerSpectrum averages V·|δ_k|² over shells of integer grid radius
// 1..bins. bins ≤ 0 selects N/2.
func RadialPowerSpectrum(layout atlas.Layout, bounds particles.Bounds, spectrum *compute.Texture, bins int) ([]PowerBin, error) {
	if spectrum == nil {
		return nil, fmt.Errorf("analysis: %w", compute.ErrMissingInput)
	}
	if err := compute.ExpectFormat(spectrum, compute.RG32F); err != nil {
		return nil, err
	}
	if spectrum.Width != layout.Width() || spectrum.Height != layout.Height() {
		return nil, fmt.Errorf("%w: spectrum %dx%d, layout %dx%d",
			compute.ErrShape, spectrum.Width, spectrum.Height, layout.Width(), layout.Height())
	}

	n := layout.N
	if bins <= 0 || bins > n/2 {
		bins = n / 2
	}

	dc := spectrum.At(layout.Index(0, 0, 0))
	norm := math.Hypot(float64(dc[0]), float64(dc[1]))
	if norm == 0 {
		return nil, ErrEmptySpectrum
	}

	w := pm.NewWavenumbers(layout, bounds)
	size := bounds.Size()
	volume := size.X * size.Y * size.Z

	out := make([]PowerBin, bins)
	for i := range out {
		out[i].Shell = i + 1
	}

	layout.ForEachVoxel(0, n, func(x, y, z, idx int) {
		fx, fy, fz := w.Fold[x], w.Fold[y], w.Fold[z]
		shell := int(math.Round(math.Sqrt(float64(fx*fx + fy*fy + fz*fz))))
		if shell < 1 || shell > bins {
			return
		}
		c := spectrum.At(idx)
		re, im := float64(c[0])/norm, float64(c[1])/norm
		k := math.Sqrt(w.K[0][x]*w.K[0][x] + w.K[1][y]*w.K[1][y] + w.K[2][z]*w.K[2][z])

		b := &out[shell-1]
		b.Power += volume * (re*re + im*im)
		b.K += k
		b.Modes++
	})

	for i := range out {
		if out[i].Modes > 0 {
			out[i].Power /= float64(out[i].Modes)
			out[i].K /= float64(out[i].Modes)
		}
	}
	return out, nil
}
