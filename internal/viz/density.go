package viz

import (
	"math"
	"strings"

	"github.com/san-kum/pmgrav/internal/particles"
	"gonum.org/v1/gonum/spatial/r3"
)

// shades runs from empty to densest.
var shades = []rune(" .:-=+*#%@")

// DensityMap counts points in a w x h column-density projection along axis
// (0=x, 1=y, 2=z). Rows run top to bottom.
func DensityMap(pts []r3.Vec, b particles.Bounds, w, h, axis int) [][]int {
	grid := make([][]int, h)
	for i := range grid {
		grid[i] = make([]int, w)
	}
	u, v := (axis+1)%3, (axis+2)%3
	if axis == 1 {
		u, v = 0, 2
	}
	eu, ev := b.Extent(u), b.Extent(v)
	if eu <= 0 || ev <= 0 {
		return grid
	}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}

	for _, p := range pts {
		c := [3]float64{p.X, p.Y, p.Z}
		col := int((c[u] - lo[u]) / eu * float64(w))
		row := h - 1 - int((c[v]-lo[v])/ev*float64(h))
		if col < 0 || col >= w || row < 0 || row >= h {
			continue
		}
		grid[row][col]++
	}
	return grid
}

// RenderDensity shades a density grid on a square-root scale.
func RenderDensity(grid [][]int) string {
	peak := 0
	for _, row := range grid {
		for _, n := range row {
			if n > peak {
				peak = n
			}
		}
	}

	var b strings.Builder
	for _, row := range grid {
		for _, n := range row {
			b.WriteRune(shade(n, peak))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func shade(n, peak int) rune {
	if n <= 0 || peak <= 0 {
		return shades[0]
	}
	idx := 1 + int(float64(len(shades)-2)*math.Sqrt(float64(n)/float64(peak))+0.5)
	if idx >= len(shades) {
		idx = len(shades) - 1
	}
	return shades[idx]
}
