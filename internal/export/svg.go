package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pmgrav/internal/viz"
)

const background = "#0a0a0a"

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// CanvasSVG draws every set dot of a Braille canvas as a circle, scale
// pixels apart.
func CanvasSVG(canvas *viz.Canvas, scale float64, theme viz.Theme) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.Dots()

	var sb strings.Builder
	header(&sb, float64(w)*scale, float64(h)*scale)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", theme.Accent)

	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// DensitySVG renders a density projection as a heat map, opacity on the
// same square-root scale as the terminal view.
func DensitySVG(grid [][]int, cell float64, theme viz.Theme) string {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return ""
	}
	peak := 0
	for _, row := range grid {
		for _, n := range row {
			peak = max(peak, n)
		}
	}

	var sb strings.Builder
	header(&sb, float64(len(grid[0]))*cell, float64(len(grid))*cell)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", theme.Primary)
	for row, cells := range grid {
		for col, n := range cells {
			if n == 0 {
				continue
			}
			fmt.Fprintf(&sb, "<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" fill-opacity=\"%.3f\"/>\n",
				float64(col)*cell, float64(row)*cell, cell, cell, math.Sqrt(float64(n)/float64(peak)))
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesSVG plots values against their index as a polyline with 10%
// vertical padding.
func SeriesSVG(values []float64, width, height int, stroke string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY, maxY = math.Min(minY, v), math.Max(maxY, v)
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)

	last := float64(len(values) - 1)
	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
