package export

import (
	"strings"
	"testing"

	"github.com/san-kum/pmgrav/internal/viz"
)

func TestCanvasSVG(t *testing.T) {
	cv := viz.NewCanvas(2, 1)
	cv.Set(0, 0)
	cv.Set(3, 2)

	svg := CanvasSVG(cv, 10, viz.ThemeOcean)
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `width="40" height="40"`) {
		t.Error("expected a 40x40 image")
	}
	if !strings.Contains(svg, `cx="35.0" cy="25.0"`) {
		t.Error("expected the second dot at (35, 25)")
	}
	if !strings.Contains(svg, string(viz.ThemeOcean.Accent)) {
		t.Error("expected the theme accent colour")
	}
	if CanvasSVG(nil, 1, viz.ThemeOcean) != "" {
		t.Error("expected empty output for a nil canvas")
	}
}

func TestDensitySVG(t *testing.T) {
	grid := [][]int{{0, 4}, {1, 0}}
	svg := DensitySVG(grid, 5, viz.ThemeCyberpunk)
	if n := strings.Count(svg, "<rect x="); n != 2 {
		t.Errorf("expected 2 cells, got %d", n)
	}
	if !strings.Contains(svg, `fill-opacity="1.000"`) || !strings.Contains(svg, `fill-opacity="0.500"`) {
		t.Error("expected square-root opacities 1 and 0.5")
	}
	if DensitySVG(nil, 1, viz.ThemeCyberpunk) != "" {
		t.Error("expected empty output for an empty grid")
	}
}

func TestSeriesSVG(t *testing.T) {
	svg := SeriesSVG([]float64{0, 1}, 100, 120, "#fff")
	if !strings.Contains(svg, `d="M0.0,110.0 L100.0,10.0"`) {
		t.Errorf("unexpected path in %s", svg)
	}
	if SeriesSVG([]float64{1}, 10, 10, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
}
