package viz

import (
	"math"

	"github.com/san-kum/pmgrav/internal/particles"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera orbits the world centre and projects points onto a canvas.
type Camera struct {
	Center           r3.Vec
	Radius           float64
	RotX, RotY, RotZ float64
	Zoom             float64
	// Distance from the centre to the eye, in units of Radius.
	Distance float64
}

// NewCamera frames the given world bounds.
func NewCamera(b particles.Bounds) *Camera {
	return &Camera{
		Center:   b.Center(),
		Radius:   0.5 * r3.Norm(b.Size()),
		Zoom:     1,
		Distance: 4,
	}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Rotate applies the X, Y then Z rotations about the centre.
func (c *Camera) Rotate(p r3.Vec) r3.Vec {
	p = r3.Sub(p, c.Center)
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project maps a world point to canvas dots with perspective. The last
// result reports whether the point lands on a canvas sw x sh dots large.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, bool) {
	if c.Radius <= 0 {
		return 0, 0, false
	}
	rot := r3.Scale(c.Zoom/c.Radius, c.Rotate(p))
	dist := c.Distance
	if rot.Z >= dist-0.1 {
		return 0, 0, false
	}
	scale := dist / (dist - rot.Z)
	half := 0.5 * math.Min(float64(sw), float64(sh))
	sx := int(math.Round(rot.X*scale*half)) + sw/2
	sy := int(math.Round(-rot.Y*scale*half)) + sh/2
	return sx, sy, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// DrawPoints plots every visible point.
func (c *Camera) DrawPoints(cv *Canvas, pts []r3.Vec) int {
	w, h := cv.Dots()
	drawn := 0
	for _, p := range pts {
		if x, y, ok := c.Project(p, w, h); ok {
			cv.Set(x, y)
			drawn++
		}
	}
	return drawn
}

// DrawBox outlines the world bounds.
func (c *Camera) DrawBox(cv *Canvas, b particles.Bounds) {
	lo, hi := b.Min, b.Max
	v := [8]r3.Vec{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	edges := [12][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}

	w, h := cv.Dots()
	for _, e := range edges {
		x0, y0, ok0 := c.Project(v[e[0]], w, h)
		x1, y1, ok1 := c.Project(v[e[1]], w, h)
		if ok0 && ok1 {
			cv.DrawLine(x0, y0, x1, y1)
		}
	}
}
