package particles

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrInvalidBounds = errors.New("particles: world bounds must have positive extent on every axis")

// Bounds is the axis-aligned world box mapped onto grid coordinates [0, N).
// Each axis scales independently.
type Bounds struct {
	Min r3.Vec
	Max r3.Vec
}

func NewBounds(min, max [3]float64) Bounds {
	return Bounds{
		Min: r3.Vec{X: min[0], Y: min[1], Z: min[2]},
		Max: r3.Vec{X: max[0], Y: max[1], Z: max[2]},
	}
}

// Cube returns the box [-half, half]³.
func Cube(half float64) Bounds {
	return Bounds{
		Min: r3.Vec{X: -half, Y: -half, Z: -half},
		Max: r3.Vec{X: half, Y: half, Z: half},
	}
}

func (b Bounds) Validate() error {
	s := b.Size()
	if !(s.X > 0) || !(s.Y > 0) || !(s.Z > 0) {
		return fmt.Errorf("%w: min=%v max=%v", ErrInvalidBounds, b.Min, b.Max)
	}
	return nil
}

func (b Bounds) Size() r3.Vec { return r3.Sub(b.Max, b.Min) }

func (b Bounds) Center() r3.Vec { return r3.Scale(0.5, r3.Add(b.Min, b.Max)) }

// Extent returns the size along axis 0, 1 or 2.
func (b Bounds) Extent(axis int) float64 {
	s := b.Size()
	switch axis {
	case 0:
		return s.X
	case 1:
		return s.Y
	}
	return s.Z
}

// ToGrid maps a world position to continuous grid coordinates in [0, n).
func (b Bounds) ToGrid(x, y, z float64, n int) (gx, gy, gz float64) {
	s := b.Size()
	fn := float64(n)
	gx = (x - b.Min.X) / s.X * fn
	gy = (y - b.Min.Y) / s.Y * fn
	gz = (z - b.Min.Z) / s.Z * fn
	return
}

// CellVolume is the world volume of one voxel of an n³ grid.
func (b Bounds) CellVolume(n int) float64 {
	s := b.Size()
	fn := float64(n)
	return (s.X / fn) * (s.Y / fn) * (s.Z / fn)
}

func (b Bounds) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
