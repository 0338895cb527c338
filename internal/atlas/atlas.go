// Package atlas maps 3D grid voxels and 1D particle indices onto 2D textures.
//
// A grid of N×N×N voxels is stored as tiles of N×N z-slices, S tiles per row:
//
//	tile(z) = (z % S, z / S)
//	texel   = (tile.x*N + x, tile.y*N + y)
//
// The atlas is N·S texels wide and N·ceil(N/S) texels high. When S does not
// divide N the last row of tiles is partially filled and its unused texels are
// never addressed.
//
// A Layout is fixed for the lifetime of a pipeline: every kernel that touches a
// grid shares the same value, so voxel addressing cannot drift between passes.
package atlas

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrNotPowerOfTwo  = errors.New("atlas: grid size must be a power of two >= 2")
	ErrSlicesPerRow   = errors.New("atlas: slices per row must be in [1, N]")
	ErrParticleCount  = errors.New("atlas: particle count must be positive")
	ErrVoxelOutOfGrid = errors.New("atlas: voxel outside grid")
)

type Layout struct {
	N            int
	SlicesPerRow int
}

func New(n, slicesPerRow int) (Layout, error) {
	if !IsPowerOfTwo(n) || n < 2 {
		return Layout{}, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, n)
	}
	if slicesPerRow < 1 || slicesPerRow > n {
		return Layout{}, fmt.Errorf("%w: got %d for N=%d", ErrSlicesPerRow, slicesPerRow, n)
	}
	return Layout{N: n, SlicesPerRow: slicesPerRow}, nil
}

// MustNew is New for layouts known to be valid at compile time.
func MustNew(n, slicesPerRow int) Layout {
	l, err := New(n, slicesPerRow)
	if err != nil {
		panic(err)
	}
	return l
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}

func (l Layout) TileRows() int {
	return (l.N + l.SlicesPerRow - 1) / l.SlicesPerRow
}

func (l Layout) Width() int  { return l.N * l.SlicesPerRow }
func (l Layout) Height() int { return l.N * l.TileRows() }

// Voxels is N³.
func (l Layout) Voxels() int { return l.N * l.N * l.N }

// Stages is the number of radix-2 butterfly passes per axis.
func (l Layout) Stages() int { return Log2(l.N) }

func (l Layout) VoxelToTexel(x, y, z int) (tx, ty int) {
	sliceRow := z / l.SlicesPerRow
	sliceCol := z % l.SlicesPerRow
	return sliceCol*l.N + x, sliceRow*l.N + y
}

// TexelToVoxel inverts VoxelToTexel. ok is false for texels that belong to no
// tile, including the unused tail of a partially filled last row.
func (l Layout) TexelToVoxel(tx, ty int) (x, y, z int, ok bool) {
	if tx < 0 || ty < 0 || tx >= l.Width() || ty >= l.Height() {
		return 0, 0, 0, false
	}
	sliceCol := tx / l.N
	sliceRow := ty / l.N
	z = sliceRow*l.SlicesPerRow + sliceCol
	if z >= l.N {
		return 0, 0, 0, false
	}
	return tx % l.N, ty % l.N, z, true
}

// Index returns the flat texel index (row-major over the atlas) of a voxel.
func (l Layout) Index(x, y, z int) int {
	tx, ty := l.VoxelToTexel(x, y, z)
	return ty*l.Width() + tx
}

// Contains reports whether the voxel lies inside the grid.
func (l Layout) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < l.N && y < l.N && z < l.N
}

// Clamp clamps a single voxel coordinate into [0, N-1].
func (l Layout) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= l.N {
		return l.N - 1
	}
	return i
}

// ForEachVoxel visits voxels with z in [zStart, zEnd) in x-fastest order.
func (l Layout) ForEachVoxel(zStart, zEnd int, fn func(x, y, z, idx int)) {
	for z := zStart; z < zEnd; z++ {
		for y := 0; y < l.N; y++ {
			base := l.Index(0, y, z)
			for x := 0; x < l.N; x++ {
				fn(x, y, z, base+x)
			}
		}
	}
}

func (l Layout) String() string {
	return fmt.Sprintf("%d^3 (S=%d, %dx%d)", l.N, l.SlicesPerRow, l.Width(), l.Height())
}
