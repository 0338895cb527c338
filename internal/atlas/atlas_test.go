package atlas

import (
	"errors"
	"testing"
)

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		n, s int
		want error
	}{
		{"zero", 0, 1, ErrNotPowerOfTwo},
		{"one", 1, 1, ErrNotPowerOfTwo},
		{"not power of two", 12, 4, ErrNotPowerOfTwo},
		{"negative", -8, 2, ErrNotPowerOfTwo},
		{"zero slices", 8, 0, ErrSlicesPerRow},
		{"too many slices", 8, 9, ErrSlicesPerRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.n, tt.s)
			if !errors.Is(err, tt.want) {
				t.Errorf("New(%d, %d) error = %v, want %v", tt.n, tt.s, err, tt.want)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		n, s          int
		width, height int
	}{
		{4, 2, 8, 8},
		{8, 4, 32, 16},
		{8, 3, 24, 24},
		{16, 16, 256, 16},
		{16, 1, 16, 256},
	}

	for _, tt := range tests {
		l := MustNew(tt.n, tt.s)
		if l.Width() != tt.width || l.Height() != tt.height {
			t.Errorf("%v: got %dx%d, want %dx%d", l, l.Width(), l.Height(), tt.width, tt.height)
		}
	}
}

func TestVoxelToTexel(t *testing.T) {
	l := MustNew(4, 2)

	tests := []struct {
		x, y, z int
		tx, ty  int
	}{
		{0, 0, 0, 0, 0},
		{3, 3, 0, 3, 3},
		{0, 0, 1, 4, 0},
		{1, 2, 2, 1, 6},
		{2, 2, 2, 2, 6},
		{3, 3, 3, 7, 7},
	}

	for _, tt := range tests {
		tx, ty := l.VoxelToTexel(tt.x, tt.y, tt.z)
		if tx != tt.tx || ty != tt.ty {
			t.Errorf("VoxelToTexel(%d,%d,%d) = (%d,%d), want (%d,%d)", tt.x, tt.y, tt.z, tx, ty, tt.tx, tt.ty)
		}
	}
}

func TestAtlasBijection(t *testing.T) {
	for _, s := range []int{1, 2, 3, 5, 8} {
		l := MustNew(8, s)
		seen := make([]bool, l.Width()*l.Height())

		for z := 0; z < l.N; z++ {
			for y := 0; y < l.N; y++ {
				for x := 0; x < l.N; x++ {
					tx, ty := l.VoxelToTexel(x, y, z)
					gx, gy, gz, ok := l.TexelToVoxel(tx, ty)
					if !ok || gx != x || gy != y || gz != z {
						t.Fatalf("S=%d: round trip (%d,%d,%d) -> (%d,%d) -> (%d,%d,%d,%v)", s, x, y, z, tx, ty, gx, gy, gz, ok)
					}
					idx := l.Index(x, y, z)
					if seen[idx] {
						t.Fatalf("S=%d: texel %d addressed twice", s, idx)
					}
					seen[idx] = true
				}
			}
		}

		used := 0
		for _, v := range seen {
			if v {
				used++
			}
		}
		if used != l.Voxels() {
			t.Errorf("S=%d: expected %d texels used, got %d", s, l.Voxels(), used)
		}
	}
}

func TestTexelOutsideTiles(t *testing.T) {
	// 8 slices at 3 per row leaves tile (2,2) unused.
	l := MustNew(8, 3)

	if _, _, _, ok := l.TexelToVoxel(2*8+1, 2*8+1); ok {
		t.Error("expected texel in unused tile to be invalid")
	}
	if _, _, _, ok := l.TexelToVoxel(-1, 0); ok {
		t.Error("expected negative texel to be invalid")
	}
	if _, _, _, ok := l.TexelToVoxel(l.Width(), 0); ok {
		t.Error("expected texel past width to be invalid")
	}
}

func TestForEachVoxelVisitsAll(t *testing.T) {
	l := MustNew(4, 3)
	count := 0
	l.ForEachVoxel(0, l.N, func(x, y, z, idx int) {
		if idx != l.Index(x, y, z) {
			t.Fatalf("index mismatch at (%d,%d,%d)", x, y, z)
		}
		count++
	})
	if count != l.Voxels() {
		t.Errorf("expected %d visits, got %d", l.Voxels(), count)
	}
}

func TestParticleLayout(t *testing.T) {
	tests := []struct {
		count, width, height int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{5, 3, 2},
		{16, 4, 4},
		{17, 5, 4},
	}

	for _, tt := range tests {
		p, err := NewParticleLayout(tt.count)
		if err != nil {
			t.Fatalf("count %d: %v", tt.count, err)
		}
		if p.Width != tt.width || p.Height != tt.height {
			t.Errorf("count %d: got %dx%d, want %dx%d", tt.count, p.Width, p.Height, tt.width, tt.height)
		}
		for i := 0; i < tt.count; i++ {
			tx, ty := p.IndexToTexel(i)
			j, ok := p.TexelToIndex(tx, ty)
			if !ok || j != i {
				t.Errorf("count %d: index %d round trip gave %d (%v)", tt.count, i, j, ok)
			}
		}
	}

	if _, err := NewParticleLayout(0); !errors.Is(err, ErrParticleCount) {
		t.Errorf("expected ErrParticleCount, got %v", err)
	}
}
