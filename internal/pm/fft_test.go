package pm

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"gonum.org/v1/gonum/dsp/fourier"
)

func newGrid(t *testing.T, layout atlas.Layout, format compute.Format) *compute.Texture {
	t.Helper()
	tex, err := compute.NewTexture("grid", layout.Width(), layout.Height(), format)
	if err != nil {
		t.Fatalf("new texture: %v", err)
	}
	return tex
}

func newEngine(t *testing.T, layout atlas.Layout) *FFT {
	t.Helper()
	f, err := NewFFT(compute.NewCPUBackend(compute.WithWorkers(4)), layout)
	if err != nil {
		t.Fatalf("new fft: %v", err)
	}
	return f
}

func fillReal(layout atlas.Layout, tex *compute.Texture, fn func(x, y, z int) float64) {
	layout.ForEachVoxel(0, layout.N, func(x, y, z, idx int) {
		tex.Data[idx] = float32(fn(x, y, z))
	})
}

func TestFFTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		name  string
		n, s  int
		field func(x, y, z int) float64
	}{
		{"uniform", 8, 4, func(x, y, z int) float64 { return 1 }},
		{"spike", 8, 2, func(x, y, z int) float64 {
			if x == 3 && y == 5 && z == 1 {
				return 1
			}
			return 0
		}},
		{"sinusoid", 16, 4, func(x, y, z int) float64 {
			return math.Sin(2 * math.Pi * float64(x+2*y) / 16)
		}},
		{"random non-divisor slices", 8, 3, func(x, y, z int) float64 { return rng.Float64() - 0.5 }},
		{"single slice row", 4, 4, func(x, y, z int) float64 { return float64(x*y - z) }},
		{"minimal", 2, 1, func(x, y, z int) float64 { return float64(x + 2*y + 4*z) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := atlas.MustNew(tt.n, tt.s)
			f := newEngine(t, layout)
			in := newGrid(t, layout, compute.R32F)
			spec := newGrid(t, layout, compute.RG32F)
			back := newGrid(t, layout, compute.R32F)
			fillReal(layout, in, tt.field)

			if err := f.Forward(single(in, spec)); err != nil {
				t.Fatalf("forward: %v", err)
			}
			if err := f.Inverse(single(spec, back)); err != nil {
				t.Fatalf("inverse: %v", err)
			}

			layout.ForEachVoxel(0, layout.N, func(x, y, z, idx int) {
				if d := math.Abs(float64(back.Data[idx] - in.Data[idx])); d > 1e-4 {
					t.Errorf("voxel (%d,%d,%d): expected %v, got %v", x, y, z, in.Data[idx], back.Data[idx])
				}
			})
		})
	}
}

func TestFFTLeavesInputUntouched(t *testing.T) {
	layout := atlas.MustNew(4, 2)
	f := newEngine(t, layout)
	in := newGrid(t, layout, compute.R32F)
	fillReal(layout, in, func(x, y, z int) float64 { return float64(x + y + z) })
	before := in.Clone()

	if err := f.Forward(single(in, newGrid(t, layout, compute.RG32F))); err != nil {
		t.Fatalf("forward: %v", err)
	}
	for i := range in.Data {
		if in.Data[i] != before.Data[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestFFTUniformIsDCOnly(t *testing.T) {
	layout := atlas.MustNew(8, 4)
	f := newEngine(t, layout)
	in := newGrid(t, layout, compute.R32F)
	spec := newGrid(t, layout, compute.RG32F)
	fillReal(layout, in, func(x, y, z int) float64 { return 2 })

	if err := f.Forward(single(in, spec)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	layout.ForEachVoxel(0, layout.N, func(x, y, z, idx int) {
		re, im := float64(spec.Data[idx*2]), float64(spec.Data[idx*2+1])
		want := 0.0
		if x == 0 && y == 0 && z == 0 {
			want = 2 * 512
		}
		if math.Abs(re-want) > 1e-3 || math.Abs(im) > 1e-3 {
			t.Errorf("bin (%d,%d,%d): expected %v, got %v%+vi", x, y, z, want, re, im)
		}
	})
}

// The smallest multi-stage case: a spike at (2,2,2) on 4³ transforms to
// (-1)^(kx+ky+kz), nonzero on every bin.
func TestFFTSpikeEveryBinNonzero(t *testing.T) {
	layout := atlas.MustNew(4, 2)
	f := newEngine(t, layout)
	in := newGrid(t, layout, compute.R32F)
	spec := newGrid(t, layout, compute.RG32F)
	in.Data[layout.Index(2, 2, 2)] = 1

	if err := f.Forward(single(in, spec)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	layout.ForEachVoxel(0, layout.N, func(x, y, z, idx int) {
		want := 1.0
		if (x+y+z)%2 == 1 {
			want = -1
		}
		re, im := float64(spec.Data[idx*2]), float64(spec.Data[idx*2+1])
		if math.Abs(re-want) > 1e-6 || math.Abs(im) > 1e-6 {
			t.Errorf("bin (%d,%d,%d): expected %v, got %v%+vi", x, y, z, want, re, im)
		}
	})
}

type lineFFT func([]complex128) []complex128

// reference3D applies a 1D transform along x, y and z of a dense cube.
func reference3D(n int, data []complex128, transform lineFFT) []complex128 {
	out := append([]complex128(nil), data...)
	at := func(x, y, z int) int { return (z*n+y)*n + x }
	line := make([]complex128, n)

	for axis := 0; axis < 3; axis++ {
		for v := 0; v < n; v++ {
			for u := 0; u < n; u++ {
				for i := 0; i < n; i++ {
					switch axis {
					case 0:
						line[i] = out[at(i, u, v)]
					case 1:
						line[i] = out[at(u, i, v)]
					default:
						line[i] = out[at(u, v, i)]
					}
				}
				res := transform(line)
				for i := 0; i < n; i++ {
					switch axis {
					case 0:
						out[at(i, u, v)] = res[i]
					case 1:
						out[at(u, i, v)] = res[i]
					default:
						out[at(u, v, i)] = res[i]
					}
				}
			}
		}
	}
	return out
}

func TestFFTMatchesReferenceLibraries(t *testing.T) {
	const n = 8
	layout := atlas.MustNew(n, 3)
	rng := rand.New(rand.NewSource(11))

	dense := make([]complex128, n*n*n)
	in := newGrid(t, layout, compute.RG32F)
	layout.ForEachVoxel(0, n, func(x, y, z, idx int) {
		re, im := float32(rng.Float64()-0.5), float32(rng.Float64()-0.5)
		in.Data[idx*2], in.Data[idx*2+1] = re, im
		dense[(z*n+y)*n+x] = complex(float64(re), float64(im))
	})

	gonumFFT := fourier.NewCmplxFFT(n)
	refs := map[string]lineFFT{
		"gonum": func(seq []complex128) []complex128 {
			return gonumFFT.Coefficients(nil, seq)
		},
		"go-dsp": func(seq []complex128) []complex128 {
			return fft.FFT(seq)
		},
	}

	f := newEngine(t, layout)
	spec := newGrid(t, layout, compute.RG32F)
	if err := f.Forward(single(in, spec)); err != nil {
		t.Fatalf("forward: %v", err)
	}

	for name, ref := range refs {
		t.Run(name, func(t *testing.T) {
			want := reference3D(n, dense, ref)
			layout.ForEachVoxel(0, n, func(x, y, z, idx int) {
				got := complex(float64(spec.Data[idx*2]), float64(spec.Data[idx*2+1]))
				if d := cmplx.Abs(got - want[(z*n+y)*n+x]); d > 1e-4 {
					t.Errorf("bin (%d,%d,%d): expected %v, got %v", x, y, z, want[(z*n+y)*n+x], got)
				}
			})
		})
	}
}

func TestFFTComplexInverse(t *testing.T) {
	layout := atlas.MustNew(4, 1)
	f := newEngine(t, layout)
	in := newGrid(t, layout, compute.RG32F)
	layout.ForEachVoxel(0, 4, func(x, y, z, idx int) {
		in.Data[idx*2] = float32(x - z)
		in.Data[idx*2+1] = float32(y)
	})
	spec := newGrid(t, layout, compute.RG32F)
	back := newGrid(t, layout, compute.RG32F)

	if err := f.Forward(single(in, spec)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := f.Inverse(single(spec, back)); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	for i := range in.Data {
		if math.Abs(float64(back.Data[i]-in.Data[i])) > 1e-5 {
			t.Fatalf("component %d: expected %v, got %v", i, in.Data[i], back.Data[i])
		}
	}
}

func TestFFTRejectsBadBindings(t *testing.T) {
	layout := atlas.MustNew(4, 2)
	f := newEngine(t, layout)
	realTex := newGrid(t, layout, compute.R32F)
	cplx := newGrid(t, layout, compute.RG32F)
	other := newGrid(t, atlas.MustNew(4, 4), compute.RG32F)

	tests := []struct {
		name string
		run  func() error
	}{
		{"missing input", func() error { return f.Forward(compute.State{Output: cplx}) }},
		{"missing output", func() error { return f.Forward(compute.State{Inputs: []*compute.Texture{realTex}}) }},
		{"aliased", func() error { return f.Inverse(single(cplx, cplx)) }},
		{"real spectrum", func() error { return f.Forward(single(realTex, newGrid(t, layout, compute.R32F))) }},
		{"real inverse input", func() error { return f.Inverse(single(realTex, cplx)) }},
		{"layout mismatch", func() error { return f.Forward(single(realTex, other)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var kerr *KernelError
			if !errors.As(err, &kerr) {
				t.Fatalf("expected KernelError, got %v", err)
			}
		})
	}
}

func TestBitReversal(t *testing.T) {
	got := bitReversal(8)
	want := []int{0, 4, 2, 6, 1, 5, 3, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rev(%d): expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestTwiddleTable(t *testing.T) {
	tw := NewTwiddleTable(8)
	re, im := tw.W(2, -1)
	if math.Abs(re) > 1e-15 || math.Abs(im+1) > 1e-15 {
		t.Errorf("expected W = -i, got %v%+vi", re, im)
	}
	re, im = tw.W(1, 1)
	if math.Abs(re-math.Sqrt2/2) > 1e-15 || math.Abs(im-math.Sqrt2/2) > 1e-15 {
		t.Errorf("expected W = (1+i)/√2, got %v%+vi", re, im)
	}
}
