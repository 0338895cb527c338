package pm

import (
	"fmt"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
)

type Direction int

const (
	Forward Direction = iota
	Inverse
)

func (d Direction) sign() float64 {
	if d == Inverse {
		return 1
	}
	return -1
}

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

// FFT is a separable radix-2 3D transform over grid atlases.
//
// A transform is 3·log2(N) passes, axes in x, y, z order. Every pass is one
// butterfly stage along one axis and reads only the previous pass's output,
// so passes ping-pong between two RG32F scratch textures owned by the
// engine. The first stage of each axis reads its input in bit-reversed
// order along that axis. The final pass writes the caller's output.
//
// Forward accepts an R32F input (promoted to complex in the first pass) or
// an RG32F one. Inverse writes R32F (real part only) or RG32F output and
// scales by 1/N³ in its final pass.
type FFT struct {
	backend  compute.Backend
	layout   atlas.Layout
	twiddles *TwiddleTable
	rev      []int
	scratch  *compute.PingPong
	timer    PassTimer
}

func NewFFT(b compute.Backend, layout atlas.Layout, opts ...Option) (*FFT, error) {
	if !atlas.IsPowerOfTwo(layout.N) || layout.N < 2 {
		return nil, fmt.Errorf("%w: got %d", atlas.ErrNotPowerOfTwo, layout.N)
	}
	o := buildOptions(opts)

	scratch, err := compute.NewPingPong(b, "fft_scratch", layout.Width(), layout.Height(), compute.RG32F)
	if err != nil {
		return nil, err
	}
	return &FFT{
		backend:  b,
		layout:   layout,
		twiddles: NewTwiddleTable(layout.N),
		rev:      bitReversal(layout.N),
		scratch:  scratch,
		timer:    o.timer,
	}, nil
}

// Passes is the number of dispatches one transform takes.
func (f *FFT) Passes() int { return 3 * f.layout.Stages() }

func (f *FFT) Forward(st compute.State) error {
	return f.transform(st, Forward)
}

func (f *FFT) Inverse(st compute.State) error {
	return f.transform(st, Inverse)
}

func (f *FFT) transform(st compute.State, dir Direction) error {
	name := "fft_" + dir.String()
	if err := f.validate(st, dir); err != nil {
		return kernelErr(name, err)
	}

	stages := f.layout.Stages()
	total := 3 * stages
	src := st.Inputs[0]
	f.scratch.Reset()

	for p := 0; p < total; p++ {
		last := p == total-1
		dst := st.Output
		if !last {
			dst = f.scratch.Target()
		}
		scale := 1.0
		if last && dir == Inverse {
			scale = 1 / float64(f.layout.Voxels())
		}
		if f.timer != nil {
			f.timer.StartPhase(fmt.Sprintf("%s_%c%d", name, "xyz"[p/stages], p%stages))
		}

		f.pass(src, dst, p/stages, p%stages, dir.sign(), scale)

		if !last {
			f.scratch.Swap()
			src = f.scratch.Current()
		}
	}
	return nil
}

func (f *FFT) validate(st compute.State, dir Direction) error {
	if err := st.Validate(1); err != nil {
		return err
	}
	in, out := st.Inputs[0], st.Output
	if dir == Forward {
		if in.Format != compute.R32F && in.Format != compute.RG32F {
			return fmt.Errorf("%w: %s, want r32f or rg32f", compute.ErrFormat, in)
		}
		if err := checkGrid(out, f.layout, compute.RG32F); err != nil {
			return err
		}
	} else {
		if err := compute.ExpectFormat(in, compute.RG32F); err != nil {
			return err
		}
		if out.Format != compute.R32F && out.Format != compute.RG32F {
			return fmt.Errorf("%w: %s, want r32f or rg32f", compute.ErrFormat, out)
		}
	}
	if in.Width != f.layout.Width() || in.Height != f.layout.Height() {
		return fmt.Errorf("%w: %s for %v", ErrLayoutMismatch, in, f.layout)
	}
	if out.Width != f.layout.Width() || out.Height != f.layout.Height() {
		return fmt.Errorf("%w: %s for %v", ErrLayoutMismatch, out, f.layout)
	}
	return nil
}

// pass runs one butterfly stage along axis over every line of the grid.
//
// For stage s (size = 2^(s+1), half = 2^s) and position i along the line,
// with j = i mod half and W = exp(sign·2πi·j/size):
//
//	i mod size < half:  out[i] = in[i] + W·in[i+half]
//	otherwise:          out[i] = in[i-half] - W·in[i]
func (f *FFT) pass(src, dst *compute.Texture, axis, stage int, sign, scale float64) {
	n := f.layout.N
	half := 1 << stage
	step := n / (half << 1)
	realIn := src.Format == compute.R32F
	realOut := dst.Format == compute.R32F

	f.backend.Dispatch(n*n, func(_, start, end int) {
		line := make([]int, n)
		re := make([]float64, n)
		im := make([]float64, n)

		for l := start; l < end; l++ {
			f.lineTexels(line, axis, l)

			for i := 0; i < n; i++ {
				k := i
				if stage == 0 {
					k = f.rev[i]
				}
				if realIn {
					re[i], im[i] = float64(src.Data[line[k]]), 0
				} else {
					c := line[k] * 2
					re[i], im[i] = float64(src.Data[c]), float64(src.Data[c+1])
				}
			}

			for i := 0; i < n; i++ {
				wr, wi := f.twiddles.W((i&(half-1))*step, sign)
				var outRe, outIm float64
				if i&half == 0 {
					oRe := wr*re[i+half] - wi*im[i+half]
					oIm := wr*im[i+half] + wi*re[i+half]
					outRe, outIm = re[i]+oRe, im[i]+oIm
				} else {
					oRe := wr*re[i] - wi*im[i]
					oIm := wr*im[i] + wi*re[i]
					outRe, outIm = re[i-half]-oRe, im[i-half]-oIm
				}

				if realOut {
					dst.Data[line[i]] = float32(outRe * scale)
				} else {
					c := line[i] * 2
					dst.Data[c] = float32(outRe * scale)
					dst.Data[c+1] = float32(outIm * scale)
				}
			}
		}
	})
}

// lineTexels fills line with the texel indices of grid line l along axis.
// l enumerates the two remaining coordinates, lower axis fastest.
func (f *FFT) lineTexels(line []int, axis, l int) {
	n := f.layout.N
	u, v := l%n, l/n
	for i := range line {
		switch axis {
		case 0:
			line[i] = f.layout.Index(i, u, v)
		case 1:
			line[i] = f.layout.Index(u, i, v)
		default:
			line[i] = f.layout.Index(u, v, i)
		}
	}
}

func bitReversal(n int) []int {
	bitsN := atlas.Log2(n)
	rev := make([]int, n)
	for i := range rev {
		r := 0
		for b := 0; b < bitsN; b++ {
			if i&(1<<b) != 0 {
				r |= 1 << (bitsN - 1 - b)
			}
		}
		rev[i] = r
	}
	return rev
}
