package pm

import (
	"math"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/particles"
)

// Fold maps a frequency bin to a signed wavenumber: idx for idx ≤ N/2,
// idx-N above.
func Fold(idx, n int) int {
	if idx <= n/2 {
		return idx
	}
	return idx - n
}

// Sinc is sin(x)/x with a Taylor expansion near zero.
func Sinc(x float64) float64 {
	if math.Abs(x) < 1e-4 {
		x2 := x * x
		return 1 - x2/6 + x2*x2/120
	}
	return math.Sin(x) / x
}

// Wavenumbers caches the per-axis tables the spectral kernels share.
type Wavenumbers struct {
	N    int
	Fold []int
	// K is the continuous physical wavenumber 2πk/L per axis.
	K [3][]float64
	// KEff is the discrete Laplacian wavenumber (2/Δx)·sin(πk/N) per axis.
	KEff [3][]float64
	// Sinc is sinc(πk/N), identical on every axis.
	Sinc []float64
}

func NewWavenumbers(layout atlas.Layout, bounds particles.Bounds) *Wavenumbers {
	n := layout.N
	w := &Wavenumbers{
		N:    n,
		Fold: make([]int, n),
		Sinc: make([]float64, n),
	}
	for a := 0; a < 3; a++ {
		w.K[a] = make([]float64, n)
		w.KEff[a] = make([]float64, n)
	}

	for idx := 0; idx < n; idx++ {
		k := Fold(idx, n)
		w.Fold[idx] = k
		w.Sinc[idx] = Sinc(math.Pi * float64(k) / float64(n))

		for a := 0; a < 3; a++ {
			l := bounds.Extent(a)
			dx := l / float64(n)
			w.K[a][idx] = 2 * math.Pi * float64(k) / l
			w.KEff[a][idx] = (2 / dx) * math.Sin(math.Pi*float64(k)/float64(n))
		}
	}
	return w
}

// IsNyquist reports whether bin idx is the unpaired N/2 frequency.
func (w *Wavenumbers) IsNyquist(idx int) bool {
	return idx == w.N/2
}
