package compute

import (
	"math"
	"runtime"
	"sync"
)

const minParallelItems = 64

type CPUBackend struct {
	workers  int
	addBlend bool
}

type CPUOption func(*CPUBackend)

func WithWorkers(n int) CPUOption {
	return func(c *CPUBackend) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithoutAdditiveBlend makes the backend report no blend support, the way a
// device lacking float blending would.
func WithoutAdditiveBlend() CPUOption {
	return func(c *CPUBackend) { c.addBlend = false }
}

func NewCPUBackend(opts ...CPUOption) *CPUBackend {
	c := &CPUBackend{
		workers:  runtime.NumCPU(),
		addBlend: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CPUBackend) Name() string                { return "cpu" }
func (c *CPUBackend) Available() bool             { return true }
func (c *CPUBackend) Workers() int                { return c.workers }
func (c *CPUBackend) SupportsAdditiveBlend() bool { return c.addBlend }
func (c *CPUBackend) Cleanup()                    {}

func (c *CPUBackend) NewTexture(name string, width, height int, format Format) (*Texture, error) {
	return NewTexture(name, width, height, format)
}

func (c *CPUBackend) ReadBack(t *Texture) []float32 {
	out := make([]float32, len(t.Data))
	copy(out, t.Data)
	return out
}

func (c *CPUBackend) Dispatch(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if n < minParallelItems || c.workers <= 1 {
		fn(0, 0, n)
		return
	}

	workers := c.workers
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}
	wg.Wait()
}

// Newtonian is the softened inverse-square pair kernel.
func Newtonian(r2 float64) float64 {
	rInv := 1.0 / math.Sqrt(r2)
	return rInv * rInv * rInv
}

func (c *CPUBackend) DirectForces(positions []float64, masses []float64, g, softening float64, kernel PairKernel) ([]float64, []float64, []float64) {
	n := len(masses)
	ax := make([]float64, n)
	ay := make([]float64, n)
	az := make([]float64, n)
	if kernel == nil {
		kernel = Newtonian
	}

	if n < 16 || c.workers <= 1 {
		c.directSerial(positions, masses, g, softening, kernel, ax, ay, az)
		return ax, ay, az
	}

	c.directParallel(positions, masses, g, softening, kernel, ax, ay, az)
	return ax, ay, az
}

func (c *CPUBackend) directSerial(pos []float64, masses []float64, g, eps float64, kernel PairKernel, ax, ay, az []float64) {
	n := len(masses)
	eps2 := eps * eps

	for i := 0; i < n; i++ {
		xi, yi, zi := pos[i*3], pos[i*3+1], pos[i*3+2]

		for j := i + 1; j < n; j++ {
			rx := pos[j*3] - xi
			ry := pos[j*3+1] - yi
			rz := pos[j*3+2] - zi
			r2 := rx*rx + ry*ry + rz*rz + eps2
			if r2 == 0 {
				continue
			}

			k := kernel(r2)

			fij := g * masses[j] * k
			ax[i] += fij * rx
			ay[i] += fij * ry
			az[i] += fij * rz

			fji := g * masses[i] * k
			ax[j] -= fji * rx
			ay[j] -= fji * ry
			az[j] -= fji * rz
		}
	}
}

func (c *CPUBackend) directParallel(pos []float64, masses []float64, g, eps float64, kernel PairKernel, ax, ay, az []float64) {
	n := len(masses)
	eps2 := eps * eps

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			for i := start; i < end; i++ {
				xi, yi, zi := pos[i*3], pos[i*3+1], pos[i*3+2]
				var sx, sy, sz float64

				for j := 0; j < n; j++ {
					if i == j {
						continue
					}

					rx := pos[j*3] - xi
					ry := pos[j*3+1] - yi
					rz := pos[j*3+2] - zi
					r2 := rx*rx + ry*ry + rz*rz + eps2
					if r2 == 0 {
						continue
					}

					f := g * masses[j] * kernel(r2)
					sx += f * rx
					sy += f * ry
					sz += f * rz
				}

				ax[i], ay[i], az[i] = sx, sy, sz
			}
		}(start, end)
	}

	wg.Wait()
}
