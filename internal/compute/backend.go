package compute

// PairKernel scales the pair separation vector in direct summation:
// a_i += G * m_j * k(r2) * (x_j - x_i). r2 already includes softening.
type PairKernel func(r2 float64) float64

type Backend interface {
	Name() string
	Available() bool
	Workers() int
	// SupportsAdditiveBlend reports whether concurrent writers may accumulate
	// into one texel. Kernels that need it must degrade loudly without it.
	SupportsAdditiveBlend() bool
	NewTexture(name string, width, height int, format Format) (*Texture, error)
	// Dispatch runs fn over [0, n) split into contiguous chunks, one per
	// worker, and returns once every chunk is done.
	Dispatch(n int, fn func(worker, start, end int))
	// ReadBack copies a texture to host memory. It is the only blocking
	// synchronization point exposed to callers.
	ReadBack(t *Texture) []float32
	DirectForces(positions []float64, masses []float64, g, softening float64, kernel PairKernel) (ax, ay, az []float64)
	Cleanup()
}

func AutoSelectBackend() Backend {
	return NewCPUBackend()
}
