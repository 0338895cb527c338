package pm_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pmgrav/internal/atlas"
	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/pm"
	"gonum.org/v1/gonum/spatial/r3"
)

type phaseRecorder struct {
	phases []string
}

func (r *phaseRecorder) StartPhase(name string) {
	r.phases = append(r.phases, name)
}

func boxBounds(n int) particles.Bounds {
	fn := float64(n)
	return particles.NewBounds([3]float64{0, 0, 0}, [3]float64{fn, fn, fn})
}

func newPipeline(b compute.Backend, n, count int, params pm.PoissonParams, opts ...pm.Option) *pm.Pipeline {
	p, err := pm.NewPipeline(b, pm.Config{
		Layout:     atlas.MustNew(n, 4),
		Bounds:     boxBounds(n),
		Count:      count,
		Assignment: pm.CIC,
		Poisson:    params,
	}, opts...)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Pipeline", func() {
	var backend compute.Backend

	BeforeEach(func() {
		backend = compute.NewCPUBackend(compute.WithWorkers(4))
	})

	Describe("two equal masses", func() {
		const n = 32
		var (
			st       *particles.State
			pipeline *pm.Pipeline
		)

		BeforeEach(func() {
			var err error
			st, err = particles.NewState(backend, 2)
			Expect(err).NotTo(HaveOccurred())
			st.SetParticle(0, r3.Vec{X: 11.2, Y: 16, Z: 16}, 1)
			st.SetParticle(1, r3.Vec{X: 20.8, Y: 16, Z: 16}, 1)

			pipeline = newPipeline(backend, n, 2, pm.PoissonParams{G: 4 * math.Pi, DeconvolutionOrder: 2})
			Expect(pipeline.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace)).To(Succeed())
		})

		It("pulls the particles towards each other", func() {
			a0, a1 := st.ForceOn(0), st.ForceOn(1)
			Expect(a0.X).To(BeNumerically(">", 0))
			Expect(a1.X).To(BeNumerically("<", 0))

			newtonian := 1 / (9.6 * 9.6)
			Expect(a0.X).To(BeNumerically(">", 0.25*newtonian))
			Expect(a0.X).To(BeNumerically("<", 1.5*newtonian))
		})

		It("produces equal and opposite forces along the separation only", func() {
			a0, a1 := st.ForceOn(0), st.ForceOn(1)
			Expect(math.Abs(a0.X + a1.X)).To(BeNumerically("<", 1e-2*a0.X))
			for _, a := range []r3.Vec{a0, a1} {
				Expect(math.Abs(a.Y)).To(BeNumerically("<", 1e-2*a0.X))
				Expect(math.Abs(a.Z)).To(BeNumerically("<", 1e-2*a0.X))
			}
		})

		It("keeps the deposited mass", func() {
			Expect(pipeline.GridMass()).To(BeNumerically("~", 2, 1e-5))
		})

		It("accumulates with additive blending", func() {
			first := st.ForceOn(0)
			Expect(pipeline.ComputeForces(st.Pos.Current(), st.Force, compute.BlendAdditive)).To(Succeed())
			Expect(st.ForceOn(0).X).To(BeNumerically("~", 2*first.X, 1e-6))
		})

		It("samples a negative potential at both particles", func() {
			phi := make([]float64, 2)
			Expect(pipeline.SamplePotential(st.Pos.Current(), phi)).To(Succeed())
			Expect(phi[0]).To(BeNumerically("<", 0))
			Expect(phi[0]).To(BeNumerically("~", phi[1], 1e-3*math.Abs(phi[0])))
		})

		It("weakens the force when only the long-range part is kept", func() {
			split := newPipeline(backend, n, 2, pm.PoissonParams{
				G:                  4 * math.Pi,
				DeconvolutionOrder: 2,
				Split:              pm.Split{Mode: pm.SplitGaussian, Sigma: 4},
			})
			out, err := backend.NewTexture("split_forces", st.Force.Width, st.Force.Height, compute.RGBA32F)
			Expect(err).NotTo(HaveOccurred())
			Expect(split.ComputeForces(st.Pos.Current(), out, compute.BlendReplace)).To(Succeed())

			Expect(out.At(0)[0]).To(BeNumerically(">", 0))
			Expect(float64(out.At(0)[0])).To(BeNumerically("<", st.ForceOn(0).X))
		})
	})

	It("attracts a pair at every separation up to half the box", func() {
		const n = 16
		st, err := particles.NewState(backend, 2)
		Expect(err).NotTo(HaveOccurred())
		pipeline := newPipeline(backend, n, 2, pm.PoissonParams{
			G:                  4 * math.Pi,
			DeconvolutionOrder: 2,
			Smoothing:          1,
		})

		for d := 1.0; d <= n/2-0.5; d += 0.25 {
			st.SetParticle(0, r3.Vec{X: 6, Y: 8, Z: 8}, 1)
			st.SetParticle(1, r3.Vec{X: 6 + d, Y: 8, Z: 8}, 1)
			Expect(pipeline.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace)).To(Succeed())
			Expect(st.ForceOn(0).X).To(BeNumerically(">", 0), "separation %v", d)
			Expect(st.ForceOn(1).X).To(BeNumerically("<", 0), "separation %v", d)
		}
	})

	It("finds no force in a uniform lattice", func() {
		const n = 8
		st, err := particles.NewState(backend, n*n*n)
		Expect(err).NotTo(HaveOccurred())
		i := 0
		for z := 0; z < n; z++ {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					st.SetParticle(i, r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}, 1)
					i++
				}
			}
		}

		p := newPipeline(backend, n, st.Count, pm.PoissonParams{G: 4 * math.Pi, DeconvolutionOrder: 2})
		Expect(p.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace)).To(Succeed())
		Expect(p.GridMass()).To(BeNumerically("~", float64(n*n*n), 1e-3))
		for i := 0; i < st.Count; i++ {
			Expect(r3.Norm(st.ForceOn(i))).To(BeNumerically("<", 1e-4))
		}
	})

	It("reports every pass to the timer", func() {
		rec := &phaseRecorder{}
		st, err := particles.NewState(backend, 4)
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 4; i++ {
			st.SetParticle(i, r3.Vec{X: float64(i + 1), Y: 2, Z: 3}, 1)
		}

		p := newPipeline(backend, 8, 4, pm.PoissonParams{G: 1}, pm.WithPassTimer(rec))
		Expect(p.ComputeForces(st.Pos.Current(), st.Force, compute.BlendReplace)).To(Succeed())
		Expect(rec.phases).To(Equal([]string{
			"deposit", "fft_forward", "poisson",
			"gradient_x", "fft_inverse_x",
			"gradient_y", "fft_inverse_y",
			"gradient_z", "fft_inverse_z",
			"force_sample",
		}))
	})

	Context("with bad input", func() {
		It("rejects a missing particle texture", func() {
			p := newPipeline(backend, 4, 1, pm.PoissonParams{G: 1})
			out, _ := backend.NewTexture("out", 1, 1, compute.RGBA32F)
			Expect(p.ComputeForces(nil, out, compute.BlendReplace)).To(MatchError(pm.ErrMissingTexture))
		})

		It("refuses to sample a potential before any force evaluation", func() {
			p := newPipeline(backend, 4, 1, pm.PoissonParams{G: 1})
			pos, _ := backend.NewTexture("pos", 1, 1, compute.RGBA32F)
			Expect(p.SamplePotential(pos, make([]float64, 1))).To(MatchError(pm.ErrNotComputed))
		})

		It("rejects a grid size that is not a power of two", func() {
			_, err := pm.NewPipeline(backend, pm.Config{
				Layout:     atlas.Layout{N: 12, SlicesPerRow: 4},
				Bounds:     boxBounds(12),
				Count:      1,
				Assignment: pm.NGP,
			})
			Expect(err).To(MatchError(atlas.ErrNotPowerOfTwo))
		})

		It("rejects an output that aliases the positions", func() {
			p := newPipeline(backend, 4, 1, pm.PoissonParams{G: 1})
			pos, _ := backend.NewTexture("pos", 1, 1, compute.RGBA32F)
			pos.Data[0], pos.Data[1], pos.Data[2], pos.Data[3] = 1, 1, 1, 1

			err := p.ComputeForces(pos, pos, compute.BlendReplace)
			Expect(err).To(MatchError(compute.ErrAliasing))
			var kerr *pm.KernelError
			Expect(err).To(BeAssignableToTypeOf(kerr))
		})
	})
})
