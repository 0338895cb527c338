package integrators

import (
	"testing"

	"github.com/san-kum/pmgrav/internal/compute"
	"github.com/san-kum/pmgrav/internal/particles"
	"github.com/san-kum/pmgrav/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

func benchState(b *testing.B, backend compute.Backend, n int) *particles.State {
	st, err := particles.NewState(backend, n)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < n; i++ {
		st.SetParticle(i, r3.Vec{X: float64(i%16) * 0.1, Y: float64(i/16) * 0.1}, 1)
	}
	return st
}

func benchIntegrator(b *testing.B, integ sim.Integrator, backend compute.Backend) {
	st := benchState(b, backend, 4096)
	solver := harmonic()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := integ.Step(st, solver, 0.01); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSemiImplicitEuler(b *testing.B) {
	backend := compute.NewCPUBackend()
	benchIntegrator(b, NewSemiImplicitEuler(backend, Params{}), backend)
}

func BenchmarkLeapfrog(b *testing.B) {
	backend := compute.NewCPUBackend()
	benchIntegrator(b, NewLeapfrog(backend, Params{}), backend)
}

func BenchmarkSemiImplicitEulerSerial(b *testing.B) {
	backend := compute.NewCPUBackend(compute.WithWorkers(1))
	benchIntegrator(b, NewSemiImplicitEuler(backend, Params{}), backend)
}
