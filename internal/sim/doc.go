// Package sim runs the particle step loop.
//
// A [Simulator] pairs a [ForceSolver] with an [Integrator] and advances a
// particle state for a fixed number of steps:
//
//	solver, _ := experiment.NewRegistry().GetSolver("pm", backend, cfg)
//	s := sim.New(solver, integrators.NewSemiImplicitEuler(backend, integrators.Params{}))
//	result, err := s.Run(ctx, st, sim.Config{Dt: 0.01, Steps: 500})
//
// Diagnostics (energies, momentum, grid mass) are recorded on the first and
// last step and every DiagnosticsEvery steps in between. Metrics observe each
// diagnostics row; observers see every step.
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. A run owns its particle state and
// solver for its whole duration.
package sim
