// Package compute provides the texture and dispatch model the PM kernels run on.
//
// Kernels never touch ambient device state. Each dispatch receives a [State]
// naming its input textures, its single output texture and the blend mode:
//
//	st := compute.State{
//	    Inputs: []*compute.Texture{particles},
//	    Output: massGrid,
//	    Blend:  compute.BlendAdditive,
//	}
//	err := deposit.Run(st)
//
// A [Backend] allocates textures and fans a pass out over its workers. Dispatch
// returns only after the pass has fully written its output, so passes submitted
// in dependency order need no further synchronization.
//
// # Backends
//
//   - CPU: worker pool over runtime.NumCPU goroutines. Additive blending is
//     emulated with per-worker accumulation buffers.
//
// Double buffering is explicit through [PingPong]; a dispatch whose output
// aliases one of its inputs is rejected by [State.Validate].
package compute
