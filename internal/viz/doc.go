// Package viz is the live terminal monitor for particle-mesh runs.
//
// The monitor is a Bubble Tea program fed by a [Feed], a sim.Observer that
// copies a subsample of the particles and a diagnostics row every few steps:
//
//   - [Monitor]: particle cloud, energy graph and per-pass timings
//   - [Canvas]: Braille pixel canvas for the point cloud
//   - [DensityMap]: shaded column-density projection
//   - [Picker]: preset selection menu
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the display
//	D     - Toggle point cloud / density view
//	T     - Cycle color themes
//	X/Y/Z - Rotate the camera (shift reverses)
//	+/-   - Zoom
//	?     - Show help overlay
//	Q     - Stop the run and quit
package viz
