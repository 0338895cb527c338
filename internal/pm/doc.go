// Package pm implements the spectral particle-mesh gravity solver.
//
// Each stage is a kernel with a Run(compute.State) method that reads bound
// textures and writes one output texture:
//
//   - [Deposit]: particle mass onto an N³ grid (NGP or CIC), additive blend
//   - [FFT]: separable radix-2 3D FFT, one pass per butterfly stage per axis
//   - [Poisson]: Green's function multiply with window deconvolution
//   - [Gradient]: F(k) = -i·k·φ(k) along one axis
//   - [ForceSample]: trilinear interpolation of force grids onto particles
//
// [Pipeline] owns the grids and spectra for one (N, slicesPerRow) layout and
// runs the stages in order:
//
//	Deposit → Forward FFT → Poisson → Gradient ×3 → Inverse FFT ×3 → ForceSample
//
// # Conventions
//
// The forward transform is unnormalized; the inverse applies 1/N³ once, in
// its final pass. Wavenumber index idx folds to k = idx for idx ≤ N/2 and
// idx-N otherwise. The DC bin of the potential is always exactly zero.
//
// Force textures hold accelerations: the gravitational constant passed to
// [Poisson] is 4πG and the deposited mass is divided by the voxel volume.
package pm
