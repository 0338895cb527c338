// Package analysis post-processes simulation output.
//
//   - [RadialPowerSpectrum]: shell-averaged P(k) of a grid density spectrum
//   - [TimeSeriesSpectrum]: periodogram of a diagnostic series
//   - [LagrangianRadii]: radii enclosing given mass fractions
//   - [Summarize]: conservation summary of a diagnostics series
//
// # Power Spectrum
//
// The density spectrum of a [pm.Pipeline] is normalised by its DC term so
// P(k) = V·|δ_k|². Randomly placed particles sit near the shot-noise level
// V/N_p on small scales:
//
//	bins, err := analysis.RadialPowerSpectrum(layout, bounds, p.DensitySpectrum(), 0)
package analysis
