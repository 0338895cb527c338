package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrShortSeries = errors.New("analysis: series too short")

// TimeSeriesSpectrum returns the one-sided periodogram of a mean-removed
// series sampled every dt.
func TimeSeriesSpectrum(values []float64, dt float64) (freqs, power []float64, err error) {
	n := len(values)
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d samples", ErrShortSeries, n)
	}
	if dt <= 0 {
		return nil, nil, fmt.Errorf("analysis: sample interval must be positive, got %f", dt)
	}

	detrended := make([]float64, n)
	copy(detrended, values)
	floats.AddConst(-floats.Sum(values)/float64(n), detrended)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, detrended)

	freqs = make([]float64, len(coeffs))
	power = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) / dt
		power[i] = (real(c)*real(c) + imag(c)*imag(c)) / float64(n)
	}
	return freqs, power, nil
}

// DominantPeriod returns the period of the strongest non-DC frequency.
func DominantPeriod(values []float64, dt float64) (float64, bool) {
	freqs, power, err := TimeSeriesSpectrum(values, dt)
	if err != nil || len(power) < 2 {
		return 0, false
	}
	best := floats.MaxIdx(power[1:]) + 1
	if power[best] == 0 || freqs[best] == 0 {
		return 0, false
	}
	return 1 / freqs[best], true
}
