package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the magnitude of the real FFT of data, one bin per
// frequency from 0 to the Nyquist frequency. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(data))
	coeff := fft.Coefficients(nil, data)

	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the frequency, in cycles per unit time, of the
// strongest non-constant component of a signal sampled every dt.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 2 || dt <= 0 {
		return 0
	}
	fft := fourier.NewFFT(len(data))
	coeff := fft.Coefficients(nil, data)

	best, bestMag := 0, 0.0
	for i := 1; i < len(coeff); i++ {
		if m := cmplx.Abs(coeff[i]); m > bestMag {
			best, bestMag = i, m
		}
	}
	return fft.Freq(best) / dt
}
