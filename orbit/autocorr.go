package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Frequency estimation by autocorrelation with parabolic peak
 *		interpolation.
 *
 * Description:	Computes the full linear autocorrelation
 *		c = s (*) reverse(s) via FFT convolution, keeps the
 *		non-negative-lag half, finds the first rising difference
 *		(skipping the DC peak at lag 0), locates its arg-max, and
 *		refines the peak location with a parabolic fit through the
 *		three samples around it.
 *
 *		gonum.org/v1/gonum/dsp/fourier's real FFT performs the
 *		zero-padded linear convolution, since no equivalent ships in
 *		the standard library.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrAutocorrPeakNotFound covers both failure modes: no rising d[i]
// exists, or the peak sits on a boundary where parabolic interpolation is
// undefined.
var ErrAutocorrPeakNotFound = errors.New("orbit: autocorrelation peak search failed")

// linearAutocorrelation returns c[0..n-1], the non-negative-lag half of
// the full linear autocorrelation of s (length 2n-1 before truncation).
// It is computed via zero-padded FFT convolution of s with its reverse,
// equivalent to scipy.signal.fftconvolve(s, s[::-1], mode='full')[n-1:].
func linearAutocorrelation(s []float64) []float64 {
	n := len(s)
	if n == 0 {
		return nil
	}

	reversed := make([]float64, n)
	for i, v := range s {
		reversed[n-1-i] = v
	}

	// Convolution length is 2n-1; pad to avoid circular wrap-around.
	m := nextPow2(2*n - 1)

	paddedA := make([]float64, m)
	copy(paddedA, s)
	paddedB := make([]float64, m)
	copy(paddedB, reversed)

	fft := fourier.NewFFT(m)
	coeffA := fft.Coefficients(nil, paddedA)
	coeffB := fft.Coefficients(nil, paddedB)

	product := make([]complex128, len(coeffA))
	for i := range product {
		product[i] = coeffA[i] * coeffB[i]
	}

	full := fft.Sequence(nil, product)

	// full[0:2n-1] is the linear convolution of s with its reverse. Lag 0
	// sits at full[n-1] (the centre of the symmetric result), so the
	// non-negative-lag half is full[n-1:2n-1], the scipy [n-1:] slice.
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		out[k] = full[n-1+k]
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// parabolicPeak refines an integer peak index x in sequence f via
// quadratic interpolation through (x-1, x, x+1):
//
//	xv = x + 1/2 * (f[x-1] - f[x+1]) / (f[x-1] - 2*f[x] + f[x+1])
func parabolicPeak(f []float64, x int) (xv, yv float64) {
	denom := f[x-1] - 2*f[x] + f[x+1]
	xv = float64(x) + 0.5*(f[x-1]-f[x+1])/denom
	yv = f[x] - 0.25*(f[x-1]-f[x+1])*(xv-float64(x))
	return xv, yv
}

// freqFromAutocorr estimates the dominant frequency of signal (sampled at
// samplingRate Hz) via autocorrelation + parabolic peak interpolation. It
// returns ErrAutocorrPeakNotFound when no rising difference exists or the
// arg-max sits on an interpolation boundary.
func freqFromAutocorr(signal []float64, samplingRate float64) (float64, error) {
	n := len(signal)
	if n < 4 {
		return 0, ErrAutocorrPeakNotFound
	}

	c := linearAutocorrelation(signal)

	start := -1
	for i := 0; i < len(c)-1; i++ {
		if c[i+1]-c[i] > 0 {
			start = i
			break
		}
	}
	if start == -1 {
		return 0, ErrAutocorrPeakNotFound
	}

	peak := start
	best := c[start]
	for i := start + 1; i < len(c); i++ {
		if c[i] > best {
			best = c[i]
			peak = i
		}
	}

	if peak <= 0 || peak >= len(c)-1 {
		return 0, ErrAutocorrPeakNotFound
	}

	xv, _ := parabolicPeak(c, peak)
	if xv <= 0 || math.IsNaN(xv) || math.IsInf(xv, 0) {
		return 0, ErrAutocorrPeakNotFound
	}

	f := samplingRate / xv
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrAutocorrPeakNotFound
	}
	return f, nil
}
