package spectrum

import (
	"math"

	"audioviz/internal/compute"
	"audioviz/pkg/bitint"
)

// Stage kernels for the analysis pipeline. Each kernel writes a set of
// output indices disjoint from every other work item in the same
// dispatch, so a stage may run with arbitrary intra-stage parallelism.
// Ordering between stages is the pipeline's job.

// hannWindow precomputes Hann coefficients
// w[i] = 0.5*(1 - cos(2*pi*i/(N-1))). Requires n >= 2; n == 1 would
// divide by zero in the formula.
func hannWindow(n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1))))
	}
	return w
}

// windowKernel multiplies samples by the window and widens them to
// complex pairs with zero imaginary part. NaN/Inf samples propagate
// unfiltered; the transform is linear and does not sanitize input.
func windowKernel(samples, window []float32, dst []complex64) compute.Kernel {
	return func(i int) {
		dst[i] = complex(samples[i]*window[i], 0)
	}
}

// bitReverseKernel permutes src into bit-reversed index order. src and
// dst must be distinct buffers: two indices may exchange places, and an
// in-place write could clobber a value before its partner reads it.
func bitReverseKernel(src, dst []complex64, log2N uint) compute.Kernel {
	return func(i int) {
		dst[i] = src[bitint.Reverse(uint32(i), log2N)]
	}
}

// butterflyKernel performs one Cooley-Tukey pass. Work item t handles
// one butterfly: indices idxTop and idxTop+halfSize, which no other
// item in the same pass touches. Reads src, writes dst (ping-pong).
func butterflyKernel(src, dst []complex64, p FFTParams) compute.Kernel {
	n := int(p.N)
	halfSize := 1 << p.Stage
	butterflySize := halfSize << 1
	direction := float64(p.Direction)

	return func(t int) {
		group := t / halfSize
		pos := t % halfSize
		idxTop := group*butterflySize + pos
		idxBot := idxTop + halfSize

		k := pos * (n / butterflySize)
		angle := -2 * math.Pi * float64(k) / float64(n) * direction
		twiddle := complex(float32(math.Cos(angle)), float32(math.Sin(angle)))

		top := src[idxTop]
		bot := src[idxBot]
		twiddledBot := twiddle * bot
		dst[idxTop] = top + twiddledBot
		dst[idxBot] = top - twiddledBot
	}
}

// magnitudeKernel reduces the final complex spectrum to non-negative
// magnitudes over the positive frequencies (first N/2 bins; real input
// makes the upper half a mirror). In dB mode the value is clamped to a
// -80 dB floor so the output stays finite.
func magnitudeKernel(src []complex64, dst []float32, p MagnitudeParams) compute.Kernel {
	return func(i int) {
		re := real(src[i])
		im := imag(src[i])
		mag := sqrt32(re*re+im*im) * p.Scale
		if p.DBMode {
			db := 20 * float32(math.Log10(float64(max32(mag, 1e-10))))
			mag = max32(db, -80)
		}
		dst[i] = mag
	}
}

// bandKernel aggregates linear bins into log-spaced bands. Band edges
// run from MinFreq to Nyquist. An empty bin range falls back to the raw
// value at binLow rather than zero.
func bandKernel(mag, dst []float32, p BandParams) compute.Kernel {
	logMin := math.Log(p.MinFreq)
	logMax := math.Log(float64(p.SampleRate) / 2)

	return func(b int) {
		t0 := float64(b) / float64(p.NumBands)
		t1 := float64(b+1) / float64(p.NumBands)
		freqLow := math.Exp(logMin + t0*(logMax-logMin))
		freqHigh := math.Exp(logMin + t1*(logMax-logMin))

		binLow := freqToBin(freqLow, p)
		binHigh := freqToBin(freqHigh, p)
		binLow = clampInt(binLow, 0, p.NumBins-1)
		binHigh = clampInt(binHigh, 0, p.NumBins)

		if binHigh > binLow {
			var sum float32
			for i := binLow; i < binHigh; i++ {
				sum += mag[i]
			}
			dst[b] = sum / float32(binHigh-binLow)
		} else {
			dst[b] = mag[binLow]
		}
	}
}

// freqToBin converts a frequency to a linear bin index, rounded down.
// 2*NumBins is the FFT size.
func freqToBin(freq float64, p BandParams) int {
	return int(freq * float64(2*p.NumBins) / float64(p.SampleRate))
}

// ComputeBands aggregates a magnitude spectrum into numBands log-spaced
// bands without normalization. Exposed for callers that bring their own
// spectrum; the pipeline uses the same kernel on the device path.
func ComputeBands(mag []float32, numBands, sampleRate int, minFreq float64) []float32 {
	bands := make([]float32, numBands)
	kernel := bandKernel(mag, bands, BandParams{
		NumBins:    len(mag),
		NumBands:   numBands,
		SampleRate: sampleRate,
		MinFreq:    minFreq,
	})
	for b := 0; b < numBands; b++ {
		kernel(b)
	}
	return bands
}

// BandEdges returns the numBands+1 log-spaced frequency edges used by
// the band kernel. Edges are monotonically non-decreasing and bounded
// by [minFreq, sampleRate/2].
func BandEdges(numBands, sampleRate int, minFreq float64) []float64 {
	logMin := math.Log(minFreq)
	logMax := math.Log(float64(sampleRate) / 2)
	edges := make([]float64, numBands+1)
	for b := 0; b <= numBands; b++ {
		t := float64(b) / float64(numBands)
		edges[b] = math.Exp(logMin + t*(logMax-logMin))
	}
	return edges
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
