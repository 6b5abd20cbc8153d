package spectrum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/dsp/window"
)

func TestHannWindowMatchesReference(t *testing.T) {
	t.Parallel()
	const n = 64
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	ref := window.Hann(ones)

	w := hannWindow(n)
	for i := range w {
		if math.Abs(float64(w[i])-ref[i]) > 1e-6 {
			t.Fatalf("w[%d] = %v, reference %v", i, w[i], ref[i])
		}
	}
}

func TestHannWindowEndpoints(t *testing.T) {
	t.Parallel()
	w := hannWindow(1024)

	if w[0] != 0 {
		t.Errorf("w[0] = %v, want 0", w[0])
	}
	if w[len(w)-1] > 1e-6 {
		t.Errorf("w[last] = %v, want ~0", w[len(w)-1])
	}

	mid := w[len(w)/2]
	if math.Abs(float64(mid)-1) > 1e-4 {
		t.Errorf("w[mid] = %v, want ~1", mid)
	}
}

func TestBitReverseKernelPermutes(t *testing.T) {
	t.Parallel()
	const n = 8
	src := make([]complex64, n)
	dst := make([]complex64, n)
	for i := range src {
		src[i] = complex(float32(i), 0)
	}

	kernel := bitReverseKernel(src, dst, 3)
	for i := 0; i < n; i++ {
		kernel(i)
	}

	// 3-bit reversal of 0..7.
	want := []float32{0, 4, 2, 6, 1, 5, 3, 7}
	for i, w := range want {
		if real(dst[i]) != w {
			t.Errorf("dst[%d] = %v, want %v", i, real(dst[i]), w)
		}
	}
}

func TestMagnitudeKernelDBFloor(t *testing.T) {
	t.Parallel()
	src := make([]complex64, 4)
	dst := make([]float32, 4)

	kernel := magnitudeKernel(src, dst, NewMagnitudeParams(8, true))
	for i := range src {
		kernel(i)
	}

	for i, v := range dst {
		if v != -80 {
			t.Errorf("silence bin %d = %v dB, want -80", i, v)
		}
	}
}

func TestComputeBandsSingleBandIsAverage(t *testing.T) {
	t.Parallel()
	const numBins = 512
	const sampleRate = 48000

	mag := make([]float32, numBins)
	var sum float32
	for i := range mag {
		mag[i] = float32(i % 7)
		sum += mag[i]
	}

	bands := ComputeBands(mag, 1, sampleRate, DefaultMinFreq)
	if len(bands) != 1 {
		t.Fatalf("got %d bands, want 1", len(bands))
	}

	want := sum / numBins
	if math.Abs(float64(bands[0]-want)) > 1e-3 {
		t.Errorf("single band = %v, want average %v", bands[0], want)
	}
}

func TestComputeBandsEmptyRangeFallback(t *testing.T) {
	t.Parallel()
	// Many bands over few bins forces adjacent edges to collapse onto
	// the same bin; those bands must carry the raw value at binLow.
	mag := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	bands := ComputeBands(mag, 64, 48000, DefaultMinFreq)

	for i, b := range bands {
		if b == 0 {
			t.Errorf("band %d is zero; empty ranges must fall back to the low bin", i)
		}
	}
}

func TestBandEdgesMonotone(t *testing.T) {
	t.Parallel()
	const sampleRate = 44100
	edges := BandEdges(64, sampleRate, DefaultMinFreq)

	if math.Abs(edges[0]-DefaultMinFreq) > 1e-9 {
		t.Errorf("first edge = %v, want %v", edges[0], DefaultMinFreq)
	}
	nyquist := float64(sampleRate) / 2
	if math.Abs(edges[len(edges)-1]-nyquist) > 1e-6 {
		t.Errorf("last edge = %v, want nyquist %v", edges[len(edges)-1], nyquist)
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] < edges[i-1] {
			t.Fatalf("edges not monotone at %d: %v < %v", i, edges[i], edges[i-1])
		}
	}
}

func TestButterflyKernelImpulse(t *testing.T) {
	t.Parallel()
	// A unit impulse at index 0 transforms to a flat spectrum of ones.
	const n = 8
	src := make([]complex64, n)
	dst := make([]complex64, n)
	work := make([]complex64, n)
	work[0] = 1

	// Bit-reversal of an impulse at 0 is the identity.
	copy(src, work)
	for stage := uint32(0); stage < 3; stage++ {
		kernel := butterflyKernel(src, dst, NewFFTParams(n, stage, Forward))
		for tIdx := 0; tIdx < n/2; tIdx++ {
			kernel(tIdx)
		}
		src, dst = dst, src
	}

	for i, v := range src {
		if math.Abs(float64(real(v))-1) > 1e-6 || math.Abs(float64(imag(v))) > 1e-6 {
			t.Errorf("bin %d = %v, want (1+0i)", i, v)
		}
	}
}
