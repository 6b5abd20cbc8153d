// Package utils provides small helpers shared by tests across packages.
package utils

import "math"

// FindPeakBin returns the index of the largest value in spectrum, or -1
// for an empty slice.
func FindPeakBin(spectrum []float32) int {
	peak := -1
	var peakVal float32 = -math.MaxFloat32
	for i, v := range spectrum {
		if v > peakVal {
			peakVal = v
			peak = i
		}
	}
	return peak
}

// Sine generates n samples of a unit-amplitude sine at freq Hz.
func Sine(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := range out {
		out[i] = float32(math.Sin(step * float64(i)))
	}
	return out
}

// WithinTolerance reports whether a and b differ by at most tol.
func WithinTolerance(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
