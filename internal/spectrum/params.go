package spectrum

import "audioviz/pkg/bitint"

// Directions for the butterfly network. Inverse transforms are not
// scaled by the stages; callers apply the 1/N amplitude scale after the
// final pass.
const (
	Forward = 1
	Inverse = -1
)

// DefaultMinFreq is the lower edge of the lowest log-spaced band in Hz.
const DefaultMinFreq = 20.0

// FFTParams is the immutable per-dispatch configuration for the
// bit-reversal and butterfly kernels.
type FFTParams struct {
	N         uint32
	Stage     uint32
	Direction int32
	Log2N     uint32
}

// NewFFTParams builds stage parameters for an FFT of the given size.
func NewFFTParams(fftSize int, stage uint32, direction int) FFTParams {
	return FFTParams{
		N:         uint32(fftSize),
		Stage:     stage,
		Direction: int32(direction),
		Log2N:     uint32(bitint.Log2(fftSize)),
	}
}

// MagnitudeParams configures the magnitude reduction kernel.
type MagnitudeParams struct {
	N      uint32
	Scale  float32
	DBMode bool
}

// NewMagnitudeParams builds magnitude parameters with the conventional
// 1/sqrt(N) amplitude scale.
func NewMagnitudeParams(fftSize int, dbMode bool) MagnitudeParams {
	return MagnitudeParams{
		N:      uint32(fftSize),
		Scale:  1.0 / sqrt32(float32(fftSize)),
		DBMode: dbMode,
	}
}

// BandParams configures the log-spaced band aggregation kernel.
type BandParams struct {
	NumBins    int
	NumBands   int
	SampleRate int
	MinFreq    float64
}
