package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// sequentialFFT is the device-loss path. It produces the same shapes
// and scaling as the parallel stages using gonum's transforms, which
// are unnormalized in the forward direction just like the butterfly
// network.
type sequentialFFT struct {
	n     int
	real  *fourier.FFT
	cmplx *fourier.CmplxFFT

	seq   []float64
	coeff []complex128
	buf   []complex128
	out   []complex128
}

func newSequentialFFT(n int) *sequentialFFT {
	return &sequentialFFT{
		n:     n,
		real:  fourier.NewFFT(n),
		cmplx: fourier.NewCmplxFFT(n),
		seq:   make([]float64, n),
		coeff: make([]complex128, n/2+1),
		buf:   make([]complex128, n),
		out:   make([]complex128, n),
	}
}

// analyze windows the samples and writes the scaled magnitude spectrum
// of the first n/2 bins into dst.
func (s *sequentialFFT) analyze(samples, window []float32, dst []float32, dbMode bool) {
	for i := 0; i < s.n; i++ {
		s.seq[i] = float64(samples[i] * window[i])
	}
	s.real.Coefficients(s.coeff, s.seq)

	scale := 1 / math.Sqrt(float64(s.n))
	for i := 0; i < s.n/2; i++ {
		mag := cmplxAbs(s.coeff[i]) * scale
		if dbMode {
			db := 20 * math.Log10(math.Max(mag, 1e-10))
			mag = math.Max(db, -80)
		}
		dst[i] = float32(mag)
	}
}

// transform runs an in-place complex transform. The inverse applies the
// 1/n amplitude scale to match the device path.
func (s *sequentialFFT) transform(data []complex64, direction int) {
	for i, v := range data {
		s.buf[i] = complex128(v)
	}

	out := s.out
	if direction == Inverse {
		s.cmplx.Sequence(out, s.buf)
		scale := 1 / float64(s.n)
		for i := range out {
			out[i] *= complex(scale, 0)
		}
	} else {
		s.cmplx.Coefficients(out, s.buf)
	}

	for i, v := range out {
		data[i] = complex64(v)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
