// Package spectrum implements the frequency analysis pipeline: Hann
// window, iterative radix-2 Cooley-Tukey transform, magnitude
// reduction, and log-spaced band aggregation. All stages execute as
// data-parallel kernels on a compute.Dispatcher; a sequential gonum
// path takes over permanently if the device is lost mid-run.
package spectrum

import (
	"context"
	"errors"
	"fmt"

	"audioviz/internal/compute"
	"audioviz/internal/log"
	"audioviz/pkg/bitint"
)

// MaxBands caps the band aggregation output size.
const MaxBands = 2048

var (
	ErrInvalidSize         = errors.New("spectrum: fft size must be a power of two")
	ErrTooSmall            = errors.New("spectrum: fft size must be at least 2")
	ErrInsufficientSamples = errors.New("spectrum: not enough samples for fft size")
	ErrTooManyBands        = errors.New("spectrum: band count out of range")
)

// Pipeline runs repeated transforms of a fixed size over a reusable
// pair of ping-pong buffers. Not safe for concurrent use; frames are
// strictly sequential.
type Pipeline struct {
	fftSize int
	log2N   uint
	window  []float32

	bufA []complex64
	bufB []complex64
	mag  []float32

	device   compute.Dispatcher
	fallback *sequentialFFT
	degraded bool
}

// NewPipeline creates an analysis pipeline for the given transform
// size. fftSize must be a power of two and at least 2. The dispatcher
// is borrowed, not owned; Close it separately.
func NewPipeline(fftSize int, device compute.Dispatcher) (*Pipeline, error) {
	if fftSize < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooSmall, fftSize)
	}
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, fftSize)
	}

	return &Pipeline{
		fftSize:  fftSize,
		log2N:    bitint.Log2(fftSize),
		window:   hannWindow(fftSize),
		bufA:     make([]complex64, fftSize),
		bufB:     make([]complex64, fftSize),
		mag:      make([]float32, fftSize/2),
		device:   device,
		fallback: newSequentialFFT(fftSize),
	}, nil
}

// Size returns the transform size.
func (p *Pipeline) Size() int { return p.fftSize }

// Degraded reports whether the pipeline has switched to the sequential
// fallback after losing its device. The switch is permanent.
func (p *Pipeline) Degraded() bool { return p.degraded }

// Analyze computes the magnitude spectrum of the first fftSize samples
// into dst, which must hold fftSize/2 values. Magnitudes carry the
// 1/sqrt(N) amplitude scale.
func (p *Pipeline) Analyze(ctx context.Context, samples []float32, dst []float32) error {
	return p.analyze(ctx, samples, dst, false)
}

// AnalyzeDB is Analyze with the output converted to decibels, clamped
// to a -80 dB floor.
func (p *Pipeline) AnalyzeDB(ctx context.Context, samples []float32, dst []float32) error {
	return p.analyze(ctx, samples, dst, true)
}

func (p *Pipeline) analyze(ctx context.Context, samples []float32, dst []float32, dbMode bool) error {
	if len(samples) < p.fftSize {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), p.fftSize)
	}
	if len(dst) != p.fftSize/2 {
		return fmt.Errorf("spectrum: dst length %d, want %d", len(dst), p.fftSize/2)
	}

	if p.degraded {
		p.fallback.analyze(samples[:p.fftSize], p.window, dst, dbMode)
		return nil
	}

	err := p.analyzeOnDevice(ctx, samples, dst, dbMode)
	if errors.Is(err, compute.ErrUnavailable) {
		p.failover()
		p.fallback.analyze(samples[:p.fftSize], p.window, dst, dbMode)
		return nil
	}
	return err
}

// analyzeOnDevice runs the full stage sequence on the dispatcher.
// Buffer parity after the butterfly passes is tracked explicitly; the
// magnitude kernel reads whichever buffer holds the final spectrum.
func (p *Pipeline) analyzeOnDevice(ctx context.Context, samples []float32, dst []float32, dbMode bool) error {
	n := p.fftSize

	if err := p.device.Dispatch(ctx, n, windowKernel(samples, p.window, p.bufB)); err != nil {
		return err
	}
	if err := p.device.Dispatch(ctx, n, bitReverseKernel(p.bufB, p.bufA, p.log2N)); err != nil {
		return err
	}

	final, err := p.butterflyPasses(ctx, Forward)
	if err != nil {
		return err
	}

	return p.device.Dispatch(ctx, n/2, magnitudeKernel(final, dst, NewMagnitudeParams(n, dbMode)))
}

// butterflyPasses runs the log2(N) stages, ping-ponging between bufA
// and bufB starting from bufA, and returns the buffer holding the
// result.
func (p *Pipeline) butterflyPasses(ctx context.Context, direction int) ([]complex64, error) {
	n := p.fftSize
	src, dst := p.bufA, p.bufB
	for stage := uint32(0); stage < uint32(p.log2N); stage++ {
		params := NewFFTParams(n, stage, direction)
		if err := p.device.Dispatch(ctx, n/2, butterflyKernel(src, dst, params)); err != nil {
			return nil, err
		}
		src, dst = dst, src
	}
	return src, nil
}

// AnalyzeBands computes numBands log-spaced band energies from the
// first fftSize samples, normalized so the loudest band is 1. Silence
// yields all zeros.
func (p *Pipeline) AnalyzeBands(ctx context.Context, samples []float32, sampleRate, numBands int) ([]float32, error) {
	if numBands < 1 || numBands > MaxBands {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrTooManyBands, numBands, MaxBands)
	}

	if err := p.Analyze(ctx, samples, p.mag); err != nil {
		return nil, err
	}

	bands := make([]float32, numBands)
	params := BandParams{
		NumBins:    p.fftSize / 2,
		NumBands:   numBands,
		SampleRate: sampleRate,
		MinFreq:    DefaultMinFreq,
	}
	if p.degraded {
		kernel := bandKernel(p.mag, bands, params)
		for b := 0; b < numBands; b++ {
			kernel(b)
		}
	} else {
		err := p.device.Dispatch(ctx, numBands, bandKernel(p.mag, bands, params))
		if errors.Is(err, compute.ErrUnavailable) {
			p.failover()
			kernel := bandKernel(p.mag, bands, params)
			for b := 0; b < numBands; b++ {
				kernel(b)
			}
		} else if err != nil {
			return nil, err
		}
	}

	normalizeBands(bands)
	return bands, nil
}

// normalizeBands scales bands so the maximum is 1. All-zero input is
// left untouched.
func normalizeBands(bands []float32) {
	var maxBand float32
	for _, b := range bands {
		if b > maxBand {
			maxBand = b
		}
	}
	if maxBand > 0 {
		inv := 1 / maxBand
		for i := range bands {
			bands[i] *= inv
		}
	}
}

// Transform runs an in-place complex FFT in the given direction
// (Forward or Inverse). The inverse applies the 1/N amplitude scale, so
// Transform(Forward) followed by Transform(Inverse) reproduces the
// input up to rounding.
func (p *Pipeline) Transform(ctx context.Context, data []complex64, direction int) error {
	if len(data) != p.fftSize {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(data), p.fftSize)
	}

	if p.degraded {
		p.fallback.transform(data, direction)
		return nil
	}

	err := p.transformOnDevice(ctx, data, direction)
	if errors.Is(err, compute.ErrUnavailable) {
		p.failover()
		p.fallback.transform(data, direction)
		return nil
	}
	return err
}

func (p *Pipeline) transformOnDevice(ctx context.Context, data []complex64, direction int) error {
	n := p.fftSize

	if err := p.device.Dispatch(ctx, n, bitReverseKernel(data, p.bufA, p.log2N)); err != nil {
		return err
	}
	final, err := p.butterflyPasses(ctx, direction)
	if err != nil {
		return err
	}

	scale := float32(1)
	if direction == Inverse {
		scale = 1 / float32(n)
	}
	return p.device.Dispatch(ctx, n, func(i int) {
		data[i] = final[i] * complex(scale, 0)
	})
}

func (p *Pipeline) failover() {
	p.degraded = true
	log.Warnf("Spectrum: compute device lost, switching to sequential fallback")
}
