// Package analysis derives per-frame visualization data from a decoded
// track: log-spaced band energies, RMS loudness, beat onsets, and
// tempo.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"audioviz/internal/compute"
	"audioviz/internal/log"
	"audioviz/internal/spectrum"
)

// DefaultSensitivity is the beat detection margin used when the caller
// does not override it.
const DefaultSensitivity = 0.3

// Options configures a track analysis run.
type Options struct {
	FFTSize     int
	NumBands    int
	FPS         int
	Sensitivity float64
}

// TrackAnalysis is the frame-aligned result of analyzing a full track.
// Bands[f] holds NumBands normalized energies for video frame f.
type TrackAnalysis struct {
	SampleRate int
	FPS        int
	Bands      [][]float32
	RMS        []float32
	Beats      []Beat
	BPM        float64
}

// Duration returns the analyzed length in seconds.
func (a *TrackAnalysis) Duration() float64 {
	return float64(len(a.Bands)) / float64(a.FPS)
}

// AnalyzeTrack runs the full offline analysis. One band frame is
// produced per video frame; a frame whose window extends past the track
// end reuses the previous frame's bands. A failed frame also reuses the
// previous bands and is logged; a first-frame failure or a cancelled
// context aborts the run.
func AnalyzeTrack(ctx context.Context, samples []float32, sampleRate int, opts Options, device compute.Dispatcher) (*TrackAnalysis, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("analysis: fps must be positive, got %d", opts.FPS)
	}

	pipeline, err := spectrum.NewPipeline(opts.FFTSize, device)
	if err != nil {
		return nil, err
	}

	numFrames := len(samples) * opts.FPS / sampleRate
	if numFrames < 1 {
		numFrames = 1
	}
	hop := sampleRate / opts.FPS

	result := &TrackAnalysis{
		SampleRate: sampleRate,
		FPS:        opts.FPS,
		Bands:      make([][]float32, 0, numFrames),
		RMS:        make([]float32, 0, numFrames),
	}

	var prev []float32
	for f := 0; f < numFrames; f++ {
		start := f * hop
		end := start + opts.FFTSize
		if end > len(samples) {
			if prev == nil {
				return nil, fmt.Errorf("analysis: track shorter than one analysis window (%d samples)", opts.FFTSize)
			}
			result.Bands = append(result.Bands, prev)
			result.RMS = append(result.RMS, result.RMS[len(result.RMS)-1])
			continue
		}

		window := samples[start:end]
		bands, err := pipeline.AnalyzeBands(ctx, window, sampleRate, opts.NumBands)
		if err != nil {
			if prev == nil {
				return nil, fmt.Errorf("analysis: first frame failed: %w", err)
			}
			// Cancellation is a request to stop, not a per-frame fault;
			// substitution would keep the run alive against it.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Warnf("Analysis: frame %d failed (%v), reusing previous bands", f, err)
			bands = prev
		}
		result.Bands = append(result.Bands, bands)
		result.RMS = append(result.RMS, RMS(window))
		prev = bands
	}

	sensitivity := opts.Sensitivity
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}
	beats, err := DetectBeats(ctx, samples, sampleRate, sensitivity, device)
	if err != nil {
		log.Warnf("Analysis: beat detection failed: %v", err)
	} else {
		result.Beats = beats
		result.BPM = EstimateBPM(beats)
	}

	log.Infof("Analysis: %d frames, %d beats, %.1f BPM", len(result.Bands), len(result.Beats), result.BPM)
	return result, nil
}

// RMS computes root mean square amplitude. Empty input yields 0.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
