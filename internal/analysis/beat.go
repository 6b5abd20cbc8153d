package analysis

import (
	"context"
	"math"
	"sort"

	"audioviz/internal/compute"
	"audioviz/internal/spectrum"
)

// Beat onset parameters. Detection runs on short bass-band energy
// frames; a beat fires when a frame's energy exceeds the local average
// by the sensitivity margin.
const (
	beatFFTSize    = 1024
	beatHopSize    = 512
	bassLowHz      = 20.0
	bassHighHz     = 200.0
	localAvgWindow = 8
	minBeatSpacing = 0.2  // seconds
	minLocalAvg    = 0.01 // floor on the normalized local average, so onsets out of silence still fire
)

// Beat is a detected onset.
type Beat struct {
	Time     float64 // seconds from track start
	Strength float32 // 0..1
}

// DetectBeats scans the track for bass onsets. sensitivity is the
// fractional margin over the local average energy required to fire;
// 0.3 is a reasonable default.
func DetectBeats(ctx context.Context, samples []float32, sampleRate int, sensitivity float64, device compute.Dispatcher) ([]Beat, error) {
	if len(samples) < beatFFTSize {
		return nil, nil
	}

	pipeline, err := spectrum.NewPipeline(beatFFTSize, device)
	if err != nil {
		return nil, err
	}

	energies, err := bassEnergies(ctx, pipeline, samples, sampleRate)
	if err != nil {
		return nil, err
	}
	normalizeEnergies(energies)

	threshold := 1 + sensitivity
	frameTime := float64(beatHopSize) / float64(sampleRate)

	var beats []Beat
	lastBeat := -minBeatSpacing
	for i, e := range energies {
		avg := localAverage(energies, i)
		if avg < minLocalAvg {
			avg = minLocalAvg
		}

		t := float64(i) * frameTime
		if float64(e) > float64(avg)*threshold && t-lastBeat >= minBeatSpacing {
			strength := float64(e)/float64(avg) - 1
			if strength > 1 {
				strength = 1
			}
			beats = append(beats, Beat{Time: t, Strength: float32(strength)})
			lastBeat = t
		}
	}
	return beats, nil
}

// bassEnergies computes the summed 20..200 Hz magnitude per hop frame.
func bassEnergies(ctx context.Context, pipeline *spectrum.Pipeline, samples []float32, sampleRate int) ([]float32, error) {
	binLow := int(bassLowHz * beatFFTSize / float64(sampleRate))
	binHigh := int(math.Ceil(bassHighHz * beatFFTSize / float64(sampleRate)))
	if binHigh > beatFFTSize/2 {
		binHigh = beatFFTSize / 2
	}
	if binLow < 1 {
		binLow = 1 // skip DC
	}

	numFrames := (len(samples)-beatFFTSize)/beatHopSize + 1
	energies := make([]float32, 0, numFrames)
	mag := make([]float32, beatFFTSize/2)

	for start := 0; start+beatFFTSize <= len(samples); start += beatHopSize {
		if err := pipeline.Analyze(ctx, samples[start:start+beatFFTSize], mag); err != nil {
			return nil, err
		}
		var sum float32
		for i := binLow; i < binHigh; i++ {
			sum += mag[i]
		}
		energies = append(energies, sum)
	}
	return energies, nil
}

func normalizeEnergies(energies []float32) {
	var maxE float32
	for _, e := range energies {
		if e > maxE {
			maxE = e
		}
	}
	if maxE > 0 {
		inv := 1 / maxE
		for i := range energies {
			energies[i] *= inv
		}
	}
}

// localAverage averages the window of frames preceding index i.
func localAverage(energies []float32, i int) float32 {
	start := i - localAvgWindow
	if start < 0 {
		start = 0
	}
	if start == i {
		return 0
	}
	var sum float32
	for j := start; j < i; j++ {
		sum += energies[j]
	}
	return sum / float32(i-start)
}

// EstimateBPM derives tempo from the median inter-beat interval,
// folding octave errors into the 60..200 BPM range. Returns 0 when
// fewer than two beats are available.
func EstimateBPM(beats []Beat) float64 {
	if len(beats) < 2 {
		return 0
	}

	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals = append(intervals, beats[i].Time-beats[i-1].Time)
	}
	sort.Float64s(intervals)
	median := intervals[len(intervals)/2]
	if median <= 0 {
		return 0
	}

	bpm := 60 / median
	for bpm < 60 {
		bpm *= 2
	}
	for bpm > 200 {
		bpm /= 2
	}
	return bpm
}

// BeatEnvelope turns a discrete beat list into a continuous pulse
// signal for rendering. Each beat jumps the envelope to its strength,
// then decays exponentially. Queries must use non-decreasing times.
type BeatEnvelope struct {
	beats []Beat
	decay float64 // 1/seconds
	next  int
	value float64
	last  float64
}

// NewBeatEnvelope wraps beats with the given exponential decay rate.
// decay <= 0 selects a default tuned for bar pulsing.
func NewBeatEnvelope(beats []Beat, decay float64) *BeatEnvelope {
	if decay <= 0 {
		decay = 8
	}
	return &BeatEnvelope{beats: beats, decay: decay}
}

// At returns the envelope value at time t in seconds.
func (e *BeatEnvelope) At(t float64) float32 {
	e.value *= math.Exp(-e.decay * (t - e.last))
	e.last = t

	for e.next < len(e.beats) && e.beats[e.next].Time <= t {
		s := float64(e.beats[e.next].Strength)
		if s > e.value {
			e.value = s
		}
		e.next++
	}
	return float32(e.value)
}
