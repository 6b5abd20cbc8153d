package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"audioviz/internal/compute"
	"audioviz/pkg/utils"
)

func TestRMSSine(t *testing.T) {
	t.Parallel()
	samples := utils.Sine(440, 48000, 48000)

	got := RMS(samples)
	want := float32(1 / math.Sqrt2)
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("RMS(sine) = %v, want ~%v", got, want)
	}
}

func TestRMSEmpty(t *testing.T) {
	t.Parallel()
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
}

// clickTrack synthesizes decaying low-frequency bursts at the given
// tempo over silence.
func clickTrack(bpm float64, sampleRate int, seconds float64) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	interval := 60 / bpm
	clickLen := sampleRate / 20

	for beat := 0.0; beat < seconds; beat += interval {
		start := int(beat * float64(sampleRate))
		for i := 0; i < clickLen && start+i < n; i++ {
			env := math.Exp(-8 * float64(i) / float64(clickLen))
			out[start+i] = float32(env * math.Sin(2*math.Pi*60*float64(i)/float64(sampleRate)))
		}
	}
	return out
}

func TestDetectBeatsClickTrack(t *testing.T) {
	t.Parallel()
	const sampleRate = 44100
	samples := clickTrack(120, sampleRate, 5)

	beats, err := DetectBeats(context.Background(), samples, sampleRate, DefaultSensitivity, compute.NewWorkerPool(4))
	if err != nil {
		t.Fatalf("DetectBeats: %v", err)
	}
	// 120 BPM over 5s is 10 onsets; allow edge effects.
	if len(beats) < 7 || len(beats) > 12 {
		t.Fatalf("detected %d beats, want ~10", len(beats))
	}

	for _, b := range beats {
		if b.Strength < 0 || b.Strength > 1 {
			t.Errorf("beat strength %v outside [0,1]", b.Strength)
		}
	}
	for i := 1; i < len(beats); i++ {
		if beats[i].Time-beats[i-1].Time < minBeatSpacing {
			t.Errorf("beats %d and %d closer than min spacing", i-1, i)
		}
	}
}

func TestEstimateBPMFoldsOctaves(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		interval float64
		want     float64
	}{
		{"direct", 0.5, 120},
		{"slow doubles", 1.5, 80}, // 40 BPM raw
		{"fast halves", 0.25, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var beats []Beat
			for i := 0; i < 8; i++ {
				beats = append(beats, Beat{Time: float64(i) * tt.interval, Strength: 1})
			}
			got := EstimateBPM(beats)
			if math.Abs(got-tt.want) > 0.5 {
				t.Errorf("EstimateBPM = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateBPMTooFewBeats(t *testing.T) {
	t.Parallel()
	if got := EstimateBPM([]Beat{{Time: 1}}); got != 0 {
		t.Errorf("EstimateBPM(one beat) = %v, want 0", got)
	}
}

func TestBeatEnvelopeDecays(t *testing.T) {
	t.Parallel()
	env := NewBeatEnvelope([]Beat{{Time: 1, Strength: 1}}, 8)

	if v := env.At(0.5); v != 0 {
		t.Errorf("envelope before first beat = %v, want 0", v)
	}
	atBeat := env.At(1.0)
	if math.Abs(float64(atBeat)-1) > 1e-6 {
		t.Errorf("envelope at beat = %v, want 1", atBeat)
	}
	later := env.At(1.5)
	if later >= atBeat || later <= 0 {
		t.Errorf("envelope at +0.5s = %v, want decayed but positive", later)
	}
}

func TestAnalyzeTrackShapes(t *testing.T) {
	t.Parallel()
	const sampleRate = 44100
	samples := utils.Sine(440, sampleRate, sampleRate*2)

	result, err := AnalyzeTrack(context.Background(), samples, sampleRate, Options{
		FFTSize:  2048,
		NumBands: 32,
		FPS:      30,
	}, compute.NewWorkerPool(4))
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}

	wantFrames := 2 * 30
	if len(result.Bands) != wantFrames {
		t.Errorf("got %d band frames, want %d", len(result.Bands), wantFrames)
	}
	if len(result.RMS) != len(result.Bands) {
		t.Errorf("RMS frames %d, band frames %d", len(result.RMS), len(result.Bands))
	}
	for f, bands := range result.Bands {
		if len(bands) != 32 {
			t.Fatalf("frame %d has %d bands, want 32", f, len(bands))
		}
	}
	if d := result.Duration(); math.Abs(d-2) > 0.1 {
		t.Errorf("Duration = %v, want ~2", d)
	}
}

// cancellingDispatcher triggers its cancel func after a fixed number of
// dispatches, simulating the run being interrupted mid-track.
type cancellingDispatcher struct {
	inner  *compute.Serial
	cancel context.CancelFunc
	limit  int
	calls  int
}

func (d *cancellingDispatcher) Dispatch(ctx context.Context, n int, kernel compute.Kernel) error {
	d.calls++
	if d.calls > d.limit {
		d.cancel()
	}
	return d.inner.Dispatch(ctx, n, kernel)
}

func (d *cancellingDispatcher) Available() bool { return true }
func (d *cancellingDispatcher) Close() error    { return d.inner.Close() }

func TestAnalyzeTrackStopsWhenCancelled(t *testing.T) {
	t.Parallel()
	const sampleRate = 44100
	samples := utils.Sine(440, sampleRate, sampleRate*4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	device := &cancellingDispatcher{inner: compute.NewSerial(), cancel: cancel, limit: 40}

	result, err := AnalyzeTrack(ctx, samples, sampleRate, Options{
		FFTSize:  2048,
		NumBands: 16,
		FPS:      30,
	}, device)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("AnalyzeTrack = (%v, %v), want context.Canceled", result, err)
	}
}

func TestAnalyzeTrackTooShort(t *testing.T) {
	t.Parallel()
	_, err := AnalyzeTrack(context.Background(), make([]float32, 100), 44100, Options{
		FFTSize:  2048,
		NumBands: 16,
		FPS:      30,
	}, compute.NewSerial())
	if err == nil {
		t.Error("expected error for track shorter than one window")
	}
}
