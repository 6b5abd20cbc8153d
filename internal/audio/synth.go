package audio

import "math"

// Synthesized test signals. Used by the demo mode and by tests that
// need deterministic input.

// Sine generates a sine wave of the given frequency and amplitude.
func Sine(freq, amplitude float64, sampleRate int, seconds float64) *Track {
	n := int(seconds * float64(sampleRate))
	samples := make([]float32, n)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(step*float64(i)))
	}
	return &Track{Samples: samples, SampleRate: sampleRate}
}

// Impulse generates a single unit sample at t=0 over silence.
func Impulse(sampleRate int, seconds float64) *Track {
	n := int(seconds * float64(sampleRate))
	samples := make([]float32, n)
	if n > 0 {
		samples[0] = 1
	}
	return &Track{Samples: samples, SampleRate: sampleRate}
}

// ClickTrack generates decaying 60 Hz bursts at the given tempo, one
// per beat, over silence.
func ClickTrack(bpm float64, sampleRate int, seconds float64) *Track {
	n := int(seconds * float64(sampleRate))
	samples := make([]float32, n)
	interval := 60 / bpm
	clickLen := sampleRate / 20

	for beat := 0.0; beat < seconds; beat += interval {
		start := int(beat * float64(sampleRate))
		for i := 0; i < clickLen && start+i < n; i++ {
			env := math.Exp(-8 * float64(i) / float64(clickLen))
			samples[start+i] = float32(env * math.Sin(2*math.Pi*60*float64(i)/float64(sampleRate)))
		}
	}
	return &Track{Samples: samples, SampleRate: sampleRate}
}

// Sweep generates a linear chirp from startFreq to endFreq. The demo
// mode uses it to exercise the full band range.
func Sweep(startFreq, endFreq float64, sampleRate int, seconds float64) *Track {
	n := int(seconds * float64(sampleRate))
	samples := make([]float32, n)
	var phase float64
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		freq := startFreq + (endFreq-startFreq)*t/seconds
		phase += 2 * math.Pi * freq / float64(sampleRate)
		samples[i] = float32(math.Sin(phase))
	}
	return &Track{Samples: samples, SampleRate: sampleRate}
}
