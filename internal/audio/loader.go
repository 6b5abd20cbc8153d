// Package audio loads and synthesizes the sample data the analysis
// stages consume: mono float32 in [-1, 1].
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"audioviz/internal/log"
	"audioviz/pkg/bitint"
)

// Track is a decoded mono audio stream.
type Track struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// LoadWAV decodes a WAV file into a mono track. Multi-channel input is
// downmixed by averaging; integer PCM is normalized to [-1, 1] by bit
// depth.
func LoadWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("audio: %s has no channel format", path)
	}

	// The shift below is only meaningful for the PCM widths the format
	// defines; a malformed header would otherwise wrap it.
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("audio: %s has unsupported bit depth %d", path, dec.BitDepth)
	}

	channels := buf.Format.NumChannels
	numFrames := len(buf.Data) / channels
	scale := 1.0 / float64(int64(1)<<(dec.BitDepth-1))

	samples := make([]float32, numFrames)
	for frame := 0; frame < numFrames; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[frame*channels+ch]) * scale
		}
		samples[frame] = float32(sum / float64(channels))
	}

	track := &Track{Samples: samples, SampleRate: buf.Format.SampleRate}
	log.Infof("Audio: loaded %s (%.1fs, %d Hz, %d ch)", path, track.Duration(), track.SampleRate, channels)
	return track, nil
}

// PadPow2 returns samples zero-padded to the next power-of-two length.
// Already power-of-two input is returned unchanged.
func PadPow2(samples []float32) []float32 {
	target := bitint.NextPowerOfTwo(len(samples))
	if target == len(samples) {
		return samples
	}
	padded := make([]float32, target)
	copy(padded, samples)
	return padded
}
