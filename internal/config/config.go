// Package config carries all tunables for an analysis and render run.
// Values resolve in order: defaults, YAML file, environment overrides,
// then command line flags.
package config

import (
	"fmt"

	"audioviz/internal/render"
	"audioviz/internal/spectrum"
	"audioviz/pkg/bitint"
)

// Defaults.
const (
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultBars        = 64
	DefaultFFTSize     = 2048
	DefaultFPS         = 60
	DefaultLayout      = "vertical"
	DefaultFormat      = "raw"
	DefaultSensitivity = 0.3
	DefaultColorLow    = "#00aaff"
	DefaultColorHigh   = "#ff3399"
)

// Config is the resolved run configuration.
type Config struct {
	// Input and output.
	Input  string // WAV path; empty selects the synth demo track
	Output string // raw file path or png directory, depending on Format
	Format string // "raw" or "png"

	// Render.
	Width     int
	Height    int
	Bars      int
	FPS       int
	Layout    string
	Glow      bool
	ColorLow  string // hex, #rrggbb
	ColorHigh string

	// Bloom.
	BloomThreshold  float64
	BloomIntensity  float64
	BloomBlurPasses int

	// Analysis.
	FFTSize     int
	Sensitivity float64

	// Compute.
	Workers int // 0 selects NumCPU

	// Transport.
	WSAddr  string // websocket listen address, empty disables
	UDPAddr string // udp target address, empty disables

	Verbose bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Format:          DefaultFormat,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Bars:            DefaultBars,
		FPS:             DefaultFPS,
		Layout:          DefaultLayout,
		Glow:            true,
		ColorLow:        DefaultColorLow,
		ColorHigh:       DefaultColorHigh,
		BloomThreshold:  float64(render.DefaultBloom.Threshold),
		BloomIntensity:  float64(render.DefaultBloom.Intensity),
		BloomBlurPasses: render.DefaultBloom.BlurPasses,
		FFTSize:         DefaultFFTSize,
		Sensitivity:     DefaultSensitivity,
	}
}

// Validate checks invariants that later stages rely on.
func (c *Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("config: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Bars < 1 || c.Bars > spectrum.MaxBands {
		return fmt.Errorf("config: bars must be 1..%d, got %d", spectrum.MaxBands, c.Bars)
	}
	if c.FPS < 1 {
		return fmt.Errorf("config: fps must be positive, got %d", c.FPS)
	}
	if c.FFTSize < 2 || !bitint.IsPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("config: fft size must be a power of two >= 2, got %d", c.FFTSize)
	}
	if _, ok := render.ParseLayout(c.Layout); !ok {
		return fmt.Errorf("config: unknown layout %q", c.Layout)
	}
	if c.Format != "raw" && c.Format != "png" {
		return fmt.Errorf("config: unknown output format %q", c.Format)
	}
	if c.BloomBlurPasses < 0 {
		return fmt.Errorf("config: blur passes must be non-negative, got %d", c.BloomBlurPasses)
	}
	if _, err := ParseHexColor(c.ColorLow); err != nil {
		return err
	}
	if _, err := ParseHexColor(c.ColorHigh); err != nil {
		return err
	}
	return nil
}

// ParseHexColor converts "#rrggbb" to normalized RGBA with alpha 1.
func ParseHexColor(s string) ([4]float32, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return [4]float32{}, fmt.Errorf("config: invalid color %q", s)
	}
	return [4]float32{
		float32(r) / 255,
		float32(g) / 255,
		float32(b) / 255,
		1,
	}, nil
}
