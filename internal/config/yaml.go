package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"audioviz/internal/log"
)

// yamlFile mirrors the config file layout. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type yamlFile struct {
	Input  *string `yaml:"input"`
	Output *string `yaml:"output"`
	Format *string `yaml:"format"`

	Render struct {
		Width     *int    `yaml:"width"`
		Height    *int    `yaml:"height"`
		Bars      *int    `yaml:"bars"`
		FPS       *int    `yaml:"fps"`
		Layout    *string `yaml:"layout"`
		Glow      *bool   `yaml:"glow"`
		ColorLow  *string `yaml:"color_low"`
		ColorHigh *string `yaml:"color_high"`

		Bloom struct {
			Threshold  *float64 `yaml:"threshold"`
			Intensity  *float64 `yaml:"intensity"`
			BlurPasses *int     `yaml:"blur_passes"`
		} `yaml:"bloom"`
	} `yaml:"render"`

	Analysis struct {
		FFTSize     *int     `yaml:"fft_size"`
		Sensitivity *float64 `yaml:"sensitivity"`
	} `yaml:"analysis"`

	Compute struct {
		Workers *int `yaml:"workers"`
	} `yaml:"compute"`

	Transport struct {
		Websocket *string `yaml:"websocket"`
		UDP       *string `yaml:"udp"`
	} `yaml:"transport"`
}

// LoadYAML overlays settings from a YAML file onto c.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.Input, f.Input)
	setString(&c.Output, f.Output)
	setString(&c.Format, f.Format)

	setInt(&c.Width, f.Render.Width)
	setInt(&c.Height, f.Render.Height)
	setInt(&c.Bars, f.Render.Bars)
	setInt(&c.FPS, f.Render.FPS)
	setString(&c.Layout, f.Render.Layout)
	setBool(&c.Glow, f.Render.Glow)
	setString(&c.ColorLow, f.Render.ColorLow)
	setString(&c.ColorHigh, f.Render.ColorHigh)
	setFloat(&c.BloomThreshold, f.Render.Bloom.Threshold)
	setFloat(&c.BloomIntensity, f.Render.Bloom.Intensity)
	setInt(&c.BloomBlurPasses, f.Render.Bloom.BlurPasses)

	setInt(&c.FFTSize, f.Analysis.FFTSize)
	setFloat(&c.Sensitivity, f.Analysis.Sensitivity)
	setInt(&c.Workers, f.Compute.Workers)
	setString(&c.WSAddr, f.Transport.Websocket)
	setString(&c.UDPAddr, f.Transport.UDP)

	log.Debugf("Config: loaded %s", path)
	return nil
}

// ApplyEnv overlays AUDIOVIZ_* environment variables. Unparseable
// values are logged and skipped.
func (c *Config) ApplyEnv() {
	envString("AUDIOVIZ_INPUT", &c.Input)
	envString("AUDIOVIZ_OUTPUT", &c.Output)
	envString("AUDIOVIZ_FORMAT", &c.Format)
	envInt("AUDIOVIZ_WIDTH", &c.Width)
	envInt("AUDIOVIZ_HEIGHT", &c.Height)
	envInt("AUDIOVIZ_BARS", &c.Bars)
	envInt("AUDIOVIZ_FPS", &c.FPS)
	envString("AUDIOVIZ_LAYOUT", &c.Layout)
	envInt("AUDIOVIZ_FFT_SIZE", &c.FFTSize)
	envInt("AUDIOVIZ_WORKERS", &c.Workers)
	envString("AUDIOVIZ_WS_ADDR", &c.WSAddr)
	envString("AUDIOVIZ_UDP_ADDR", &c.UDPAddr)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("Config: ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}
