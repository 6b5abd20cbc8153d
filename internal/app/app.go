// Package app wires the full pipeline: decode, analyze, render, and
// deliver frames to sinks and transports.
package app

import (
	"context"
	"fmt"
	"io"

	"audioviz/internal/analysis"
	"audioviz/internal/audio"
	"audioviz/internal/compute"
	"audioviz/internal/config"
	"audioviz/internal/log"
	"audioviz/internal/render"
	"audioviz/internal/transport"
	"audioviz/internal/video"
)

// Run executes one full offline render according to cfg. It returns
// when every frame has been written or ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	// --- Startup ---

	device := compute.NewWorkerPool(cfg.Workers)
	defer device.Close()

	track, err := loadTrack(cfg)
	if err != nil {
		return err
	}

	result, err := analysis.AnalyzeTrack(ctx, track.Samples, track.SampleRate, analysis.Options{
		FFTSize:     cfg.FFTSize,
		NumBands:    cfg.Bars,
		FPS:         cfg.FPS,
		Sensitivity: cfg.Sensitivity,
	}, device)
	if err != nil {
		return fmt.Errorf("app: analysis: %w", err)
	}

	renderer, err := newRenderer(cfg, device)
	if err != nil {
		return err
	}
	defer renderer.Flush()

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	pub, err := newTransports(cfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	// --- Frame loop ---

	env := analysis.NewBeatEnvelope(result.Beats, 0)
	frameTime := 1 / float64(cfg.FPS)

	// One frame of readback latency: frame f's pixels are delivered
	// while frame f+1 renders, so readback overlaps sink and transport
	// work instead of serializing behind every frame.
	var pending *render.FrameFuture
	var pendingMsg transport.FrameMessage

	deliver := func() error {
		if pending == nil {
			return nil
		}
		pix, err := pending.Wait()
		pending = nil
		if err != nil {
			return fmt.Errorf("app: frame %d readback: %w", pendingMsg.Frame, err)
		}
		if err := sink.WriteFrame(pix); err != nil {
			return fmt.Errorf("app: frame %d: %w", pendingMsg.Frame, err)
		}
		if err := pub.Send(pendingMsg); err != nil {
			log.Warnf("App: transport send: %v", err)
		}
		return nil
	}

	for f, bands := range result.Bands {
		if err := ctx.Err(); err != nil {
			log.Infof("App: cancelled after %d frames", f)
			return err
		}

		t := float64(f) * frameTime
		beat := env.At(t)

		future, err := renderer.RenderFrame(ctx, bands, beat)
		if err != nil {
			return fmt.Errorf("app: frame %d: %w", f, err)
		}
		if err := deliver(); err != nil {
			return err
		}

		pending = future
		pendingMsg = transport.FrameMessage{
			Type:  "frame",
			Frame: f,
			Time:  t,
			Bands: bands,
			Beat:  beat,
			RMS:   result.RMS[f],
			BPM:   result.BPM,
		}
	}
	if err := deliver(); err != nil {
		return err
	}

	// --- Shutdown ---

	log.Infof("App: rendered %d frames (%.1fs at %d fps)", len(result.Bands), result.Duration(), cfg.FPS)
	return nil
}

// loadTrack decodes the input file, or synthesizes the demo track when
// no input is configured.
func loadTrack(cfg *config.Config) (*audio.Track, error) {
	if cfg.Input == "" {
		log.Infof("App: no input file, using synthesized demo track")
		return demoTrack(), nil
	}
	track, err := audio.LoadWAV(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return track, nil
}

// demoTrack is a 10 second sweep with a 120 BPM click layered on top,
// exercising the full band range and the beat detector.
func demoTrack() *audio.Track {
	const sampleRate = 44100
	const seconds = 10

	sweep := audio.Sweep(40, 12000, sampleRate, seconds)
	clicks := audio.ClickTrack(120, sampleRate, seconds)
	for i := range sweep.Samples {
		sweep.Samples[i] = 0.6*sweep.Samples[i] + 0.4*clicks.Samples[i]
	}
	return sweep
}

func newRenderer(cfg *config.Config, device compute.Dispatcher) (*render.DesignRenderer, error) {
	layout, _ := render.ParseLayout(cfg.Layout)
	colorLow, err := config.ParseHexColor(cfg.ColorLow)
	if err != nil {
		return nil, err
	}
	colorHigh, err := config.ParseHexColor(cfg.ColorHigh)
	if err != nil {
		return nil, err
	}

	return render.NewDesignRenderer(render.Options{
		Width:     cfg.Width,
		Height:    cfg.Height,
		NumBars:   cfg.Bars,
		FPS:       cfg.FPS,
		Layout:    layout,
		Glow:      cfg.Glow,
		ColorLow:  colorLow,
		ColorHigh: colorHigh,
		Bloom: render.BloomParams{
			Threshold:  float32(cfg.BloomThreshold),
			Intensity:  float32(cfg.BloomIntensity),
			BlurPasses: cfg.BloomBlurPasses,
		},
	}, device)
}

func newSink(cfg *config.Config) (video.FrameSink, error) {
	switch {
	case cfg.Output == "":
		log.Warnf("App: no output configured, frames are discarded")
		return video.NewRawSink(io.Discard), nil
	case cfg.Format == "png":
		return video.NewPNGSink(cfg.Output, cfg.Width, cfg.Height)
	default:
		return video.NewRawFileSink(cfg.Output)
	}
}

func newTransports(cfg *config.Config) (transport.Transport, error) {
	var multi transport.Multi
	if cfg.WSAddr != "" {
		ws, err := transport.NewWebSocketServer(cfg.WSAddr)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		multi = append(multi, ws)
	}
	if cfg.UDPAddr != "" {
		udp, err := transport.NewUDPPublisher(cfg.UDPAddr)
		if err != nil {
			multi.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		multi = append(multi, udp)
	}
	if len(multi) == 0 {
		return transport.Null{}, nil
	}
	return multi, nil
}
