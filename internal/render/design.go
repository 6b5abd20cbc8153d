package render

import (
	"context"
	"fmt"

	"audioviz/internal/compute"
	"audioviz/internal/log"
)

// Options configures a DesignRenderer.
type Options struct {
	Width     int
	Height    int
	NumBars   int
	FPS       int
	Layout    Layout
	Glow      bool
	ColorLow  [4]float32
	ColorHigh [4]float32
	Bloom     BloomParams
	Smoothing float64 // spring angular frequency; <= 0 selects the default
}

// FrameFuture is a pending frame readback. Wait blocks until the pixel
// conversion finishes and returns the 8-bit RGBA frame. The returned
// buffer is owned by the caller.
type FrameFuture struct {
	done chan struct{}
	pix  []byte
	err  error
}

// Wait blocks until the readback completes.
func (f *FrameFuture) Wait() ([]byte, error) {
	<-f.done
	return f.pix, f.err
}

// DesignRenderer turns per-frame band data into finished video frames:
// spring smoothing, instanced bar draw, bloom, and an asynchronous
// RGBA8 readback. Frames are strictly sequential; RenderFrame waits for
// the previous frame's readback before reusing the scene target.
type DesignRenderer struct {
	opts   Options
	device compute.Dispatcher

	bars     *InstanceRenderer
	post     *PostProcessChain
	smoother *Smoother

	scene     *Framebuffer
	smoothed  []float32
	instances []BarInstance

	pending *FrameFuture
	frame   int
}

// NewDesignRenderer validates options and allocates the render targets.
func NewDesignRenderer(opts Options, device compute.Dispatcher) (*DesignRenderer, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return nil, fmt.Errorf("render: invalid target size %dx%d", opts.Width, opts.Height)
	}
	if opts.NumBars < 1 {
		return nil, fmt.Errorf("render: bar count must be positive, got %d", opts.NumBars)
	}
	if opts.FPS < 1 {
		return nil, fmt.Errorf("render: fps must be positive, got %d", opts.FPS)
	}
	if opts.Bloom.BlurPasses < 0 {
		return nil, fmt.Errorf("render: blur passes must be non-negative, got %d", opts.Bloom.BlurPasses)
	}

	log.Debugf("Render: %dx%d, %d bars, %s layout", opts.Width, opts.Height, opts.NumBars, opts.Layout)
	return &DesignRenderer{
		opts:      opts,
		device:    device,
		bars:      NewInstanceRenderer(opts.Width, opts.Height, opts.NumBars, device),
		post:      NewPostProcessChain(opts.Width, opts.Height, device),
		smoother:  NewSmoother(opts.NumBars, opts.FPS, opts.Smoothing),
		scene:     NewFramebuffer(opts.Width, opts.Height),
		smoothed:  make([]float32, opts.NumBars),
		instances: make([]BarInstance, 0, opts.NumBars),
	}, nil
}

// RenderFrame draws one frame from band values and the beat envelope,
// returning a future for the readback. bands must have NumBars entries.
func (r *DesignRenderer) RenderFrame(ctx context.Context, bands []float32, beat float32) (*FrameFuture, error) {
	if len(bands) != r.opts.NumBars {
		return nil, fmt.Errorf("render: got %d bands, want %d", len(bands), r.opts.NumBars)
	}

	// The previous readback still reads the scene target.
	if r.pending != nil {
		if _, err := r.pending.Wait(); err != nil {
			log.Warnf("Render: frame %d readback failed: %v", r.frame-1, err)
		}
		r.pending = nil
	}

	r.smoother.Step(bands, r.smoothed)
	r.instances = BuildInstances(r.smoothed, r.instances)

	r.scene.Clear(0, 0, 0, 1)
	err := r.bars.Draw(ctx, r.scene, r.instances, DrawParams{
		Layout:    r.opts.Layout,
		Beat:      beat,
		Glow:      r.opts.Glow,
		ColorLow:  r.opts.ColorLow,
		ColorHigh: r.opts.ColorHigh,
	})
	if err != nil {
		return nil, fmt.Errorf("render: frame %d draw: %w", r.frame, err)
	}

	if r.opts.Bloom.BlurPasses > 0 && r.opts.Bloom.Intensity > 0 {
		if err := r.post.Apply(ctx, r.scene, beat, r.opts.Bloom); err != nil {
			return nil, fmt.Errorf("render: frame %d bloom: %w", r.frame, err)
		}
	}

	future := &FrameFuture{
		done: make(chan struct{}),
		pix:  make([]byte, r.opts.Width*r.opts.Height*4),
	}
	go func() {
		r.scene.ToRGBA8(future.pix)
		close(future.done)
	}()

	r.pending = future
	r.frame++
	return future, nil
}

// Flush waits for any in-flight readback. Call before discarding the
// renderer.
func (r *DesignRenderer) Flush() {
	if r.pending != nil {
		r.pending.Wait()
		r.pending = nil
	}
}

// FrameCount returns the number of frames rendered so far.
func (r *DesignRenderer) FrameCount() int {
	return r.frame
}
