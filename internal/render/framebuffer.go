// Package render draws band energies as instanced bars into a float
// framebuffer, applies bloom post-processing, and reads frames back as
// 8-bit RGBA. All pixel passes run as kernels on a compute.Dispatcher.
package render

import "math"

// Framebuffer is a linear float32 RGBA target. Values are unclamped
// until readback; the bloom chain relies on headroom above 1.
type Framebuffer struct {
	Width  int
	Height int
	Pix    []float32 // len Width*Height*4, row-major RGBA
}

// NewFramebuffer allocates a zeroed target.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
}

// Clear fills every pixel with the given color.
func (f *Framebuffer) Clear(r, g, b, a float32) {
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
		f.Pix[i+3] = a
	}
}

// At returns the RGBA value at (x, y). Out-of-bounds coordinates clamp
// to the edge, matching sampler edge behavior in the blur passes.
func (f *Framebuffer) At(x, y int) (r, g, b, a float32) {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Set writes the RGBA value at (x, y). Out-of-bounds writes are
// dropped.
func (f *Framebuffer) Set(x, y int, r, g, b, a float32) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * 4
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
	f.Pix[i+3] = a
}

// ToRGBA8 converts the framebuffer into 8-bit RGBA, clamping to [0, 1].
// dst must hold Width*Height*4 bytes.
func (f *Framebuffer) ToRGBA8(dst []byte) {
	for i, v := range f.Pix {
		dst[i] = byte(clamp01(v)*255 + 0.5)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	if math.IsNaN(float64(v)) {
		return 0
	}
	return v
}
