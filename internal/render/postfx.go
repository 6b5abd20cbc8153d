package render

import (
	"context"

	"audioviz/internal/compute"
)

// BloomParams tunes the post-processing chain.
type BloomParams struct {
	Threshold  float32 // luminance cutoff for the bright pass
	Intensity  float32 // bloom contribution at composite
	BlurPasses int     // horizontal+vertical pairs
}

// DefaultBloom is the stock bloom look.
var DefaultBloom = BloomParams{
	Threshold:  0.3,
	Intensity:  1.2,
	BlurPasses: 2,
}

// gaussWeights is the 9-tap separable Gaussian kernel, center first.
var gaussWeights = [5]float32{0.227027, 0.194595, 0.121622, 0.054054, 0.016216}

// PostProcessChain applies bloom in place: bright-pass extraction,
// repeated separable blur, and tone-mapped composite. The chain owns
// two intermediate targets sized to the scene.
type PostProcessChain struct {
	width  int
	height int
	device compute.Dispatcher

	bright  *Framebuffer
	scratch *Framebuffer
}

// NewPostProcessChain allocates intermediates for the given scene size.
func NewPostProcessChain(width, height int, device compute.Dispatcher) *PostProcessChain {
	return &PostProcessChain{
		width:   width,
		height:  height,
		device:  device,
		bright:  NewFramebuffer(width, height),
		scratch: NewFramebuffer(width, height),
	}
}

// Apply runs the full chain over scene. The beat envelope lowers the
// bright-pass threshold and raises the composite intensity, so bloom
// pumps with the music.
func (c *PostProcessChain) Apply(ctx context.Context, scene *Framebuffer, beat float32, p BloomParams) error {
	// Zero intensity is an exact identity, not a tone-mapped no-op.
	if p.Intensity == 0 {
		return nil
	}
	n := c.width * c.height

	if err := c.device.Dispatch(ctx, n, c.extractKernel(scene, beat, p.Threshold)); err != nil {
		return err
	}

	for pass := 0; pass < p.BlurPasses; pass++ {
		if err := c.device.Dispatch(ctx, n, blurKernel(c.bright, c.scratch, 1, 0)); err != nil {
			return err
		}
		if err := c.device.Dispatch(ctx, n, blurKernel(c.scratch, c.bright, 0, 1)); err != nil {
			return err
		}
	}

	return c.device.Dispatch(ctx, n, c.compositeKernel(scene, beat, p.Intensity))
}

// extractKernel copies pixels whose luminance clears the threshold into
// the bright target, with a smoothstep shoulder instead of a hard
// cutoff. The threshold drops by up to 30% at full beat.
func (c *PostProcessChain) extractKernel(scene *Framebuffer, beat, threshold float32) compute.Kernel {
	adjusted := threshold * (1 - 0.3*beat)
	return func(i int) {
		o := i * 4
		r := scene.Pix[o]
		g := scene.Pix[o+1]
		b := scene.Pix[o+2]
		a := scene.Pix[o+3]

		lum := 0.2126*r + 0.7152*g + 0.0722*b
		factor := smoothstep(adjusted, adjusted+0.2, lum)

		c.bright.Pix[o] = r * factor
		c.bright.Pix[o+1] = g * factor
		c.bright.Pix[o+2] = b * factor
		c.bright.Pix[o+3] = a * factor
	}
}

// blurKernel is one direction of the separable 9-tap Gaussian. Taps
// past the edge clamp to the border pixel.
func blurKernel(src, dst *Framebuffer, dx, dy int) compute.Kernel {
	return func(i int) {
		x := i % src.Width
		y := i / src.Width

		r, g, b, a := src.At(x, y)
		r *= gaussWeights[0]
		g *= gaussWeights[0]
		b *= gaussWeights[0]
		a *= gaussWeights[0]

		for tap := 1; tap < len(gaussWeights); tap++ {
			w := gaussWeights[tap]
			r1, g1, b1, a1 := src.At(x+dx*tap, y+dy*tap)
			r2, g2, b2, a2 := src.At(x-dx*tap, y-dy*tap)
			r += (r1 + r2) * w
			g += (g1 + g2) * w
			b += (b1 + b2) * w
			a += (a1 + a2) * w
		}

		o := i * 4
		dst.Pix[o] = r
		dst.Pix[o+1] = g
		dst.Pix[o+2] = b
		dst.Pix[o+3] = a
	}
}

// compositeKernel adds the blurred bloom over the scene and tone-maps
// the sum back into displayable range with a scaled Reinhard curve.
func (c *PostProcessChain) compositeKernel(scene *Framebuffer, beat, intensity float32) compute.Kernel {
	effective := intensity * (1 + 0.5*beat)
	return func(i int) {
		o := i * 4
		for ch := 0; ch < 3; ch++ {
			sum := scene.Pix[o+ch] + c.bright.Pix[o+ch]*effective
			scene.Pix[o+ch] = clamp01(sum / (sum + 1) * 2)
		}

		bloomA := c.bright.Pix[o+3] * effective
		if bloomA > scene.Pix[o+3] {
			scene.Pix[o+3] = bloomA
		}
		scene.Pix[o+3] = clamp01(scene.Pix[o+3])
	}
}

func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
