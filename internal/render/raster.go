package render

import (
	"context"

	"audioviz/internal/compute"
)

// DrawParams is the per-frame shared state for an instanced bar draw.
type DrawParams struct {
	Layout    Layout
	Beat      float32 // beat envelope, 0..1
	Glow      bool
	ColorLow  [4]float32 // bar color at index 0
	ColorHigh [4]float32 // bar color at the last index
}

// InstanceRenderer rasterizes bar instances into a framebuffer. One
// renderer owns one target size; the draw is dispatched row-parallel,
// each work item writing only its own scanline.
type InstanceRenderer struct {
	width   int
	height  int
	device  compute.Dispatcher
	numBars int
}

// NewInstanceRenderer creates a renderer for the given target size and
// bar count.
func NewInstanceRenderer(width, height, numBars int, device compute.Dispatcher) *InstanceRenderer {
	return &InstanceRenderer{
		width:   width,
		height:  height,
		device:  device,
		numBars: numBars,
	}
}

// Draw rasterizes all instances into target. The target is not cleared
// first; bars blend over whatever is already there.
func (r *InstanceRenderer) Draw(ctx context.Context, target *Framebuffer, instances []BarInstance, p DrawParams) error {
	quads := make([]barQuad, len(instances))
	colors := make([][4]float32, len(instances))
	denom := float32(1)
	if r.numBars > 1 {
		denom = float32(r.numBars - 1)
	}
	for i, inst := range instances {
		quads[i] = quadFor(inst, r.width, r.height, r.numBars, p.Layout, p.Beat)
		colors[i] = lerpColor(p.ColorLow, p.ColorHigh, float32(inst.Index)/denom)
	}

	expand := float32(1)
	if p.Glow {
		expand = glowExpand
	}

	return r.device.Dispatch(ctx, r.height, r.scanlineKernel(target, quads, colors, expand))
}

// scanlineKernel returns the per-row work item. Coverage is computed in
// the quad's local space: |local| <= 1 is the solid core, values up to
// the glow expansion fade out quadratically.
func (r *InstanceRenderer) scanlineKernel(target *Framebuffer, quads []barQuad, colors [][4]float32, expand float32) compute.Kernel {
	return func(y int) {
		py := float32(y) + 0.5
		row := target.Pix[y*r.width*4 : (y+1)*r.width*4]

		for qi, q := range quads {
			if q.hw <= 0 || q.hh <= 0 {
				continue
			}
			ly := (py - q.cy) / q.hh
			if ly < -expand || ly > expand {
				continue
			}

			left, _ := q.corner(0, expand)
			right, _ := q.corner(3, expand)
			x0 := int(left)
			x1 := int(right) + 1
			if x0 < 0 {
				x0 = 0
			}
			if x1 > r.width {
				x1 = r.width
			}

			c := colors[qi]
			for x := x0; x < x1; x++ {
				px := float32(x) + 0.5
				lx := (px - q.cx) / q.hw
				cov := coverage(lx, ly, expand)
				if cov <= 0 {
					continue
				}
				blendPixel(row[x*4:x*4+4:x*4+4], c, cov)
			}
		}
	}
}

// coverage returns the fragment alpha for local coordinates. Inside the
// core it is 1; in the glow ring it falls off with the square of the
// distance past the core edge.
func coverage(lx, ly, expand float32) float32 {
	d := abs32(lx)
	if a := abs32(ly); a > d {
		d = a
	}
	if d <= 1 {
		return 1
	}
	if d >= expand || expand <= 1 {
		return 0
	}
	t := 1 - (d-1)/(expand-1)
	return 0.6 * t * t
}

// blendPixel does standard source-over blending into px (RGBA).
func blendPixel(px []float32, c [4]float32, cov float32) {
	a := c[3] * cov
	inv := 1 - a
	px[0] = c[0]*a + px[0]*inv
	px[1] = c[1]*a + px[1]*inv
	px[2] = c[2]*a + px[2]*inv
	px[3] = a + px[3]*inv
}

func lerpColor(a, b [4]float32, t float32) [4]float32 {
	return [4]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
