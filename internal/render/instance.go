package render

// Layout selects how bars are arranged in the target.
type Layout int

const (
	// LayoutVertical grows bars upward from the bottom edge.
	LayoutVertical Layout = iota
	// LayoutHorizontal grows bars rightward from the left edge.
	LayoutHorizontal
	// LayoutMirror grows bars both ways from the vertical center.
	LayoutMirror
)

// String returns the layout name as used in config files.
func (l Layout) String() string {
	switch l {
	case LayoutVertical:
		return "vertical"
	case LayoutHorizontal:
		return "horizontal"
	case LayoutMirror:
		return "mirror"
	default:
		return "unknown"
	}
}

// ParseLayout converts a config string to a Layout. Unknown strings
// select LayoutVertical and report false.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "vertical":
		return LayoutVertical, true
	case "horizontal":
		return LayoutHorizontal, true
	case "mirror":
		return LayoutMirror, true
	default:
		return LayoutVertical, false
	}
}

// BarInstance is the per-bar draw input. The rasterizer derives the
// full quad from the index, the height, and the shared draw params.
type BarInstance struct {
	Height float32 // normalized 0..1
	Index  uint32
}

// cornerOffsets maps a corner id to its position in the quad's local
// -1..1 space.
var cornerOffsets = [4][2]float32{
	{-1, -1},
	{1, -1},
	{-1, 1},
	{1, 1},
}

// Geometry constants. The gap fraction and height scales keep bars from
// touching and leave headroom above the tallest bar.
const (
	gapFraction       = 0.1
	heightScale       = 0.8
	mirrorHeightScale = 0.4
	beatScaleGain     = 0.15
	glowExpand        = 1.3
)

// BuildInstances converts band values into bar instances, clamping
// heights to [0, 1]. dst is reused when it has capacity.
func BuildInstances(bands []float32, dst []BarInstance) []BarInstance {
	dst = dst[:0]
	for i, v := range bands {
		dst = append(dst, BarInstance{
			Height: clamp01(v),
			Index:  uint32(i),
		})
	}
	return dst
}

// barQuad is an axis-aligned rectangle in pixel space, with the core
// extent before glow expansion. Expansion scales the quad around its
// center by glowExpand; pixels between the core and expanded extents
// get the glow falloff.
type barQuad struct {
	cx, cy float32 // center
	hw, hh float32 // core half extents
}

// corner returns the position of one expanded quad corner, resolved
// through the corner lookup table instead of per-corner branching.
func (q barQuad) corner(id int, expand float32) (x, y float32) {
	off := cornerOffsets[id]
	return q.cx + off[0]*q.hw*expand, q.cy + off[1]*q.hh*expand
}

// quadFor computes the bar rectangle for one instance.
//
// A bar occupies its slot minus the gap on each side. Height is the
// band value scaled by the layout's height fraction and the beat pulse.
func quadFor(inst BarInstance, width, height, numBars int, layout Layout, beat float32) barQuad {
	beatScale := 1 + beatScaleGain*beat

	switch layout {
	case LayoutHorizontal:
		slot := float32(height) / float32(numBars)
		gap := slot * gapFraction
		barLen := inst.Height * float32(width) * heightScale * beatScale
		return barQuad{
			cx: barLen / 2,
			cy: float32(inst.Index)*slot + slot/2,
			hw: barLen / 2,
			hh: slot/2 - gap,
		}
	case LayoutMirror:
		slot := float32(width) / float32(numBars)
		gap := slot * gapFraction
		barLen := inst.Height * float32(height) * mirrorHeightScale * beatScale
		return barQuad{
			cx: float32(inst.Index)*slot + slot/2,
			cy: float32(height) / 2,
			hw: slot/2 - gap,
			hh: barLen,
		}
	default: // LayoutVertical
		slot := float32(width) / float32(numBars)
		gap := slot * gapFraction
		barLen := inst.Height * float32(height) * heightScale * beatScale
		return barQuad{
			cx: float32(inst.Index)*slot + slot/2,
			cy: float32(height) - barLen/2,
			hw: slot/2 - gap,
			hh: barLen / 2,
		}
	}
}
