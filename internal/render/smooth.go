package render

import "github.com/charmbracelet/harmonica"

// Smoother applies critically-damped spring motion to bar heights so
// frames animate smoothly instead of snapping to each analysis result.
type Smoother struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

// NewSmoother creates per-bar springs stepped at the given frame rate.
// Higher angularFreq tracks the signal faster; 1.0 damping avoids
// overshoot.
func NewSmoother(numBars, fps int, angularFreq float64) *Smoother {
	if angularFreq <= 0 {
		angularFreq = 18
	}
	return &Smoother{
		spring: harmonica.NewSpring(harmonica.FPS(fps), angularFreq, 1.0),
		pos:    make([]float64, numBars),
		vel:    make([]float64, numBars),
	}
}

// Step advances every spring one frame toward targets and writes the
// smoothed values into dst. dst and targets must have the bar count the
// smoother was built with.
func (s *Smoother) Step(targets []float32, dst []float32) {
	for i := range s.pos {
		s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], float64(targets[i]))
		dst[i] = clamp01(float32(s.pos[i]))
	}
}

// Reset zeroes all spring state.
func (s *Smoother) Reset() {
	for i := range s.pos {
		s.pos[i] = 0
		s.vel[i] = 0
	}
}
