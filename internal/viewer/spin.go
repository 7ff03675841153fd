package viewer

import "github.com/charmbracelet/harmonica"

// SpinAxis is a rotation angle driven by a velocity that a spring pulls
// back to zero after each impulse.
type SpinAxis struct {
	Position float64
	Velocity float64

	spring   harmonica.Spring
	velAccel float64
}

// NewSpinAxis returns an axis stepped fps times per second. Damping 1 is
// critically damped.
func NewSpinAxis(fps int, frequency, damping float64) SpinAxis {
	return SpinAxis{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// Impulse adds to the velocity.
func (a *SpinAxis) Impulse(v float64) {
	a.Velocity += v
}

// Update advances the position by one step and decays the velocity.
func (a *SpinAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.spring.Update(a.Velocity, a.velAccel, 0)
}

// Reset stops the axis at angle zero.
func (a *SpinAxis) Reset() {
	a.Position, a.Velocity, a.velAccel = 0, 0, 0
}
