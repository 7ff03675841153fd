// Package orbit implements a camera that orbits a look-at point, driven by
// pointer drags (rotate and pan) and wheel steps (zoom).
package orbit

import (
	"math"

	"github.com/taigrr/cubic/pkg/math3d"
)

// Default camera parameters.
const (
	DefaultDistance    = 5.0
	DefaultMinDistance = 1.0
	DefaultMaxDistance = 20.0
	DefaultMoveScale   = 2.0
)

const (
	scaleDecay   = 0.7
	wheelImpulse = 0.5
	maxPitch     = 0.25 // Turns
)

// Option configures a Camera.
type Option func(*Camera)

// WithDistance sets the initial eye distance.
func WithDistance(d float64) Option {
	return func(c *Camera) {
		c.distance = d
	}
}

// WithDistanceRange sets the zoom limits.
func WithDistanceRange(minDistance, maxDistance float64) Option {
	return func(c *Camera) {
		c.minDistance = minDistance
		c.maxDistance = maxDistance
	}
}

// WithMoveScale sets the pan speed.
func WithMoveScale(s float64) Option {
	return func(c *Camera) {
		c.moveScale = s
	}
}

// Camera is an orbit camera. Input events accumulate rotation, pan and zoom
// impulses; Update folds them into a view matrix once per frame.
type Camera struct {
	bounds Bounds

	distance    float64
	home        float64 // Distance restored by Reset
	minDistance float64
	maxDistance float64
	moveScale   float64

	rotateX float64 // Yaw in turns
	rotateY float64 // Pitch in turns
	scale   float64 // Pending zoom impulse
	pan     math3d.Vec3

	down bool
	prev math3d.Vec2

	orientation math3d.Quat
	position    math3d.Vec3
	center      math3d.Vec3
	up          math3d.Vec3
	view        math3d.Mat4
}

var _ InputHandler = (*Camera)(nil)

// New creates a camera for a surface with the given bounds.
func New(bounds Bounds, opts ...Option) *Camera {
	c := &Camera{
		bounds:      bounds,
		distance:    DefaultDistance,
		minDistance: DefaultMinDistance,
		maxDistance: DefaultMaxDistance,
		moveScale:   DefaultMoveScale,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.home = c.distance
	c.Reset()
	return c
}

// Reset drops all rotation, pan and pending zoom and restores the initial
// distance.
func (c *Camera) Reset() {
	c.distance = c.home
	c.rotateX, c.rotateY, c.scale = 0, 0, 0
	c.pan = math3d.Vec3{}
	c.down = false
	c.orientation = math3d.QuatIdentity()
	c.up = math3d.Up()
	c.center = math3d.Vec3{}
	c.position = math3d.V3(0, 0, c.distance)
	c.view = math3d.LookAt(c.position, c.center, c.up)
}

// SetBounds updates the target surface rectangle, e.g. after a resize.
func (c *Camera) SetBounds(b Bounds) { c.bounds = b }

// Bounds returns the target surface rectangle.
func (c *Camera) Bounds() Bounds { return c.bounds }

// PointerDown starts a drag at the event position.
func (c *Camera) PointerDown(e PointerEvent) {
	c.down = true
	x, y := c.bounds.local(e.X, e.Y)
	c.prev = math3d.V2(x, y)
}

// PointerMove rotates with the primary button and pans with the secondary
// button. Moves outside a drag are ignored.
func (c *Camera) PointerMove(e PointerEvent) {
	if !c.down {
		return
	}
	x, y := c.bounds.local(e.X, e.Y)
	s := c.bounds.sensitivity()
	dx, dy := x-c.prev.X, y-c.prev.Y
	c.prev = math3d.V2(x, y)

	switch e.Buttons {
	case ButtonPrimary:
		c.rotateX = math.Mod(c.rotateX+dx*s, 1)
		c.rotateY = max(-maxPitch, min(math.Mod(c.rotateY+dy*s, 1), maxPitch))
	case ButtonSecondary:
		eye := c.orientation.RotateVec3(math3d.V3(dx, -dy, 0))
		c.pan = c.pan.Sub(eye.Scale(s * c.moveScale))
	}
}

// PointerUp ends the drag.
func (c *Camera) PointerUp(PointerEvent) {
	c.down = false
}

// Wheel sets a fixed zoom impulse in the direction of the scroll.
func (c *Camera) Wheel(e WheelEvent) {
	switch {
	case e.DeltaY > 0:
		c.scale = wheelImpulse
	case e.DeltaY < 0:
		c.scale = -wheelImpulse
	}
}

// Update decays the zoom impulse, rebuilds the orientation from yaw and
// pitch and returns the view matrix. Call it once per frame.
func (c *Camera) Update() math3d.Mat4 {
	c.scale *= scaleDecay
	c.distance = max(c.minDistance, min(c.distance+c.scale, c.maxDistance))

	// Pitch turns about the yaw-rotated right axis.
	yaw := math3d.QuatRotate(c.rotateX*2*math.Pi, math3d.Up())
	right := yaw.RotateVec3(math3d.Right())
	pitch := math3d.QuatRotate(c.rotateY*2*math.Pi, right)
	math3d.QuatMulInto(&c.orientation, yaw, pitch)

	c.position = c.orientation.RotateVec3(math3d.V3(0, 0, c.distance)).Add(c.pan)
	c.up = c.orientation.RotateVec3(math3d.Up())
	c.center = c.pan
	math3d.LookAtInto(&c.view, c.position, c.center, c.up)
	return c.view
}

// View returns the view matrix computed by the last Update.
func (c *Camera) View() math3d.Mat4 { return c.view }

// ViewProjection returns p's matrix times the current view matrix.
func (c *Camera) ViewProjection(p *Projection) math3d.Mat4 {
	return p.Matrix().Mul(c.view)
}

// Position returns the eye position of the last Update.
func (c *Camera) Position() math3d.Vec3 { return c.position }

// Center returns the look-at point of the last Update.
func (c *Camera) Center() math3d.Vec3 { return c.center }

// UpDirection returns the up vector of the last Update.
func (c *Camera) UpDirection() math3d.Vec3 { return c.up }

// Orientation returns the rotation of the last Update.
func (c *Camera) Orientation() math3d.Quat { return c.orientation }

// Distance returns the current eye distance.
func (c *Camera) Distance() float64 { return c.distance }

// Rotation returns the accumulated yaw and pitch in turns.
func (c *Camera) Rotation() (yaw, pitch float64) { return c.rotateX, c.rotateY }

// Pan returns the accumulated pan offset.
func (c *Camera) Pan() math3d.Vec3 { return c.pan }

// Dragging reports whether a pointer is held down.
func (c *Camera) Dragging() bool { return c.down }

// Impulse returns the pending zoom impulse.
func (c *Camera) Impulse() float64 { return c.scale }
