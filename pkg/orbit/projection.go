package orbit

import "github.com/taigrr/cubic/pkg/math3d"

// Projection holds perspective parameters and caches their matrix.
type Projection struct {
	fovy   float64 // Degrees
	aspect float64
	near   float64
	far    float64

	matrix math3d.Mat4
	dirty  bool
}

// NewProjection creates a perspective projection. fovy is in degrees.
func NewProjection(fovy, aspect, near, far float64) *Projection {
	return &Projection{fovy: fovy, aspect: aspect, near: near, far: far, dirty: true}
}

// SetFovy sets the vertical field of view in degrees.
func (p *Projection) SetFovy(fovy float64) {
	p.fovy = fovy
	p.dirty = true
}

// SetAspect sets the width to height ratio.
func (p *Projection) SetAspect(aspect float64) {
	p.aspect = aspect
	p.dirty = true
}

// SetClipPlanes sets the near and far clipping planes.
func (p *Projection) SetClipPlanes(near, far float64) {
	p.near = near
	p.far = far
	p.dirty = true
}

// Fovy returns the vertical field of view in degrees.
func (p *Projection) Fovy() float64 { return p.fovy }

// Aspect returns the width to height ratio.
func (p *Projection) Aspect() float64 { return p.aspect }

// Near returns the near clip distance.
func (p *Projection) Near() float64 { return p.near }

// Far returns the far clip distance.
func (p *Projection) Far() float64 { return p.far }

// Matrix returns the projection matrix, recomputing it only after a change.
func (p *Projection) Matrix() math3d.Mat4 {
	if p.dirty {
		math3d.PerspectiveInto(&p.matrix, p.fovy, p.aspect, p.near, p.far)
		p.dirty = false
	}
	return p.matrix
}
