package math3d

import "math"

// VPFromCameraProperty builds the view and projection matrices for a camera
// at eye looking at center and returns them along with their product
// projection * view. fovy is in degrees.
func VPFromCameraProperty(eye, center, up Vec3, fovy, aspect, near, far float64) (view, proj, vp Mat4) {
	VPFromCameraPropertyInto(&view, &proj, &vp, eye, center, up, fovy, aspect, near, far)
	return view, proj, vp
}

// VPFromCameraPropertyInto is VPFromCameraProperty writing into caller-owned matrices.
func VPFromCameraPropertyInto(view, proj, vp *Mat4, eye, center, up Vec3, fovy, aspect, near, far float64) {
	LookAtInto(view, eye, center, up)
	PerspectiveInto(proj, fovy, aspect, near, far)
	MulInto(vp, *proj, *view)
}

// ScreenPositionFromMVP projects p through mvp into pixel coordinates of a
// width x height surface, origin top-left with y down. Points at or behind
// the eye plane (clip w <= 0) return (NaN, NaN); check with Vec2.IsNaN.
func ScreenPositionFromMVP(mvp Mat4, p Vec3, width, height float64) Vec2 {
	c := mvp.MulVec4(V4FromV3(p, 1))
	if c.W <= 0 {
		return Vec2{math.NaN(), math.NaN()}
	}
	hw, hh := width*0.5, height*0.5
	ndc := c.PerspectiveDivide()
	return Vec2{hw + ndc.X*hw, hh - ndc.Y*hh}
}
