package math3d

import "math"

// Mat4 is a 4x4 matrix stored in column-major order, matching the layout
// shader uniforms expect.
//
// Memory layout (indices):
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
//
// Every operation comes in two forms: a value form returning a new matrix and
// an Into form writing into caller-owned storage so per-frame code can reuse
// scratch matrices. Into forms tolerate out aliasing an input.
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	IdentityInto(&m)
	return m
}

// IdentityInto overwrites out with the identity matrix.
func IdentityInto(out *Mat4) {
	*out = Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul multiplies two matrices: a * b. Applied to a column vector, b acts first.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	MulInto(&m, a, b)
	return m
}

// MulInto writes a * b into out.
func MulInto(out *Mat4, a, b Mat4) {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += a[row+k*4] * b[k+col*4]
			}
			m[row+col*4] = sum
		}
	}
	*out = m
}

// Scale returns m with its first three columns scaled by v.
func (m Mat4) Scale(v Vec3) Mat4 {
	var out Mat4
	ScaleInto(&out, m, v)
	return out
}

// ScaleInto writes m scaled by v into out.
func ScaleInto(out *Mat4, m Mat4, v Vec3) {
	s := [3]float64{v.X, v.Y, v.Z}
	r := m
	for col := range 3 {
		for row := range 4 {
			r[row+col*4] = m[row+col*4] * s[col]
		}
	}
	*out = r
}

// Translate returns m followed by a translation of v in m's local space.
func (m Mat4) Translate(v Vec3) Mat4 {
	var out Mat4
	TranslateInto(&out, m, v)
	return out
}

// TranslateInto writes m translated by v into out.
func TranslateInto(out *Mat4, m Mat4, v Vec3) {
	r := m
	for row := range 4 {
		r[row+12] = m[row]*v.X + m[row+4]*v.Y + m[row+8]*v.Z + m[row+12]
	}
	*out = r
}

// Rotate returns m rotated by angle radians around axis. The axis is
// normalized unless its length is exactly 1. The translation column of m is
// preserved.
func (m Mat4) Rotate(angle float64, axis Vec3) Mat4 {
	var out Mat4
	RotateInto(&out, m, angle, axis)
	return out
}

// RotateInto writes m rotated by angle around axis into out.
func RotateInto(out *Mat4, m Mat4, angle float64, axis Vec3) {
	a, b, c := axis.X, axis.Y, axis.Z
	if l := axis.Len(); l != 1 {
		i := 1 / l
		a, b, c = a*i, b*i, c*i
	}
	s, co := math.Sin(angle), math.Cos(angle)
	t := 1 - co

	// Rodrigues basis, one column per rotated axis.
	rot := [9]float64{
		a*a*t + co, b*a*t + c*s, c*a*t - b*s,
		a*b*t - c*s, b*b*t + co, c*b*t + a*s,
		a*c*t + b*s, b*c*t - a*s, c*c*t + co,
	}

	r := m
	for col := range 3 {
		for row := range 4 {
			r[row+col*4] = m[row]*rot[col*3] + m[row+4]*rot[col*3+1] + m[row+8]*rot[col*3+2]
		}
	}
	*out = r
}

// Translation creates a translation matrix.
func Translation(v Vec3) Mat4 {
	return Identity().Translate(v)
}

// Scaling creates a scaling matrix.
func Scaling(v Vec3) Mat4 {
	return Identity().Scale(v)
}

// Rotation creates a rotation matrix of angle radians around axis.
func Rotation(angle float64, axis Vec3) Mat4 {
	return Identity().Rotate(angle, axis)
}

// LookAt creates a view matrix looking from eye towards center.
// eye must differ from center. A degenerate up vector yields a zero basis
// row rather than NaN.
func LookAt(eye, center, up Vec3) Mat4 {
	var m Mat4
	LookAtInto(&m, eye, center, up)
	return m
}

// LookAtInto writes the view matrix for eye, center and up into out.
func LookAtInto(out *Mat4, eye, center, up Vec3) {
	z := eye.Sub(center)
	z = z.Scale(1 / z.Len())
	x := up.Cross(z).Normalize()
	y := z.Cross(x).Normalize()

	*out = Mat4{
		x.X, y.X, z.X, 0,
		x.Y, y.Y, z.Y, 0,
		x.Z, y.Z, z.Z, 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// Perspective creates a perspective projection matrix.
// fovy is the vertical field of view in degrees and aspect is width/height.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	var m Mat4
	PerspectiveInto(&m, fovy, aspect, near, far)
	return m
}

// PerspectiveInto writes a perspective projection into out.
func PerspectiveInto(out *Mat4, fovy, aspect, near, far float64) {
	t := near * math.Tan(fovy*math.Pi/360)
	r := t * aspect
	a := r * 2
	b := t * 2
	c := far - near

	*out = Mat4{
		near * 2 / a, 0, 0, 0,
		0, near * 2 / b, 0, 0,
		0, 0, -(far + near) / c, -1,
		0, 0, -(far * near * 2) / c, 0,
	}
}

// Ortho creates an orthographic projection matrix.
func Ortho(left, right, top, bottom, near, far float64) Mat4 {
	var m Mat4
	OrthoInto(&m, left, right, top, bottom, near, far)
	return m
}

// OrthoInto writes an orthographic projection into out.
func OrthoInto(out *Mat4, left, right, top, bottom, near, far float64) {
	h := right - left
	v := top - bottom
	d := far - near

	*out = Mat4{
		2 / h, 0, 0, 0,
		0, 2 / v, 0, 0,
		0, 0, -2 / d, 0,
		-(left + right) / h, -(top + bottom) / v, -(far + near) / d, 1,
	}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	TransposeInto(&out, m)
	return out
}

// TransposeInto writes the transpose of m into out.
func TransposeInto(out *Mat4, m Mat4) {
	*out = Mat4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

// Determinant returns the determinant of the matrix.
func (m Mat4) Determinant() float64 {
	c := m.cofactors()
	return c.s[0]*c.c[5] - c.s[1]*c.c[4] + c.s[2]*c.c[3] + c.s[3]*c.c[2] - c.s[4]*c.c[1] + c.s[5]*c.c[0]
}

// Inverse returns the inverse of the matrix. A singular matrix produces
// non-finite elements; callers must only invert invertible transforms.
func (m Mat4) Inverse() Mat4 {
	var out Mat4
	InverseInto(&out, m)
	return out
}

// InverseInto writes the inverse of m into out.
func InverseInto(out *Mat4, m Mat4) {
	f := m.cofactors()
	s, c := f.s, f.c
	ivd := 1 / (s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0])

	*out = Mat4{
		(m[5]*c[5] - m[6]*c[4] + m[7]*c[3]) * ivd,
		(-m[1]*c[5] + m[2]*c[4] - m[3]*c[3]) * ivd,
		(m[13]*s[5] - m[14]*s[4] + m[15]*s[3]) * ivd,
		(-m[9]*s[5] + m[10]*s[4] - m[11]*s[3]) * ivd,
		(-m[4]*c[5] + m[6]*c[2] - m[7]*c[1]) * ivd,
		(m[0]*c[5] - m[2]*c[2] + m[3]*c[1]) * ivd,
		(-m[12]*s[5] + m[14]*s[2] - m[15]*s[1]) * ivd,
		(m[8]*s[5] - m[10]*s[2] + m[11]*s[1]) * ivd,
		(m[4]*c[4] - m[5]*c[2] + m[7]*c[0]) * ivd,
		(-m[0]*c[4] + m[1]*c[2] - m[3]*c[0]) * ivd,
		(m[12]*s[4] - m[13]*s[2] + m[15]*s[0]) * ivd,
		(-m[8]*s[4] + m[9]*s[2] - m[11]*s[0]) * ivd,
		(-m[4]*c[3] + m[5]*c[1] - m[6]*c[0]) * ivd,
		(m[0]*c[3] - m[1]*c[1] + m[2]*c[0]) * ivd,
		(-m[12]*s[3] + m[13]*s[1] - m[14]*s[0]) * ivd,
		(m[8]*s[3] - m[9]*s[1] + m[10]*s[0]) * ivd,
	}
}

// minors holds the 2x2 sub-determinants shared by Determinant and Inverse.
type minors struct {
	s, c [6]float64
}

func (m Mat4) cofactors() minors {
	return minors{
		s: [6]float64{
			m[0]*m[5] - m[1]*m[4],
			m[0]*m[6] - m[2]*m[4],
			m[0]*m[7] - m[3]*m[4],
			m[1]*m[6] - m[2]*m[5],
			m[1]*m[7] - m[3]*m[5],
			m[2]*m[7] - m[3]*m[6],
		},
		c: [6]float64{
			m[8]*m[13] - m[9]*m[12],
			m[8]*m[14] - m[10]*m[12],
			m[8]*m[15] - m[11]*m[12],
			m[9]*m[14] - m[10]*m[13],
			m[9]*m[15] - m[11]*m[13],
			m[10]*m[15] - m[11]*m[14],
		},
	}
}

// MulVec4 transforms a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// MulVec3 transforms a Vec3 as a point (w=1) without perspective division.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 1)).Vec3()
}

// MulVec3Dir transforms a Vec3 as a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 0)).Vec3()
}

// Get returns the element at (row, col).
func (m Mat4) Get(row, col int) float64 {
	return m[row+col*4]
}

// Float32 returns the matrix narrowed to float32 for uniform upload.
func (m Mat4) Float32() [16]float32 {
	var f [16]float32
	for i, v := range m {
		f[i] = float32(v)
	}
	return f
}

// ApproxEqual reports whether every element of a and b differs by at most eps.
func (m Mat4) ApproxEqual(b Mat4, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
