package math3d

import "math"

// slerpEpsilon is the sin(θ) below which Slerp blends linearly.
const slerpEpsilon = 0.0001

// Quat is a rotation quaternion with imaginary part (X, Y, Z) and real part W.
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// QuatRotate returns the rotation of angle radians around axis.
// The axis is normalized first, so the result is unit length for any
// non-zero axis.
func QuatRotate(angle float64, axis Vec3) Quat {
	var q Quat
	QuatRotateInto(&q, angle, axis)
	return q
}

// QuatRotateInto writes the rotation of angle radians around axis into out.
func QuatRotateInto(out *Quat, angle float64, axis Vec3) {
	a := axis.Normalize()
	s, c := math.Sincos(angle * 0.5)
	*out = Quat{a.X * s, a.Y * s, a.Z * s, c}
}

// Inverse returns the conjugate, which is the inverse of a unit quaternion.
func (q Quat) Inverse() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Len returns the quaternion norm.
func (q Quat) Len() float64 {
	return math.Sqrt(q.Dot(q))
}

// Dot returns the four-component dot product.
//
//nolint:st1016 // a·b naming convention is clearer for vector operations
func (a Quat) Dot(b Quat) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Normalize returns the unit quaternion in the same direction. The zero
// quaternion normalizes to the identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l == 0 {
		return QuatIdentity()
	}
	i := 1 / l
	return Quat{q.X * i, q.Y * i, q.Z * i, q.W * i}
}

// Mul returns the Hamilton product a ⊗ b.
//
//nolint:st1016 // a*b naming convention is clearer for quaternion products
func (a Quat) Mul(b Quat) Quat {
	var q Quat
	QuatMulInto(&q, a, b)
	return q
}

// QuatMulInto writes a ⊗ b into out.
func QuatMulInto(out *Quat, a, b Quat) {
	*out = Quat{
		X: a.X*b.W + a.W*b.X + a.Y*b.Z - a.Z*b.Y,
		Y: a.Y*b.W + a.W*b.Y + a.Z*b.X - a.X*b.Z,
		Z: a.Z*b.W + a.W*b.Z + a.X*b.Y - a.Y*b.X,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// RotateVec3 rotates v by conjugation q⁻¹ ⊗ (v, 0) ⊗ q.
func (q Quat) RotateVec3(v Vec3) Vec3 {
	r := q.Inverse().Mul(Quat{v.X, v.Y, v.Z, 0}).Mul(q)
	return Vec3{r.X, r.Y, r.Z}
}

// Mat4 returns the rotation matrix equivalent to RotateVec3, so that
// q.Mat4().MulVec3Dir(v) equals q.RotateVec3(v).
func (q Quat) Mat4() Mat4 {
	var m Mat4
	QuatMat4Into(&m, q)
	return m
}

// QuatMat4Into writes the rotation matrix of q into out.
func QuatMat4Into(out *Mat4, q Quat) {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	*out = Mat4{
		1 - (yy + zz), xy - wz, xz + wy, 0,
		xy + wz, 1 - (xx + zz), yz - wx, 0,
		xz - wy, yz + wx, 1 - (xx + yy), 0,
		0, 0, 0, 1,
	}
}

// Slerp spherically interpolates from q0 (t=0) to q1 (t=1). Inputs are not
// flipped onto the same hemisphere, so the endpoints are returned exactly.
// Nearly identical inputs blend linearly.
func Slerp(q0, q1 Quat, t float64) Quat {
	var q Quat
	SlerpInto(&q, q0, q1, t)
	return q
}

// SlerpInto writes the interpolation of q0 and q1 at t into out.
func SlerpInto(out *Quat, q0, q1 Quat, t float64) {
	ht := q0.Dot(q1)
	hs := 1 - ht*ht
	if hs <= 0 {
		*out = q0
		return
	}
	hs = math.Sqrt(hs)
	if math.Abs(hs) < slerpEpsilon {
		*out = Quat{
			q0.X + (q1.X-q0.X)*t,
			q0.Y + (q1.Y-q0.Y)*t,
			q0.Z + (q1.Z-q0.Z)*t,
			q0.W + (q1.W-q0.W)*t,
		}
		return
	}
	ph := math.Acos(ht)
	pt := ph * t
	t0 := math.Sin(ph-pt) / hs
	t1 := math.Sin(pt) / hs
	*out = Quat{
		q0.X*t0 + q1.X*t1,
		q0.Y*t0 + q1.Y*t1,
		q0.Z*t0 + q1.Z*t1,
		q0.W*t0 + q1.W*t1,
	}
}

// ApproxEqual reports whether every component of q and b differs by at most eps.
func (q Quat) ApproxEqual(b Quat, eps float64) bool {
	return math.Abs(q.X-b.X) <= eps && math.Abs(q.Y-b.Y) <= eps &&
		math.Abs(q.Z-b.Z) <= eps && math.Abs(q.W-b.W) <= eps
}
