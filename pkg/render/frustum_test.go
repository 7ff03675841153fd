package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/cubic/pkg/math3d"
)

func TestPlaneDistanceToPoint(t *testing.T) {
	plane := Plane{Normal: math3d.V3(0, 0, 1)}

	tests := []struct {
		name  string
		point math3d.Vec3
		want  float64
	}{
		{"origin", math3d.V3(0, 0, 0), 0},
		{"in front", math3d.V3(0, 0, 5), 5},
		{"behind", math3d.V3(0, 0, -3), -3},
		{"offset XY", math3d.V3(10, -5, 2), 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, plane.DistanceToPoint(tc.point), 1e-9)
		})
	}
}

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: math3d.V3(0, 3, 4), D: 10}
	plane.Normalize()

	assert.InDelta(t, 1.0, plane.Normal.Len(), 1e-9)
	assert.InDelta(t, 0.6, plane.Normal.Y, 1e-9)
	assert.InDelta(t, 0.8, plane.Normal.Z, 1e-9)
	assert.InDelta(t, 2.0, plane.D, 1e-9)
}

func TestAABB(t *testing.T) {
	box := NewAABB(math3d.V3(-1, -2, -3), math3d.V3(1, 2, 3))
	assert.Equal(t, math3d.V3(0, 0, 0), box.Center())
	assert.Equal(t, math3d.V3(2, 4, 6), box.Size())

	assert.True(t, box.ContainsPoint(math3d.V3(1, 2, 3)))
	assert.False(t, box.ContainsPoint(math3d.V3(1.5, 0, 0)))

	moved := box.Transform(math3d.Translation(math3d.V3(10, 20, 30)))
	assert.Equal(t, math3d.V3(9, 18, 27), moved.Min)
	assert.Equal(t, math3d.V3(11, 22, 33), moved.Max)

	scaled := box.Transform(math3d.Scaling(math3d.V3(2, 2, 2)))
	assert.Equal(t, math3d.V3(-2, -4, -6), scaled.Min)
	assert.Equal(t, math3d.V3(2, 4, 6), scaled.Max)
}

func TestFrustumFromPerspective(t *testing.T) {
	f := NewFrustumFromMatrix(math3d.Perspective(60, 16.0/9.0, 0.1, 100))
	for i, plane := range f.Planes {
		assert.InDelta(t, 1.0, plane.Normal.Len(), 1e-6, "plane %d", i)
	}

	tests := []struct {
		name  string
		point math3d.Vec3
		want  bool
	}{
		{"center near", math3d.V3(0, 0, -1), true},
		{"center mid", math3d.V3(0, 0, -50), true},
		{"center far", math3d.V3(0, 0, -99), true},
		{"behind camera", math3d.V3(0, 0, 1), false},
		{"too far", math3d.V3(0, 0, -200), false},
		{"too close", math3d.V3(0, 0, -0.01), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.ContainsPoint(tc.point))
		})
	}
}

func TestFrustumIntersectAABB(t *testing.T) {
	f := NewFrustumFromMatrix(math3d.Perspective(60, 16.0/9.0, 1, 100))

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"fully inside", NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5)), true},
		{"crossing near plane", NewAABB(math3d.V3(-1, -1, -2), math3d.V3(1, 1, 2)), true},
		{"behind camera", NewAABB(math3d.V3(-1, -1, 5), math3d.V3(1, 1, 10)), false},
		{"beyond far plane", NewAABB(math3d.V3(-1, -1, -150), math3d.V3(1, 1, -120)), false},
		{"far to the right", NewAABB(math3d.V3(100, -1, -10), math3d.V3(110, 1, -5)), false},
		{"enclosing frustum", NewAABB(math3d.V3(-200, -200, -200), math3d.V3(200, 200, 200)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.IntersectAABB(tc.box))
		})
	}
}

func TestFrustumFollowsView(t *testing.T) {
	proj := math3d.Perspective(60, 1, 1, 100)
	view := math3d.LookAt(math3d.V3(0, 0, 0), math3d.V3(10, 0, 0), math3d.V3(0, 1, 0))
	f := NewFrustumFromMatrix(proj.Mul(view))

	assert.True(t, f.ContainsPoint(math3d.V3(10, 0, 0)))
	assert.False(t, f.ContainsPoint(math3d.V3(-10, 0, 0)))
}

func BenchmarkFrustumIntersectAABB(b *testing.B) {
	f := NewFrustumFromMatrix(math3d.Perspective(60, 16.0/9.0, 0.1, 1000))
	box := NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5))
	for b.Loop() {
		_ = f.IntersectAABB(box)
	}
}

func BenchmarkFrustumExtraction(b *testing.B) {
	proj := math3d.Perspective(60, 16.0/9.0, 0.1, 1000)
	view := math3d.LookAt(math3d.V3(0, 10, 20), math3d.V3(0, 0, 0), math3d.V3(0, 1, 0))
	vp := proj.Mul(view)
	for b.Loop() {
		_ = NewFrustumFromMatrix(vp)
	}
}
