package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/cubic/pkg/math3d"
)

const eps = 1e-9

func square() Bounds { return Bounds{Width: 100, Height: 100} }

func assertVec(t *testing.T, want, got math3d.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-6, "z")
}

func drag(c *Camera, b Buttons, dx, dy float64) {
	c.PointerDown(PointerEvent{X: 50, Y: 50, Buttons: b})
	c.PointerMove(PointerEvent{X: 50 + dx, Y: 50 + dy, Buttons: b})
	c.PointerUp(PointerEvent{Buttons: b})
}

func TestDefaults(t *testing.T) {
	c := New(square())
	view := c.Update()

	assert.Equal(t, DefaultDistance, c.Distance())
	assertVec(t, math3d.V3(0, 0, 5), c.Position())
	assertVec(t, math3d.Zero3(), c.Center())
	assertVec(t, math3d.Up(), c.UpDirection())
	assert.True(t, view.ApproxEqual(math3d.LookAt(math3d.V3(0, 0, 5), math3d.Zero3(), math3d.Up()), eps))
	assert.False(t, c.Dragging())
}

func TestOptions(t *testing.T) {
	c := New(square(), WithDistance(8), WithDistanceRange(2, 10), WithMoveScale(4))
	c.Update()
	assert.Equal(t, 8.0, c.Distance())
	assertVec(t, math3d.V3(0, 0, 8), c.Position())

	drag(c, ButtonSecondary, 10, 0)
	assertVec(t, math3d.V3(-0.4, 0, 0), c.Pan())
}

func TestWheelClamp(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  float64
	}{
		{"zoom out", 120, DefaultMaxDistance},
		{"zoom in", -3, DefaultMinDistance},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(square())
			for range 200 {
				c.Wheel(WheelEvent{DeltaY: tc.delta})
				c.Update()
				require.GreaterOrEqual(t, c.Distance(), DefaultMinDistance)
				require.LessOrEqual(t, c.Distance(), DefaultMaxDistance)
			}
			assert.InDelta(t, tc.want, c.Distance(), eps)
		})
	}
}

func TestWheelImpulseDecays(t *testing.T) {
	c := New(square())
	c.Wheel(WheelEvent{DeltaY: 1})
	assert.Equal(t, 0.5, c.Impulse())

	c.Update()
	assert.InDelta(t, 0.35, c.Impulse(), eps)
	assert.InDelta(t, 5.35, c.Distance(), eps)

	for range 100 {
		c.Update()
	}
	assert.InDelta(t, 0, c.Impulse(), 1e-12)
	settled := c.Distance()
	c.Update()
	assert.InDelta(t, settled, c.Distance(), 1e-12)
	// Geometric series: 0.5 * 0.7 / (1 - 0.7).
	assert.InDelta(t, 5+0.5*0.7/0.3, settled, 1e-9)

	c.Wheel(WheelEvent{DeltaY: 0})
	assert.InDelta(t, 0, c.Impulse(), 1e-12, "zero delta sets no impulse")
}

func TestRotate(t *testing.T) {
	t.Run("yaw quarter turn", func(t *testing.T) {
		c := New(square())
		drag(c, ButtonPrimary, 25, 0)
		yaw, pitch := c.Rotation()
		assert.InDelta(t, 0.25, yaw, eps)
		assert.Zero(t, pitch)

		c.Update()
		p := c.Position()
		assert.InDelta(t, 5, p.Len(), 1e-9)
		assert.InDelta(t, 5, math.Abs(p.X), 1e-9)
		assert.InDelta(t, 0, p.Y, 1e-9)
		assertVec(t, math3d.Up(), c.UpDirection())
	})

	t.Run("yaw wraps", func(t *testing.T) {
		c := New(square())
		drag(c, ButtonPrimary, 150, 0)
		yaw, _ := c.Rotation()
		assert.InDelta(t, 0.5, yaw, eps)
	})

	t.Run("pitch clamps", func(t *testing.T) {
		c := New(square())
		drag(c, ButtonPrimary, 0, 80)
		_, pitch := c.Rotation()
		assert.Equal(t, 0.25, pitch)

		drag(c, ButtonPrimary, 0, -90)
		_, pitch = c.Rotation()
		assert.Equal(t, -0.25, pitch)

		view := c.Update()
		p := c.Position()
		assert.InDelta(t, 5, math.Abs(p.Y), 1e-9)
		for _, v := range view {
			assert.False(t, math.IsNaN(v))
		}
		assert.NotZero(t, view.Determinant())
	})

	t.Run("pitch follows yaw", func(t *testing.T) {
		c := New(square())
		drag(c, ButtonPrimary, 25, 10)
		c.Update()
		// The eye stays at the orbit distance and the up vector stays
		// perpendicular to the view direction.
		p := c.Position()
		assert.InDelta(t, 5, p.Len(), 1e-9)
		assert.InDelta(t, 0, p.Dot(c.UpDirection()), 1e-9)
	})
}

func TestPan(t *testing.T) {
	c := New(square())
	c.Update()
	drag(c, ButtonSecondary, 10, -5)

	// 10 and 5 pixels over a 100 pixel surface, times the move scale of 2.
	assertVec(t, math3d.V3(-0.2, -0.1, 0), c.Pan())

	c.Update()
	assertVec(t, math3d.V3(-0.2, -0.1, 0), c.Center())
	assertVec(t, math3d.V3(-0.2, -0.1, 5), c.Position())
}

func TestPanFollowsOrientation(t *testing.T) {
	c := New(square())
	drag(c, ButtonPrimary, 25, 0)
	c.Update()
	drag(c, ButtonSecondary, 10, 0)

	// After a quarter yaw the screen x axis maps onto the world z axis.
	pan := c.Pan()
	assert.InDelta(t, 0, pan.X, 1e-9)
	assert.InDelta(t, 0.2, math.Abs(pan.Z), 1e-9)
}

func TestMoveWithoutDrag(t *testing.T) {
	c := New(Bounds{Left: 100, Top: 200, Width: 50, Height: 80})
	c.PointerMove(PointerEvent{X: 150, Y: 250, Buttons: ButtonPrimary})
	yaw, pitch := c.Rotation()
	assert.Zero(t, yaw)
	assert.Zero(t, pitch)

	// Positions are relative to the bounds and scaled by the shorter side.
	c.PointerDown(PointerEvent{X: 110, Y: 210, Buttons: ButtonPrimary})
	assert.True(t, c.Dragging())
	c.PointerMove(PointerEvent{X: 120, Y: 210, Buttons: ButtonPrimary})
	yaw, _ = c.Rotation()
	assert.InDelta(t, 10.0/50, yaw, eps)

	c.PointerUp(PointerEvent{})
	c.PointerMove(PointerEvent{X: 140, Y: 210, Buttons: ButtonPrimary})
	yaw, _ = c.Rotation()
	assert.InDelta(t, 10.0/50, yaw, eps)
}

func TestBothButtonsIgnored(t *testing.T) {
	c := New(square())
	drag(c, ButtonPrimary|ButtonSecondary, 10, 10)
	yaw, pitch := c.Rotation()
	assert.Zero(t, yaw)
	assert.Zero(t, pitch)
	assert.Equal(t, math3d.Zero3(), c.Pan())
}

func TestProjection(t *testing.T) {
	p := NewProjection(45, 2, 0.1, 10)
	assert.True(t, p.Matrix().ApproxEqual(math3d.Perspective(45, 2, 0.1, 10), eps))

	p.SetAspect(1)
	assert.Equal(t, 1.0, p.Aspect())
	assert.True(t, p.Matrix().ApproxEqual(math3d.Perspective(45, 1, 0.1, 10), eps))

	p.SetFovy(60)
	p.SetClipPlanes(1, 100)
	assert.Equal(t, 60.0, p.Fovy())
	assert.Equal(t, 1.0, p.Near())
	assert.Equal(t, 100.0, p.Far())
	assert.True(t, p.Matrix().ApproxEqual(math3d.Perspective(60, 1, 1, 100), eps))

	c := New(square())
	view := c.Update()
	assert.True(t, c.ViewProjection(p).ApproxEqual(p.Matrix().Mul(view), eps))
}

func TestReset(t *testing.T) {
	c := New(square(), WithDistance(8))
	drag(c, ButtonPrimary, 25, 10)
	drag(c, ButtonSecondary, 10, 10)
	c.Wheel(WheelEvent{DeltaY: 1})
	c.Update()
	require.NotEqual(t, 8.0, c.Distance())

	c.Reset()
	assert.Equal(t, 8.0, c.Distance())
	assert.Zero(t, c.Impulse())
	assertVec(t, math3d.Zero3(), c.Pan())
	yaw, pitch := c.Rotation()
	assert.Zero(t, yaw)
	assert.Zero(t, pitch)

	view := c.Update()
	assertVec(t, math3d.V3(0, 0, 8), c.Position())
	assert.True(t, view.ApproxEqual(math3d.LookAt(math3d.V3(0, 0, 8), math3d.Zero3(), math3d.Up()), eps))
}
