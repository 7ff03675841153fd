package math3d

import (
	"math"
	"testing"
)

func TestVec3Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Vec3
		want Vec3
	}{
		{"axis", V3(0, 5, 0), V3(0, 1, 0)},
		{"diagonal", V3(3, 0, 4), V3(0.6, 0, 0.8)},
		{"zero", Zero3(), Zero3()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got.Distance(tc.want) > eps {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVec3Cross(t *testing.T) {
	if got := Right().Cross(Up()); got != V3(0, 0, 1) {
		t.Errorf("x × y = %v, want z", got)
	}
}

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(V3(0, 0, 0), V3(1, 0, 0), V3(0, 1, 0))
	if n != V3(0, 0, 1) {
		t.Errorf("got %v, want (0,0,1)", n)
	}
}

func TestVec2(t *testing.T) {
	a := V2(3, 4)
	if a.Len() != 5 {
		t.Errorf("len = %v, want 5", a.Len())
	}
	if n := a.Normalize(); math.Abs(n.Len()-1) > eps {
		t.Errorf("normalized len = %v", n.Len())
	}
	if got := (Vec2{}).Normalize(); got != (Vec2{}) {
		t.Errorf("zero normalize = %v", got)
	}
	if c := V2(1, 0).Cross(V2(0, 1)); c != 1 {
		t.Errorf("cross = %v, want 1", c)
	}
	if d := V2(1, 1).Distance(V2(4, 5)); d != 5 {
		t.Errorf("distance = %v, want 5", d)
	}
}
