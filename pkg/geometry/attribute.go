// Package geometry generates and manipulates vertex attribute sets for
// canonical solids.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/cubic/pkg/math3d"
)

// ErrMalformed is returned by Validate for attribute sets whose arrays disagree.
var ErrMalformed = errors.New("malformed geometry")

// Attribute is a set of parallel vertex arrays plus a triangle-list index.
// For n vertices Position and Normal hold 3n floats, Color 4n and TexCoord 2n.
type Attribute struct {
	Position []float32
	Normal   []float32
	Color    []float32
	TexCoord []float32
	Index    []uint32
}

// VertexCount returns the number of vertices.
func (a Attribute) VertexCount() int {
	return len(a.Position) / 3
}

// TriangleCount returns the number of triangles.
func (a Attribute) TriangleCount() int {
	return len(a.Index) / 3
}

// Validate checks array lengths and that every index refers to a vertex.
func (a Attribute) Validate() error {
	if len(a.Position)%3 != 0 {
		return fmt.Errorf("%w: position length %d not a multiple of 3", ErrMalformed, len(a.Position))
	}
	n := a.VertexCount()
	for _, c := range []struct {
		name string
		got  int
		size int
	}{
		{"normal", len(a.Normal), 3},
		{"color", len(a.Color), 4},
		{"texCoord", len(a.TexCoord), 2},
	} {
		if c.got != n*c.size {
			return fmt.Errorf("%w: %s length %d, want %d", ErrMalformed, c.name, c.got, n*c.size)
		}
	}
	if len(a.Index)%3 != 0 {
		return fmt.Errorf("%w: index length %d not a multiple of 3", ErrMalformed, len(a.Index))
	}
	for i, idx := range a.Index {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range [0,%d)", ErrMalformed, idx, i, n)
		}
	}
	return nil
}

// PositionAt returns the position of vertex i.
func (a Attribute) PositionAt(i int) math3d.Vec3 {
	return vec3At(a.Position, i)
}

// NormalAt returns the normal of vertex i.
func (a Attribute) NormalAt(i int) math3d.Vec3 {
	return vec3At(a.Normal, i)
}

// Bounds returns the axis-aligned bounding box. Empty geometry has zero bounds.
func (a Attribute) Bounds() (lo, hi math3d.Vec3) {
	n := a.VertexCount()
	if n == 0 {
		return lo, hi
	}
	lo = a.PositionAt(0)
	hi = lo
	for i := 1; i < n; i++ {
		p := a.PositionAt(i)
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi
}

// Center returns the center of the bounding box.
func (a Attribute) Center() math3d.Vec3 {
	lo, hi := a.Bounds()
	return lo.Add(hi).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (a Attribute) Size() math3d.Vec3 {
	lo, hi := a.Bounds()
	return hi.Sub(lo)
}

// Clone returns a deep copy.
func (a Attribute) Clone() Attribute {
	return Attribute{
		Position: append([]float32(nil), a.Position...),
		Normal:   append([]float32(nil), a.Normal...),
		Color:    append([]float32(nil), a.Color...),
		TexCoord: append([]float32(nil), a.TexCoord...),
		Index:    append([]uint32(nil), a.Index...),
	}
}

// Transform returns a copy with positions transformed by m and normals by
// its inverse transpose.
func (a Attribute) Transform(m math3d.Mat4) Attribute {
	out := a.Clone()
	nm := m.Inverse().Transpose()
	for i := range a.VertexCount() {
		setVec3(out.Position, i, m.MulVec3(a.PositionAt(i)))
		if len(a.Normal) >= (i+1)*3 {
			setVec3(out.Normal, i, nm.MulVec3Dir(a.NormalAt(i)).Normalize())
		}
	}
	return out
}

// SmoothNormals recomputes vertex normals as the area-weighted average of
// the adjacent face normals.
func (a *Attribute) SmoothNormals() {
	n := a.VertexCount()
	acc := make([]math3d.Vec3, n)
	for t := 0; t+2 < len(a.Index); t += 3 {
		i0, i1, i2 := int(a.Index[t]), int(a.Index[t+1]), int(a.Index[t+2])
		v0, v1, v2 := a.PositionAt(i0), a.PositionAt(i1), a.PositionAt(i2)
		// unnormalized so larger faces weigh more
		fn := v1.Sub(v0).Cross(v2.Sub(v0))
		acc[i0] = acc[i0].Add(fn)
		acc[i1] = acc[i1].Add(fn)
		acc[i2] = acc[i2].Add(fn)
	}
	a.Normal = make([]float32, n*3)
	for i, v := range acc {
		setVec3(a.Normal, i, v.Normalize())
	}
}

// Index16 narrows the index list to 16 bits. ok is false when any index
// exceeds math.MaxUint16.
func (a Attribute) Index16() (idx []uint16, ok bool) {
	idx = make([]uint16, len(a.Index))
	for i, v := range a.Index {
		if v > math.MaxUint16 {
			return nil, false
		}
		idx[i] = uint16(v)
	}
	return idx, true
}

// Wireframe returns the unique edges of the triangle list as a line-list index.
func (a Attribute) Wireframe() []uint32 {
	type edge struct{ a, b uint32 }
	seen := make(map[edge]bool, len(a.Index))
	lines := make([]uint32, 0, len(a.Index)*2)
	for t := 0; t+2 < len(a.Index); t += 3 {
		tri := [3]uint32{a.Index[t], a.Index[t+1], a.Index[t+2]}
		for k := range 3 {
			e := edge{tri[k], tri[(k+1)%3]}
			if e.a > e.b {
				e.a, e.b = e.b, e.a
			}
			if seen[e] {
				continue
			}
			seen[e] = true
			lines = append(lines, e.a, e.b)
		}
	}
	return lines
}

func vec3At(s []float32, i int) math3d.Vec3 {
	return math3d.V3(float64(s[i*3]), float64(s[i*3+1]), float64(s[i*3+2]))
}

func setVec3(s []float32, i int, v math3d.Vec3) {
	s[i*3] = float32(v.X)
	s[i*3+1] = float32(v.Y)
	s[i*3+2] = float32(v.Z)
}
