package geometry

import (
	"math"

	"github.com/taigrr/cubic/pkg/colors"
)

// Segment, row and column counts must be at least 3 for a sane topology.
// Generators do not validate their parameters.

// Option configures a generator.
type Option func(*options)

type options struct {
	color colors.Color
}

// WithColor sets the vertex color of every generated vertex. The default is
// opaque white.
func WithColor(c colors.Color) Option {
	return func(o *options) {
		o.color = c
	}
}

// builder appends vertices sharing one color.
type builder struct {
	Attribute
	color [4]float32
}

func newBuilder(vertices, indices int, opts []Option) *builder {
	o := options{color: colors.White}
	for _, opt := range opts {
		opt(&o)
	}
	return &builder{
		Attribute: Attribute{
			Position: make([]float32, 0, vertices*3),
			Normal:   make([]float32, 0, vertices*3),
			Color:    make([]float32, 0, vertices*4),
			TexCoord: make([]float32, 0, vertices*2),
			Index:    make([]uint32, 0, indices),
		},
		color: o.color.Float32(),
	}
}

func (b *builder) vertex(px, py, pz, nx, ny, nz, s, t float64) {
	b.Position = append(b.Position, float32(px), float32(py), float32(pz))
	b.Normal = append(b.Normal, float32(nx), float32(ny), float32(nz))
	b.Color = append(b.Color, b.color[:]...)
	b.TexCoord = append(b.TexCoord, float32(s), float32(t))
}

func (b *builder) tri(i0, i1, i2 int) {
	b.Index = append(b.Index, uint32(i0), uint32(i1), uint32(i2))
}

// Plane returns a width x height rectangle on the XY plane facing +Z.
func Plane(width, height float64, opts ...Option) Attribute {
	b := newBuilder(4, 6, opts)
	w, h := width/2, height/2
	b.vertex(-w, h, 0, 0, 0, 1, 0, 0)
	b.vertex(w, h, 0, 0, 0, 1, 1, 0)
	b.vertex(-w, -h, 0, 0, 0, 1, 0, 1)
	b.vertex(w, -h, 0, 0, 0, 1, 1, 1)
	b.tri(0, 2, 1)
	b.tri(1, 2, 3)
	return b.Attribute
}

// Circle returns a disc on the XY plane facing +Z, triangulated as a fan
// around a center vertex.
func Circle(split int, rad float64, opts ...Option) Attribute {
	b := newBuilder(split+1, split*3, opts)
	b.vertex(0, 0, 0, 0, 0, 1, 0.5, 0.5)
	for i := range split {
		r := math.Pi * 2 / float64(split) * float64(i)
		rx, ry := math.Cos(r), math.Sin(r)
		b.vertex(rx*rad, ry*rad, 0, 0, 0, 1, (rx+1)*0.5, 1-(ry+1)*0.5)
		if i == split-1 {
			b.tri(0, i+1, 1)
		} else {
			b.tri(0, i+1, i+2)
		}
	}
	return b.Attribute
}

// cubeFaces lists the four corners of each cube face as sign triples,
// counter-clockwise from outside.
var cubeFaces = [6][4][3]float64{
	{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}},
	{{-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {1, -1, -1}},
	{{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1}},
	{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}},
	{{1, -1, -1}, {1, 1, -1}, {1, 1, 1}, {1, -1, 1}},
	{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}},
}

var cubeST = [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// Cube returns an axis-aligned cube of edge length side centered at the
// origin. Faces do not share vertices, so all four corners of a face carry
// the face's axis-aligned normal.
func Cube(side float64, opts ...Option) Attribute {
	b := newBuilder(24, 36, opts)
	hs := side * 0.5
	for f, face := range cubeFaces {
		// the in-plane signs cancel, leaving the face axis
		var n [3]float64
		for _, c := range face {
			n[0] += c[0] / 4
			n[1] += c[1] / 4
			n[2] += c[2] / 4
		}
		for k, c := range face {
			b.vertex(c[0]*hs, c[1]*hs, c[2]*hs, n[0], n[1], n[2], cubeST[k][0], cubeST[k][1])
		}
		o := f * 4
		b.tri(o, o+1, o+2)
		b.tri(o, o+2, o+3)
	}
	return b.Attribute
}

// Cone returns a cone of the given base radius and height centered on the
// origin with its apex on +Y. Rim vertices are duplicated so the base and
// the side get distinct normals.
func Cone(split int, rad, height float64, opts ...Option) Attribute {
	b := newBuilder(split*2+4, split*6, opts)
	h := height / 2
	b.vertex(0, -h, 0, 0, -1, 0, 0.5, 0.5)
	apex := split*2 + 3
	for i, j := 0, 0; i <= split; i, j = i+1, j+2 {
		r := math.Pi * 2 / float64(split) * float64(i)
		rx, rz := math.Cos(r), math.Sin(r)
		s, t := (rx+1)*0.5, 1-(rz+1)*0.5
		b.vertex(rx*rad, -h, rz*rad, 0, -1, 0, s, t)
		b.vertex(rx*rad, -h, rz*rad, rx, 0, rz, s, t)
		if i != split {
			b.tri(0, j+1, j+3)
			b.tri(j+4, j+2, apex)
		}
	}
	b.vertex(0, h, 0, 0, 1, 0, 0.5, 0.5)
	return b.Attribute
}

// Cylinder returns a capped cylinder, or a frustum when the radii differ,
// centered on the origin along Y.
func Cylinder(split int, topRad, bottomRad, height float64, opts ...Option) Attribute {
	b := newBuilder(split*4+6, split*12, opts)
	h := height / 2
	b.vertex(0, h, 0, 0, 1, 0, 0.5, 0.5)
	b.vertex(0, -h, 0, 0, -1, 0, 0.5, 0.5)
	for i, j := 0, 2; i <= split; i, j = i+1, j+4 {
		r := math.Pi * 2 / float64(split) * float64(i)
		rx, rz := math.Cos(r), math.Sin(r)
		s, t := (rx+1)*0.5, 1-(rz+1)*0.5
		u := 1 - float64(i)/float64(split)
		b.vertex(rx*topRad, h, rz*topRad, 0, 1, 0, s, t)
		b.vertex(rx*topRad, h, rz*topRad, rx, 0, rz, u, 0)
		b.vertex(rx*bottomRad, -h, rz*bottomRad, 0, -1, 0, s, t)
		b.vertex(rx*bottomRad, -h, rz*bottomRad, rx, 0, rz, u, 1)
		if i != split {
			b.tri(0, j+4, j)
			b.tri(1, j+2, j+6)
			b.tri(j+5, j+7, j+1)
			b.tri(j+1, j+7, j+3)
		}
	}
	return b.Attribute
}

// Sphere returns a latitude/longitude sphere with (row+1)*(column+1) vertices.
func Sphere(row, column int, rad float64, opts ...Option) Attribute {
	b := newBuilder((row+1)*(column+1), row*column*6, opts)
	for i := 0; i <= row; i++ {
		r := math.Pi / float64(row) * float64(i)
		ry, rr := math.Cos(r), math.Sin(r)
		for j := 0; j <= column; j++ {
			tr := math.Pi * 2 / float64(column) * float64(j)
			rx, rz := rr*math.Cos(tr), rr*math.Sin(tr)
			b.vertex(rx*rad, ry*rad, rz*rad, rx, ry, rz,
				1-float64(j)/float64(column), float64(i)/float64(row))
		}
	}
	gridIndex(b, row, column, false)
	return b.Attribute
}

// Torus returns a ring torus around the Y axis. irad is the tube radius and
// orad the distance from the center to the middle of the tube. The v
// texture coordinate is offset half a turn so the seam lies on the inside.
func Torus(row, column int, irad, orad float64, opts ...Option) Attribute {
	b := newBuilder((row+1)*(column+1), row*column*6, opts)
	for i := 0; i <= row; i++ {
		r := math.Pi * 2 / float64(row) * float64(i)
		rr, ry := math.Cos(r), math.Sin(r)
		for j := 0; j <= column; j++ {
			tr := math.Pi * 2 / float64(column) * float64(j)
			ct, st := math.Cos(tr), math.Sin(tr)
			rt := float64(i)/float64(row) + 0.5
			if rt > 1 {
				rt -= 1
			}
			b.vertex((rr*irad+orad)*ct, ry*irad, (rr*irad+orad)*st,
				rr*ct, ry, rr*st,
				float64(j)/float64(column), 1-rt)
		}
	}
	gridIndex(b, row, column, true)
	return b.Attribute
}

// gridIndex triangulates a (row+1) x (column+1) vertex grid. The torus
// parametrization runs the opposite way round, so its cells are flipped
// to stay counter-clockwise from outside.
func gridIndex(b *builder, row, column int, flip bool) {
	for i := range row {
		for j := range column {
			r := (column+1)*i + j
			if flip {
				b.tri(r, r+column+1, r+1)
				b.tri(r+column+1, r+column+2, r+1)
				continue
			}
			b.tri(r, r+1, r+column+2)
			b.tri(r, r+column+2, r+column+1)
		}
	}
}

var icosahedronIndex = [60]int{
	0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
	1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
	3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
	4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
}

// Icosahedron returns a regular icosahedron built from three orthogonal
// golden rectangles with short half-side rad.
func Icosahedron(rad float64, opts ...Option) Attribute {
	b := newBuilder(12, 60, opts)
	c := (1 + math.Sqrt(5)) / 2
	// unit-length corner direction in rectangle units
	l := math.Sqrt(1 + c*c)
	n0, n1 := 1/l, c/l
	corners := [12][3]float64{
		{-1, c, 0}, {1, c, 0}, {-1, -c, 0}, {1, -c, 0},
		{0, -1, c}, {0, 1, c}, {0, -1, -c}, {0, 1, -c},
		{c, 0, -1}, {c, 0, 1}, {-c, 0, -1}, {-c, 0, 1},
	}
	for _, p := range corners {
		nx, ny, nz := norm1(p[0], c, n0, n1), norm1(p[1], c, n0, n1), norm1(p[2], c, n0, n1)
		s := (math.Atan2(nz, -nx) + math.Pi) / (math.Pi * 2)
		t := 1 - (ny+1)/2
		b.vertex(p[0]*rad, p[1]*rad, p[2]*rad, nx, ny, nz, s, t)
	}
	for k := 0; k < len(icosahedronIndex); k += 3 {
		b.tri(icosahedronIndex[k], icosahedronIndex[k+1], icosahedronIndex[k+2])
	}
	return b.Attribute
}

// norm1 maps a corner coordinate in {0, ±1, ±c} to its unit-normal component.
func norm1(v, c, n0, n1 float64) float64 {
	switch {
	case v == 0:
		return 0
	case math.Abs(v) == c:
		return math.Copysign(n1, v)
	default:
		return math.Copysign(n0, v)
	}
}
