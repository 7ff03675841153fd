package render

import (
	"image"
	"image/color"
	"math"

	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
)

// wEpsilon keeps clipped vertices strictly in front of the eye.
const wEpsilon = 1e-6

// rasterizer turns shaded clip-space primitives into fragments.
type rasterizer struct {
	st       *drawState
	viewport image.Rectangle
	bounds   image.Rectangle // Writable pixels in row coordinates
	stats    *Stats
}

func newRasterizer(st *drawState, viewport image.Rectangle, stats *Stats) *rasterizer {
	fb := st.target.color
	h := fb.Height
	rows := image.Rect(viewport.Min.X, h-viewport.Max.Y, viewport.Max.X, h-viewport.Min.Y)
	return &rasterizer{
		st:       st,
		viewport: viewport,
		bounds:   rows.Intersect(image.Rect(0, 0, fb.Width, fb.Height)),
		stats:    stats,
	}
}

// screenVertex is a vertex in window space with rows growing downward.
type screenVertex struct {
	x, y float64
	z    float64 // Depth in [0,1]
	invW float64
	v    vertex
}

func (r *rasterizer) project(v vertex) screenVertex {
	h := float64(r.st.target.color.Height)
	invW := 1 / v.clip.W
	nx, ny, nz := v.clip.X*invW, v.clip.Y*invW, v.clip.Z*invW
	vp := r.viewport
	x := float64(vp.Min.X) + (nx+1)*0.5*float64(vp.Dx())
	yUp := float64(vp.Min.Y) + (ny+1)*0.5*float64(vp.Dy())
	return screenVertex{x: x, y: h - yUp, z: (nz + 1) * 0.5, invW: invW, v: v}
}

func lerpVertex(a, b vertex, t float64) vertex {
	out := vertex{
		clip: math3d.V4(
			a.clip.X+(b.clip.X-a.clip.X)*t,
			a.clip.Y+(b.clip.Y-a.clip.Y)*t,
			a.clip.Z+(b.clip.Z-a.clip.Z)*t,
			a.clip.W+(b.clip.W-a.clip.W)*t,
		),
		uv:     math3d.V2(a.uv.X+(b.uv.X-a.uv.X)*t, a.uv.Y+(b.uv.Y-a.uv.Y)*t),
		normal: a.normal.Lerp(b.normal, t),
	}
	for c := range 4 {
		out.color[c] = a.color[c] + (b.color[c]-a.color[c])*t
	}
	return out
}

// clipPlanes are the signed distances a vertex must keep non-negative:
// the near plane and a minimum w.
var clipPlanes = []func(v math3d.Vec4) float64{
	func(v math3d.Vec4) float64 { return v.Z + v.W },
	func(v math3d.Vec4) float64 { return v.W - wEpsilon },
}

// clipPolygon clips a convex polygon against clipPlanes.
func clipPolygon(poly []vertex) []vertex {
	for _, dist := range clipPlanes {
		if len(poly) == 0 {
			return nil
		}
		out := make([]vertex, 0, len(poly)+1)
		for i, cur := range poly {
			next := poly[(i+1)%len(poly)]
			dc, dn := dist(cur.clip), dist(next.clip)
			if dc >= 0 {
				out = append(out, cur)
			}
			if (dc >= 0) != (dn >= 0) {
				out = append(out, lerpVertex(cur, next, dc/(dc-dn)))
			}
		}
		poly = out
	}
	return poly
}

// clipLine clips a segment against clipPlanes.
func clipLine(a, b vertex) (vertex, vertex, bool) {
	for _, dist := range clipPlanes {
		da, db := dist(a.clip), dist(b.clip)
		switch {
		case da < 0 && db < 0:
			return a, b, false
		case da < 0:
			a = lerpVertex(a, b, da/(da-db))
		case db < 0:
			b = lerpVertex(a, b, da/(da-db))
		}
	}
	return a, b, true
}

func (r *rasterizer) triangle(a, b, c vertex) {
	poly := clipPolygon([]vertex{a, b, c})
	if len(poly) < 3 {
		r.stats.Culled++
		return
	}
	for k := 1; k+1 < len(poly); k++ {
		r.fill(r.project(poly[0]), r.project(poly[k]), r.project(poly[k+1]))
	}
}

// edgeCoeffs returns A, B, C of the edge function A*x + B*y + C of the
// edge from (x0, y0) to (x1, y1).
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1
	B = x1 - x0
	C = x0*y1 - x1*y0
	return
}

func edgeFunc(A, B, C, x, y float64) float64 {
	return A*x + B*y + C
}

// fill rasterizes a projected triangle with incremental edge functions and
// perspective-correct attribute interpolation.
func (r *rasterizer) fill(s0, s1, s2 screenVertex) {
	cross := (s1.x-s0.x)*(s2.y-s0.y) - (s1.y-s0.y)*(s2.x-s0.x)
	if cross == 0 || math.IsNaN(cross) {
		r.stats.Culled++
		return
	}
	// Rows grow downward, so counter-clockwise front faces have cross < 0.
	if cross > 0 && r.st.cull {
		r.stats.Culled++
		return
	}
	if cross < 0 {
		s1, s2 = s2, s1
		cross = -cross
	}

	b := r.bounds
	minX := max(b.Min.X, int(math.Floor(min(s0.x, s1.x, s2.x))))
	maxX := min(b.Max.X-1, int(math.Ceil(max(s0.x, s1.x, s2.x))))
	minY := max(b.Min.Y, int(math.Floor(min(s0.y, s1.y, s2.y))))
	maxY := min(b.Max.Y-1, int(math.Ceil(max(s0.y, s1.y, s2.y))))
	if minX > maxX || minY > maxY {
		return
	}

	A0, B0, C0 := edgeCoeffs(s1.x, s1.y, s2.x, s2.y)
	A1, B1, C1 := edgeCoeffs(s2.x, s2.y, s0.x, s0.y)
	A2, B2, C2 := edgeCoeffs(s0.x, s0.y, s1.x, s1.y)
	invArea := 1 / cross
	lod := r.lod(s0, s1, s2, cross)

	px := float64(minX) + 0.5
	py := float64(minY) + 0.5
	w0Row := edgeFunc(A0, B0, C0, px, py)
	w1Row := edgeFunc(A1, B1, C1, px, py)
	w2Row := edgeFunc(A2, B2, C2, px, py)

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				bc0, bc1, bc2 := w0*invArea, w1*invArea, w2*invArea
				z := bc0*s0.z + bc1*s1.z + bc2*s2.z

				pw0, pw1, pw2 := bc0*s0.invW, bc1*s1.invW, bc2*s2.invW
				norm := 1 / (pw0 + pw1 + pw2)
				pw0, pw1, pw2 = pw0*norm, pw1*norm, pw2*norm

				var c [4]float64
				for k := range 4 {
					c[k] = pw0*s0.v.color[k] + pw1*s1.v.color[k] + pw2*s2.v.color[k]
				}
				u := pw0*s0.v.uv.X + pw1*s1.v.uv.X + pw2*s2.v.uv.X
				v := pw0*s0.v.uv.Y + pw1*s1.v.uv.Y + pw2*s2.v.uv.Y
				n := s0.v.normal.Scale(pw0).Add(s1.v.normal.Scale(pw1)).Add(s2.v.normal.Scale(pw2))
				r.fragment(x, y, z, r.texture(c, u, v, n, lod))
			}
			w0 += A0
			w1 += A1
			w2 += A2
		}
		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}

// lod estimates the mip level of a triangle from its texel to pixel area
// ratio.
func (r *rasterizer) lod(s0, s1, s2 screenVertex, area float64) float64 {
	tex := r.st.tex2D
	if tex == nil || !r.st.texCoord.bound() {
		return 0
	}
	base := tex.base(gpu.Target2D)
	if base == nil {
		return 0
	}
	e1 := s1.v.uv.Sub(s0.v.uv)
	e2 := s2.v.uv.Sub(s0.v.uv)
	texels := math.Abs(e1.Cross(e2)) * float64(base.Width*base.Height)
	if texels <= area {
		return 0
	}
	return 0.5 * math.Log2(texels/area)
}

// texture modulates c by the bound samplers.
func (r *rasterizer) texture(c [4]float64, u, v float64, n math3d.Vec3, lod float64) [4]float64 {
	if t := r.st.tex2D; t != nil && r.st.texCoord.bound() {
		c = modulate(c, t.sample2D(u, v, lod))
	}
	if t := r.st.texCube; t != nil && r.st.lit {
		c = modulate(c, t.sampleCube(n))
	}
	return c
}

func modulate(c [4]float64, t color.NRGBA) [4]float64 {
	c[0] *= float64(t.R) / 255
	c[1] *= float64(t.G) / 255
	c[2] *= float64(t.B) / 255
	c[3] *= float64(t.A) / 255
	return c
}

// fragment runs the depth test and blending for one pixel.
func (r *rasterizer) fragment(x, y int, z float64, c [4]float64) {
	tgt := r.st.target
	if !image.Pt(x, y).In(r.bounds) || z < 0 || z > 1 {
		return
	}
	idx := y*tgt.color.Width + x
	if r.st.depthTest {
		if !(z < tgt.depth[idx]) {
			return
		}
		if r.st.depthWrite {
			tgt.depth[idx] = z
		}
	}
	if r.st.blend {
		dst := tgt.color.Pixels[idx]
		a := clamp01(c[3])
		c[0] = c[0]*a + float64(dst.R)/255*(1-a)
		c[1] = c[1]*a + float64(dst.G)/255*(1-a)
		c[2] = c[2]*a + float64(dst.B)/255*(1-a)
		c[3] = a + float64(dst.A)/255*(1-a)
	}
	tgt.color.Pixels[idx] = color.NRGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(c[3])}
	r.stats.Fragments++
}

func (r *rasterizer) line(a, b vertex) {
	a, b, ok := clipLine(a, b)
	if !ok {
		r.stats.Culled++
		return
	}
	s0, s1 := r.project(a), r.project(b)
	bresenham(int(math.Floor(s0.x)), int(math.Floor(s0.y)), int(math.Floor(s1.x)), int(math.Floor(s1.y)), func(x, y int, t float64) {
		var c [4]float64
		for k := range 4 {
			c[k] = s0.v.color[k] + (s1.v.color[k]-s0.v.color[k])*t
		}
		r.fragment(x, y, s0.z+(s1.z-s0.z)*t, c)
	})
}

func (r *rasterizer) point(v vertex) {
	if v.clip.Z+v.clip.W < 0 || v.clip.W < wEpsilon {
		r.stats.Culled++
		return
	}
	s := r.project(v)
	r.fragment(int(math.Floor(s.x)), int(math.Floor(s.y)), s.z, v.color)
}
