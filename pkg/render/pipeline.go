package render

import (
	"fmt"
	"math"

	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
)

// defaultLight is the light direction used when a lit program declares no
// light uniform.
var defaultLight = math3d.V3(1, 1, 1).Normalize()

// vertex is a shaded vertex in clip space.
type vertex struct {
	clip   math3d.Vec4
	color  [4]float64 // Straight alpha, 0..1
	uv     math3d.Vec2
	normal math3d.Vec3
}

// drawState is the per-draw snapshot of the program inputs.
type drawState struct {
	target renderTarget

	mvp       math3d.Mat4
	normalMat math3d.Mat4
	light     math3d.Vec3
	tint      [4]float64
	lit       bool

	position, normal, color, texCoord attribSource

	tex2D   *texture
	texCube *texture

	cull, depthTest, depthWrite, blend bool
}

type attribSource struct {
	data []float32
	size int
}

func (a attribSource) bound() bool { return a.size > 0 }

func (a attribSource) count() int {
	if a.size == 0 {
		return math.MaxInt
	}
	return len(a.data) / a.size
}

// at returns component c of vertex i, or def when the attribute has fewer
// components.
func (a attribSource) at(i, c int, def float64) float64 {
	if c >= a.size {
		return def
	}
	return float64(a.data[i*a.size+c])
}

// DrawArrays draws count vertices starting at first.
func (d *Device) DrawArrays(prim gpu.Primitive, first, count int) {
	if first < 0 || count < 0 {
		d.record("draw arrays", ErrInvalidValue)
		return
	}
	st, err := d.prepare()
	if err != nil {
		d.record("draw arrays", err)
		return
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = first + i
	}
	if err := d.draw(st, prim, indices); err != nil {
		d.record("draw arrays", err)
	}
}

// DrawElements draws count indices from the bound index buffer.
func (d *Device) DrawElements(prim gpu.Primitive, count int, width gpu.IndexWidth, offset int) {
	if count < 0 || offset < 0 {
		d.record("draw elements", ErrInvalidValue)
		return
	}
	if width != gpu.Index16 && width != gpu.Index32 {
		d.record("draw elements", ErrInvalidEnum)
		return
	}
	if width == gpu.Index32 && !d.supportsIndex32() {
		d.record("draw elements: 32-bit indices", ErrInvalidEnum)
		return
	}
	ib, ok := d.buffers[d.indexBuffer]
	if !ok {
		d.record("draw elements: no index buffer", ErrInvalidOperation)
		return
	}
	if ib.width != width || offset%int(width) != 0 {
		d.record("draw elements: index width", ErrInvalidOperation)
		return
	}
	start := offset / int(width)
	if start+count > ib.indexCount() {
		d.record("draw elements: index range", ErrInvalidOperation)
		return
	}
	st, err := d.prepare()
	if err != nil {
		d.record("draw elements", err)
		return
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = ib.index(start + i)
	}
	if err := d.draw(st, prim, indices); err != nil {
		d.record("draw elements", err)
	}
}

// prepare snapshots the current program and pipeline state.
func (d *Device) prepare() (*drawState, error) {
	p := d.linked(d.program)
	if p == nil {
		return nil, fmt.Errorf("no program: %w", ErrInvalidOperation)
	}
	tgt, err := d.target()
	if err != nil {
		return nil, err
	}
	st := &drawState{
		target:     tgt,
		tint:       [4]float64{1, 1, 1, 1},
		cull:       d.caps[gpu.CullFace],
		depthTest:  d.caps[gpu.DepthTest] && tgt.depth != nil,
		depthWrite: d.depthMask,
		blend:      d.caps[gpu.Blend],
	}
	r := p.roles
	st.position = d.source(r.position)
	st.normal = d.source(r.normal)
	st.color = d.source(r.color)
	st.texCoord = d.source(r.texCoord)
	if !st.position.bound() {
		return nil, fmt.Errorf("no position attribute: %w", ErrInvalidOperation)
	}

	st.mvp = d.transform(p)
	st.normalMat = math3d.Identity()
	if v := p.uniform(r.normalMatrix); v != nil {
		st.normalMat = matrixValue(v)
	}
	st.lit = st.normal.bound()
	st.light = defaultLight
	if v := p.uniform(r.light); len(v) >= 3 {
		st.light = math3d.V3(v[0], v[1], v[2]).Normalize()
	}
	if v := p.uniform(r.tint); len(v) >= 4 {
		copy(st.tint[:], v)
	}
	st.tex2D = d.sampler(p, r.sampler2D, gpu.Texture2D)
	st.texCube = d.sampler(p, r.samplerCube, gpu.TextureCube)
	return st, nil
}

// transform composes the clip transform from the matrix uniforms.
func (d *Device) transform(p *programInfo) math3d.Mat4 {
	r := p.roles
	if v := p.uniform(r.mvp); v != nil {
		return matrixValue(v)
	}
	m := math3d.Identity()
	for _, loc := range []gpu.Location{r.projection, r.view, r.model} {
		if v := p.uniform(loc); v != nil {
			m = m.Mul(matrixValue(v))
		}
	}
	return m
}

func (d *Device) source(loc int) attribSource {
	if loc < 0 || !d.attribs[loc].enabled {
		return attribSource{}
	}
	a := d.attribs[loc]
	b, ok := d.buffers[a.buffer]
	if !ok {
		return attribSource{}
	}
	return attribSource{data: b.floats, size: a.size}
}

func (d *Device) sampler(p *programInfo, loc gpu.Location, kind gpu.TextureKind) *texture {
	v := p.uniform(loc)
	if len(v) == 0 {
		if loc < 0 {
			return nil
		}
		v = []float64{0}
	}
	unit := int(v[0])
	if unit < 0 || unit >= len(d.units) {
		return nil
	}
	t, ok := d.textures[d.units[unit]]
	if !ok || t.kind != kind {
		return nil
	}
	return t
}

// matrixValue widens a stored mat3 or mat4 uniform to a Mat4.
func matrixValue(v []float64) math3d.Mat4 {
	m := math3d.Identity()
	switch {
	case len(v) >= 16:
		copy(m[:], v[:16])
	case len(v) >= 9:
		for col := range 3 {
			for row := range 3 {
				m[row+col*4] = v[row+col*3]
			}
		}
	}
	return m
}

// shade runs the fixed-function vertex stage for vertex i.
func (st *drawState) shade(i int) vertex {
	pos := st.position
	p := math3d.V4(pos.at(i, 0, 0), pos.at(i, 1, 0), pos.at(i, 2, 0), pos.at(i, 3, 1))
	v := vertex{clip: st.mvp.MulVec4(p), color: st.tint}

	if st.color.bound() {
		for c := range 4 {
			v.color[c] *= st.color.at(i, c, 1)
		}
	}
	if st.texCoord.bound() {
		v.uv = math3d.V2(st.texCoord.at(i, 0, 0), st.texCoord.at(i, 1, 0))
	}
	if st.lit {
		n := math3d.V3(st.normal.at(i, 0, 0), st.normal.at(i, 1, 0), st.normal.at(i, 2, 0))
		n = st.normalMat.MulVec3Dir(n).Normalize()
		v.normal = n
		intensity := 0.3 + 0.7*math.Max(0, n.Dot(st.light))
		for c := range 3 {
			v.color[c] *= intensity
		}
	}
	return v
}

// draw assembles and rasterizes the primitives of the given vertex indices.
func (d *Device) draw(st *drawState, prim gpu.Primitive, indices []int) error {
	d.stats.DrawCalls++
	limit := min(st.position.count(), st.normal.count(), st.color.count(), st.texCoord.count())
	for _, i := range indices {
		if i >= limit {
			return fmt.Errorf("vertex %d beyond attribute data: %w", i, ErrInvalidOperation)
		}
	}
	if d.outsideFrustum(st, indices) {
		d.stats.Skipped++
		return nil
	}

	shaded := make(map[int]vertex, len(indices))
	get := func(i int) vertex {
		v, ok := shaded[i]
		if !ok {
			v = st.shade(i)
			shaded[i] = v
		}
		return v
	}
	r := newRasterizer(st, d.viewport, &d.stats)

	switch prim {
	case gpu.Points:
		for _, i := range indices {
			d.stats.Primitives++
			r.point(get(i))
		}
	case gpu.Lines:
		for k := 0; k+1 < len(indices); k += 2 {
			d.stats.Primitives++
			r.line(get(indices[k]), get(indices[k+1]))
		}
	case gpu.LineStrip:
		for k := 0; k+1 < len(indices); k++ {
			d.stats.Primitives++
			r.line(get(indices[k]), get(indices[k+1]))
		}
	case gpu.Triangles:
		for k := 0; k+2 < len(indices); k += 3 {
			d.stats.Primitives++
			r.triangle(get(indices[k]), get(indices[k+1]), get(indices[k+2]))
		}
	case gpu.TriangleStrip:
		for k := 0; k+2 < len(indices); k++ {
			d.stats.Primitives++
			a, b, c := indices[k], indices[k+1], indices[k+2]
			if k%2 == 1 {
				a, b = b, a
			}
			r.triangle(get(a), get(b), get(c))
		}
	case gpu.TriangleFan:
		for k := 1; k+1 < len(indices); k++ {
			d.stats.Primitives++
			r.triangle(get(indices[0]), get(indices[k]), get(indices[k+1]))
		}
	default:
		return ErrInvalidEnum
	}
	return nil
}

// outsideFrustum reports whether the bounds of every referenced position
// lie outside the clip volume of the draw.
func (d *Device) outsideFrustum(st *drawState, indices []int) bool {
	if len(indices) == 0 || st.position.size == 4 {
		return false
	}
	pos := st.position
	first := indices[0]
	box := NewAABB(
		math3d.V3(pos.at(first, 0, 0), pos.at(first, 1, 0), pos.at(first, 2, 0)),
		math3d.V3(pos.at(first, 0, 0), pos.at(first, 1, 0), pos.at(first, 2, 0)),
	)
	for _, i := range indices[1:] {
		p := math3d.V3(pos.at(i, 0, 0), pos.at(i, 1, 0), pos.at(i, 2, 0))
		box.Min = box.Min.Min(p)
		box.Max = box.Max.Max(p)
	}
	return !NewFrustumFromMatrix(st.mvp).IntersectAABB(box)
}
