package geometry

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
)

// Document builds a single-mesh glTF document holding a in one embedded buffer.
func Document(a Attribute) (*gltf.Document, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: "cubic"},
	}
	buf := &gltf.Buffer{}
	doc.Buffers = append(doc.Buffers, buf)

	n := a.VertexCount()
	attrs := map[string]int{}
	for _, s := range []struct {
		name string
		data []float32
		typ  gltf.AccessorType
	}{
		{gltf.POSITION, a.Position, gltf.AccessorVec3},
		{gltf.NORMAL, a.Normal, gltf.AccessorVec3},
		{gltf.TEXCOORD_0, a.TexCoord, gltf.AccessorVec2},
		{gltf.COLOR_0, a.Color, gltf.AccessorVec4},
	} {
		if len(s.data) == 0 {
			continue
		}
		view := appendView(doc, buf, float32Bytes(s.data), gltf.TargetArrayBuffer)
		attrs[s.name] = appendAccessor(doc, view, gltf.ComponentFloat, s.typ, n)
	}

	prim := &gltf.Primitive{Attributes: attrs, Mode: gltf.PrimitiveTriangles}
	if len(a.Index) > 0 {
		var data []byte
		ct := gltf.ComponentUint
		if idx, ok := a.Index16(); ok {
			ct = gltf.ComponentUshort
			data = make([]byte, len(idx)*2)
			for i, v := range idx {
				binary.LittleEndian.PutUint16(data[i*2:], v)
			}
			// buffer views must stay 4-byte aligned
			for len(data)%4 != 0 {
				data = append(data, 0)
			}
		} else {
			data = make([]byte, len(a.Index)*4)
			for i, v := range a.Index {
				binary.LittleEndian.PutUint32(data[i*4:], v)
			}
		}
		view := appendView(doc, buf, data, gltf.TargetElementArrayBuffer)
		prim.Indices = ptr(appendAccessor(doc, view, ct, gltf.AccessorScalar, len(a.Index)))
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: "geometry", Primitives: []*gltf.Primitive{prim}})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "geometry", Mesh: ptr(0)})
	doc.Scenes = append(doc.Scenes, &gltf.Scene{Nodes: []int{0}})
	doc.Scene = ptr(0)
	return doc, nil
}

// ExportGLB writes a as a binary glTF file.
func ExportGLB(a Attribute, path string) error {
	doc, err := Document(a)
	if err != nil {
		return fmt.Errorf("build gltf: %w", err)
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save glb: %w", err)
	}
	return nil
}

// LoadGLB reads every triangle primitive of a glTF or GLB file into one
// attribute set. Missing normals are computed; missing colors default to
// white and missing texture coordinates to zero.
func LoadGLB(path string) (Attribute, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return Attribute{}, fmt.Errorf("open gltf: %w", err)
	}
	return FromDocument(doc)
}

// LoadGLBWithImage reads path like LoadGLB and also returns the encoded
// bytes of the first image the file carries, nil when it has none.
func LoadGLBWithImage(path string) (Attribute, []byte, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return Attribute{}, nil, fmt.Errorf("open gltf: %w", err)
	}
	a, err := FromDocument(doc)
	if err != nil {
		return Attribute{}, nil, err
	}
	for _, data := range Images(doc, filepath.Dir(path)) {
		if len(data) > 0 {
			return a, data, nil
		}
	}
	return a, nil, nil
}

// Images returns the encoded bytes of every image in doc. Images stored
// as external files are read relative to dir; unreadable ones are nil.
func Images(doc *gltf.Document, dir string) [][]byte {
	out := make([][]byte, len(doc.Images))
	for i, img := range doc.Images {
		switch {
		case img.BufferView != nil:
			if *img.BufferView >= len(doc.BufferViews) {
				continue
			}
			bv := doc.BufferViews[*img.BufferView]
			if bv.Buffer >= len(doc.Buffers) {
				continue
			}
			data := doc.Buffers[bv.Buffer].Data
			if end := bv.ByteOffset + bv.ByteLength; end <= len(data) {
				out[i] = data[bv.ByteOffset:end]
			}
		case img.URI != "":
			// External texture file
			if data, err := os.ReadFile(filepath.Join(dir, img.URI)); err == nil {
				out[i] = data
			}
		}
	}
	return out
}

// FromDocument extracts the geometry of doc.
func FromDocument(doc *gltf.Document) (Attribute, error) {
	var out Attribute
	needNormals := false
	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			missing, err := appendPrimitive(doc, prim, &out)
			if err != nil {
				return Attribute{}, fmt.Errorf("process mesh %q: %w", m.Name, err)
			}
			needNormals = needNormals || missing
		}
	}
	if needNormals {
		out.SmoothNormals()
	}
	return out, nil
}

// appendPrimitive appends one primitive to out and reports whether it
// lacked normals.
func appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, out *Attribute) (bool, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return false, nil
	}
	pos, err := readFloats(doc, posIdx, gltf.AccessorVec3)
	if err != nil {
		return false, fmt.Errorf("read positions: %w", err)
	}
	n := len(pos) / 3
	base := uint32(out.VertexCount())

	read := func(name string, typ gltf.AccessorType, size int, fill float32) ([]float32, bool, error) {
		idx, ok := prim.Attributes[name]
		if !ok {
			return filled(n*size, fill), false, nil
		}
		data, err := readFloats(doc, idx, typ)
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) != n*size {
			return nil, false, fmt.Errorf("%s has %d values, want %d", name, len(data), n*size)
		}
		return data, true, nil
	}
	nor, hasNormals, err := read(gltf.NORMAL, gltf.AccessorVec3, 3, 0)
	if err != nil {
		return false, err
	}
	st, _, err := read(gltf.TEXCOORD_0, gltf.AccessorVec2, 2, 0)
	if err != nil {
		return false, err
	}
	col, _, err := read(gltf.COLOR_0, gltf.AccessorVec4, 4, 1)
	if err != nil {
		return false, err
	}

	out.Position = append(out.Position, pos...)
	out.Normal = append(out.Normal, nor...)
	out.TexCoord = append(out.TexCoord, st...)
	out.Color = append(out.Color, col...)

	if prim.Indices == nil {
		// no indices: sequential triangles
		for i := 0; i+2 < n; i += 3 {
			out.Index = append(out.Index, base+uint32(i), base+uint32(i+1), base+uint32(i+2))
		}
		return !hasNormals, nil
	}
	indices, err := readIndices(doc, *prim.Indices)
	if err != nil {
		return false, fmt.Errorf("read indices: %w", err)
	}
	for _, i := range indices {
		if int(i) >= n {
			return false, fmt.Errorf("index %d out of range [0,%d)", i, n)
		}
		out.Index = append(out.Index, base+i)
	}
	return !hasNormals, nil
}

// accessorBytes returns the bytes an accessor reads along with its stride.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elem int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	view := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[view.Buffer]
	if buffer.Data == nil {
		return nil, 0, fmt.Errorf("buffer %d has no data", view.Buffer)
	}

	stride := view.ByteStride
	if stride == 0 {
		stride = elem
	}
	start := view.ByteOffset + accessor.ByteOffset
	end := start + (accessor.Count-1)*stride + elem
	if accessor.Count == 0 {
		end = start
	}
	if end > len(buffer.Data) {
		return nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", end, len(buffer.Data))
	}
	return buffer.Data[start:end], stride, nil
}

// readFloats reads a float accessor of the given type as a flat slice.
func readFloats(doc *gltf.Document, accessorIdx int, typ gltf.AccessorType) ([]float32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != typ {
		return nil, fmt.Errorf("expected %v, got %v", typ, accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", accessor.ComponentType)
	}
	size := components(typ)
	data, stride, err := accessorBytes(doc, accessor, size*4)
	if err != nil {
		return nil, err
	}

	out := make([]float32, 0, accessor.Count*size)
	for i := range accessor.Count {
		for j := range size {
			bits := binary.LittleEndian.Uint32(data[i*stride+j*4:])
			out = append(out, math.Float32frombits(bits))
		}
	}
	return out, nil
}

// readIndices reads an unsigned scalar accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]uint32, error) {
	accessor := doc.Accessors[accessorIdx]
	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}
	data, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, accessor.Count)
	for i := range out {
		b := data[i*stride:]
		switch size {
		case 1:
			out[i] = uint32(b[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(b))
		default:
			out[i] = binary.LittleEndian.Uint32(b)
		}
	}
	return out, nil
}

func appendView(doc *gltf.Document, buf *gltf.Buffer, data []byte, target gltf.Target) int {
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(buf.Data),
		ByteLength: len(data),
		Target:     target,
	})
	buf.Data = append(buf.Data, data...)
	buf.ByteLength = len(buf.Data)
	return len(doc.BufferViews) - 1
}

func appendAccessor(doc *gltf.Document, view int, ct gltf.ComponentType, typ gltf.AccessorType, count int) int {
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    ptr(view),
		ComponentType: ct,
		Type:          typ,
		Count:         count,
	})
	return len(doc.Accessors) - 1
}

func components(typ gltf.AccessorType) int {
	switch typ {
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	default:
		return 1
	}
}

func float32Bytes(f []float32) []byte {
	b := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func filled(n int, v float32) []float32 {
	s := make([]float32, n)
	if v != 0 {
		for i := range s {
			s[i] = v
		}
	}
	return s
}

func ptr(i int) *int {
	return &i
}
