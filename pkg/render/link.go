package render

import (
	"fmt"
	"strings"

	"github.com/taigrr/cubic/pkg/gpu"
)

// maxVertexAttribs is the number of attribute locations a program may use.
const maxVertexAttribs = 16

// programInfo is a linked program: attributes and uniforms are addressed
// by their index, which is also their location.
type programInfo struct {
	attributes []declaration
	uniforms   []declaration
	values     [][]float64
	roles      roles
}

// roles maps the fixed-function inputs to attribute and uniform locations,
// -1 when the program does not declare them.
type roles struct {
	position, normal, color, texCoord int

	mvp, model, view, projection, normalMatrix gpu.Location
	light, tint, sampler2D, samplerCube        gpu.Location
}

func linkProgram(vs, fs *shaderInfo) (*programInfo, string) {
	var errs []string
	if vs.version != fs.version {
		errs = append(errs, "Versions of linked shaders have a difference.")
	}
	outputs := make(map[string]declaration, len(vs.outputs))
	for _, o := range vs.outputs {
		outputs[o.name] = o
	}
	for _, in := range fs.inputs {
		o, ok := outputs[in.name]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("Varying `%s` consumed by fragment shader, but not declared in vertex shader.", in.name))
		case o.typ != in.typ || o.array != in.array:
			errs = append(errs, fmt.Sprintf("Types of varying `%s` differ between shaders.", in.name))
		}
	}
	if len(vs.inputs) > maxVertexAttribs {
		errs = append(errs, fmt.Sprintf("Too many vertex attributes: %d > %d.", len(vs.inputs), maxVertexAttribs))
	}

	p := &programInfo{attributes: vs.inputs}
	seen := make(map[string]declaration)
	for _, u := range append(append([]declaration(nil), vs.uniforms...), fs.uniforms...) {
		if prev, ok := seen[u.name]; ok {
			if prev.typ != u.typ || prev.array != u.array {
				errs = append(errs, fmt.Sprintf("Uniform `%s` differs in type between shaders.", u.name))
			}
			continue
		}
		seen[u.name] = u
		p.uniforms = append(p.uniforms, u)
	}
	if len(errs) > 0 {
		return nil, strings.Join(errs, "\n") + "\n"
	}
	p.values = make([][]float64, len(p.uniforms))
	p.roles = assignRoles(p)
	return p, ""
}

func assignRoles(p *programInfo) roles {
	r := roles{
		position: -1, normal: -1, color: -1, texCoord: -1,
		mvp: -1, model: -1, view: -1, projection: -1, normalMatrix: -1,
		light: -1, tint: -1, sampler2D: -1, samplerCube: -1,
	}
	for i, a := range p.attributes {
		switch name := strings.ToLower(a.name); {
		case strings.Contains(name, "position") && r.position < 0:
			r.position = i
		case strings.Contains(name, "normal") && r.normal < 0:
			r.normal = i
		case (strings.Contains(name, "color") || strings.Contains(name, "colour")) && r.color < 0:
			r.color = i
		case (strings.Contains(name, "texcoord") || strings.Contains(name, "uv")) && r.texCoord < 0:
			r.texCoord = i
		}
	}
	for i, u := range p.uniforms {
		loc := gpu.Location(i)
		name := strings.ToLower(u.name)
		switch {
		case u.typ == "sampler2D" && r.sampler2D < 0:
			r.sampler2D = loc
		case u.typ == "samplerCube" && r.samplerCube < 0:
			r.samplerCube = loc
		case u.typ == "mat4" && strings.Contains(name, "mvp"):
			r.mvp = loc
		case (u.typ == "mat4" || u.typ == "mat3") && strings.Contains(name, "normal"):
			r.normalMatrix = loc
		case u.typ == "mat4" && strings.Contains(name, "model"):
			r.model = loc
		case u.typ == "mat4" && strings.Contains(name, "view"):
			r.view = loc
		case u.typ == "mat4" && strings.Contains(name, "proj"):
			r.projection = loc
		case u.typ == "vec3" && strings.Contains(name, "light"):
			r.light = loc
		case u.typ == "vec4" && (strings.Contains(name, "color") || strings.Contains(name, "colour")):
			r.tint = loc
		}
	}
	return r
}

func (p *programInfo) attribLocation(name string) int {
	for i, a := range p.attributes {
		if a.name == name {
			return i
		}
	}
	return -1
}

func (p *programInfo) uniformLocation(name string) (gpu.Location, bool) {
	base := strings.TrimSuffix(name, "[0]")
	for i, u := range p.uniforms {
		if u.name == name || (u.array > 0 && u.name == base) {
			return gpu.Location(i), true
		}
	}
	return 0, false
}

// setUniform stores an upload after checking it against the declaration.
func (p *programInfo) setUniform(loc gpu.Location, integer bool, size int, data []float64) error {
	if loc < 0 || int(loc) >= len(p.uniforms) {
		return fmt.Errorf("uniform location %d: %w", loc, ErrInvalidOperation)
	}
	u := p.uniforms[loc]
	if size != u.components() {
		return fmt.Errorf("uniform %s %s given %d components: %w", u.typ, u.name, size, ErrInvalidOperation)
	}
	if !strings.HasPrefix(u.typ, "bvec") && u.typ != "bool" && integer != isIntegerType(u.typ) {
		return fmt.Errorf("uniform %s %s type mismatch: %w", u.typ, u.name, ErrInvalidOperation)
	}
	count := len(data) / size
	limit := max(u.array, 1)
	if count == 0 || len(data)%size != 0 {
		return fmt.Errorf("uniform %s: %d values: %w", u.name, len(data), ErrInvalidValue)
	}
	if count > limit {
		if u.array == 0 {
			return fmt.Errorf("uniform %s is not an array: %w", u.name, ErrInvalidOperation)
		}
		data = data[:limit*size]
	}
	p.values[loc] = append(p.values[loc][:0], data...)
	return nil
}

// uniform returns the stored value of loc, nil when unset or absent.
func (p *programInfo) uniform(loc gpu.Location) []float64 {
	if loc < 0 || int(loc) >= len(p.values) {
		return nil
	}
	return p.values[loc]
}
