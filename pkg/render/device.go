// Package render is an in-memory graphics device. It implements
// gpu.Device with a software rasterizer so every device operation can run
// headless, be inspected in tests, and be presented in a terminal.
//
// Linked programs are interpreted by a fixed-function pipeline that binds
// inputs by name:
//
//   - attributes whose names contain position, normal, color or
//     texCoord/uv supply the vertex position, normal, color and texture
//     coordinates;
//   - a mat4 uniform containing "mvp" transforms positions to clip space,
//     otherwise projection, view and model matrices are composed;
//   - a mat3 or mat4 uniform containing "normal" transforms normals;
//   - a vec3 uniform containing "light" is the light direction;
//   - a vec4 uniform containing "color" tints every vertex;
//   - sampler2D and samplerCube uniforms select texture units.
//
// Lit vertices receive 0.3 ambient plus 0.7 diffuse intensity.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/taigrr/cubic/pkg/gpu"
)

var (
	// ErrInvalidOperation is recorded when an operation is not allowed in
	// the current state.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidValue is recorded for out of range arguments.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidEnum is recorded for unsupported enumerants.
	ErrInvalidEnum = errors.New("invalid enum")
	// ErrIncompleteFramebuffer is recorded when drawing to or clearing a
	// framebuffer without a usable color attachment.
	ErrIncompleteFramebuffer = errors.New("incomplete framebuffer")
)

// Stats counts the work done by draw calls since the last ResetStats.
type Stats struct {
	DrawCalls  int
	Primitives int // Primitives assembled
	Culled     int // Triangles discarded by face culling or clipping
	Fragments  int // Fragments written
	Skipped    int // Draw calls rejected whole by the frustum test
}

type buffer struct {
	floats []float32
	short  []uint16
	long   []uint32
	width  gpu.IndexWidth // zero for vertex buffers
}

func (b *buffer) indexCount() int {
	if b.width == gpu.Index16 {
		return len(b.short)
	}
	return len(b.long)
}

func (b *buffer) index(i int) int {
	if b.width == gpu.Index16 {
		return int(b.short[i])
	}
	return int(b.long[i])
}

type renderbuffer struct {
	format  gpu.RenderbufferFormat
	width   int
	height  int
	depth   []float64
	stencil []uint8
}

type framebufferObject struct {
	texture      gpu.Handle
	target       gpu.TextureTarget
	renderbuffer gpu.Handle
}

type shaderObject struct {
	stage gpu.ShaderStage
	info  *shaderInfo
}

type programObject struct {
	info *programInfo
}

type attribBinding struct {
	enabled bool
	buffer  gpu.Handle
	size    int
}

type options struct {
	version    gpu.APIVersion
	extensions map[gpu.Extension]bool
	maxUnits   int
}

// Option configures a Device.
type Option func(*options)

// WithVersion sets the API version the device reports. Modern by default.
func WithVersion(v gpu.APIVersion) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithExtensions enables optional extensions.
func WithExtensions(exts ...gpu.Extension) Option {
	return func(o *options) {
		for _, e := range exts {
			o.extensions[e] = true
		}
	}
}

// WithMaxTextureUnits sets the combined texture unit limit.
func WithMaxTextureUnits(n int) Option {
	return func(o *options) {
		o.maxUnits = n
	}
}

// Device is the software graphics device.
type Device struct {
	version    gpu.APIVersion
	extensions map[gpu.Extension]bool
	maxUnits   int

	next          gpu.Handle
	buffers       map[gpu.Handle]*buffer
	textures      map[gpu.Handle]*texture
	renderbuffers map[gpu.Handle]*renderbuffer
	framebuffers  map[gpu.Handle]*framebufferObject
	shaders       map[gpu.Handle]*shaderObject
	programs      map[gpu.Handle]*programObject

	// Default framebuffer.
	screen       *Framebuffer
	depth        []float64
	stencil      []uint8
	boundFB      gpu.Handle
	program      gpu.Handle
	attribs      [maxVertexAttribs]attribBinding
	indexBuffer  gpu.Handle
	units        []gpu.Handle
	caps         map[gpu.Capability]bool
	depthMask    bool
	clearColor   [4]float32
	clearDepth   float32
	clearStencil int
	viewport     image.Rectangle

	err   error
	stats Stats
}

// NewDevice creates a device whose default framebuffer is width x height.
func NewDevice(width, height int, opts ...Option) *Device {
	o := options{version: gpu.Modern, extensions: make(map[gpu.Extension]bool)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxUnits <= 0 {
		o.maxUnits = 16
		if o.version == gpu.Modern {
			o.maxUnits = 32
		}
	}
	d := &Device{
		version:       o.version,
		extensions:    o.extensions,
		maxUnits:      o.maxUnits,
		buffers:       make(map[gpu.Handle]*buffer),
		textures:      make(map[gpu.Handle]*texture),
		renderbuffers: make(map[gpu.Handle]*renderbuffer),
		framebuffers:  make(map[gpu.Handle]*framebufferObject),
		shaders:       make(map[gpu.Handle]*shaderObject),
		programs:      make(map[gpu.Handle]*programObject),
		units:         make([]gpu.Handle, o.maxUnits),
		caps:          make(map[gpu.Capability]bool),
		depthMask:     true,
		clearDepth:    1,
	}
	d.Resize(width, height)
	return d
}

// Resize reallocates the default framebuffer and resets the viewport to
// cover it.
func (d *Device) Resize(width, height int) {
	d.screen = NewFramebuffer(width, height)
	d.depth = make([]float64, width*height)
	d.stencil = make([]uint8, width*height)
	fill(d.depth, 1)
	d.viewport = image.Rect(0, 0, width, height)
}

// Framebuffer returns the default color buffer.
func (d *Device) Framebuffer() *Framebuffer { return d.screen }

// Version returns the API version of the device.
func (d *Device) Version() gpu.APIVersion { return d.version }

// Stats returns the draw counters.
func (d *Device) Stats() Stats { return d.stats }

// ResetStats zeroes the draw counters.
func (d *Device) ResetStats() { d.stats = Stats{} }

// TextureImage returns the base image of one target of tex, or nil.
func (d *Device) TextureImage(tex gpu.Handle, target gpu.TextureTarget) *Framebuffer {
	t, ok := d.textures[tex]
	if !ok {
		return nil
	}
	return t.base(target)
}

// MipLevels returns the length of the mip chain of one target of tex.
func (d *Device) MipLevels(tex gpu.Handle, target gpu.TextureTarget) int {
	t, ok := d.textures[tex]
	if !ok {
		return 0
	}
	return len(t.levels[target])
}

// TextureCount returns the number of live textures.
func (d *Device) TextureCount() int { return len(d.textures) }

// Enabled reports the state of a capability.
func (d *Device) Enabled(c gpu.Capability) bool { return d.caps[c] }

// AttribEnabled reports whether an attribute location is enabled.
func (d *Device) AttribEnabled(loc int) bool {
	return loc >= 0 && loc < maxVertexAttribs && d.attribs[loc].enabled
}

// CurrentProgram returns the program in use.
func (d *Device) CurrentProgram() gpu.Handle { return d.program }

// Uniform returns the stored value of a uniform of prog.
func (d *Device) Uniform(prog gpu.Handle, loc gpu.Location) []float64 {
	p, ok := d.programs[prog]
	if !ok {
		return nil
	}
	return p.info.uniform(loc)
}

func (d *Device) record(op string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%s: %w", op, err)
	}
}

// Err returns and clears the first recorded error, like glGetError.
func (d *Device) Err() error {
	err := d.err
	d.err = nil
	return err
}

// MaxCombinedTextureUnits returns the number of texture units.
func (d *Device) MaxCombinedTextureUnits() int { return d.maxUnits }

// Extension reports whether name is enabled on this device.
func (d *Device) Extension(name gpu.Extension) bool { return d.extensions[name] }

func (d *Device) newHandle() gpu.Handle {
	d.next++
	return d.next
}

func (d *Device) supportsIndex32() bool {
	return d.version == gpu.Modern || d.extensions[gpu.ExtElementIndexUint]
}

// CreateVertexBuffer stores a copy of data as a vertex buffer.
func (d *Device) CreateVertexBuffer(data []float32) gpu.Handle {
	h := d.newHandle()
	d.buffers[h] = &buffer{floats: append([]float32(nil), data...)}
	return h
}

// CreateIndexBuffer16 stores a copy of data as a 16-bit index buffer.
func (d *Device) CreateIndexBuffer16(data []uint16) gpu.Handle {
	h := d.newHandle()
	d.buffers[h] = &buffer{short: append([]uint16(nil), data...), width: gpu.Index16}
	return h
}

// CreateIndexBuffer32 stores a copy of data as a 32-bit index buffer.
func (d *Device) CreateIndexBuffer32(data []uint32) gpu.Handle {
	h := d.newHandle()
	d.buffers[h] = &buffer{long: append([]uint32(nil), data...), width: gpu.Index32}
	return h
}

// IsBuffer reports whether h names a live buffer.
func (d *Device) IsBuffer(h gpu.Handle) bool {
	_, ok := d.buffers[h]
	return ok
}

// DeleteBuffer frees h. Unknown handles are ignored.
func (d *Device) DeleteBuffer(h gpu.Handle) {
	if _, ok := d.buffers[h]; !ok {
		return
	}
	delete(d.buffers, h)
	for i := range d.attribs {
		if d.attribs[i].buffer == h {
			d.attribs[i] = attribBinding{}
		}
	}
	if d.indexBuffer == h {
		d.indexBuffer = 0
	}
}

// CreateTexture allocates an empty texture.
func (d *Device) CreateTexture(kind gpu.TextureKind, filter gpu.Filter) gpu.Handle {
	h := d.newHandle()
	d.textures[h] = newTexture(kind, filter)
	return h
}

// TexImage2D replaces the base level of one target of tex with img.
func (d *Device) TexImage2D(tex gpu.Handle, target gpu.TextureTarget, width, height int, typ gpu.PixelType, img image.Image) {
	t, ok := d.textures[tex]
	if !ok {
		d.record("tex image", ErrInvalidOperation)
		return
	}
	if !t.accepts(target) {
		d.record("tex image", ErrInvalidEnum)
		return
	}
	if width <= 0 || height <= 0 {
		d.record("tex image", ErrInvalidValue)
		return
	}
	switch typ {
	case gpu.Float:
		if d.version != gpu.Modern && !d.extensions[gpu.ExtTextureFloat] {
			d.record("tex image float", ErrInvalidEnum)
			return
		}
	case gpu.HalfFloat:
		if d.version != gpu.Modern && !d.extensions[gpu.ExtTextureHalfFloat] {
			d.record("tex image half float", ErrInvalidEnum)
			return
		}
	}
	var base *Framebuffer
	if img == nil {
		base = NewFramebuffer(width, height)
	} else {
		if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
			d.record("tex image", ErrInvalidValue)
			return
		}
		base = FramebufferFromImage(img)
	}
	t.typ = typ
	t.levels[target] = []*Framebuffer{base}
}

// GenerateMipmap rebuilds the mip chain of every target of tex.
func (d *Device) GenerateMipmap(tex gpu.Handle) {
	t, ok := d.textures[tex]
	if !ok {
		d.record("generate mipmap", ErrInvalidOperation)
		return
	}
	if t.kind == gpu.TextureCube {
		for _, face := range gpu.CubeFaces {
			if t.base(face) == nil {
				d.record("generate mipmap: cube incomplete", ErrInvalidOperation)
				return
			}
		}
	}
	t.generateMipmaps()
}

// BindTexture binds tex to a texture unit. Zero unbinds.
func (d *Device) BindTexture(unit int, tex gpu.Handle) {
	if unit < 0 || unit >= d.maxUnits {
		d.record("bind texture", ErrInvalidValue)
		return
	}
	if tex != 0 && !d.IsTexture(tex) {
		d.record("bind texture", ErrInvalidOperation)
		return
	}
	d.units[unit] = tex
}

// IsTexture reports whether h names a live texture.
func (d *Device) IsTexture(h gpu.Handle) bool {
	_, ok := d.textures[h]
	return ok
}

// DeleteTexture frees h and unbinds it from every unit.
func (d *Device) DeleteTexture(h gpu.Handle) {
	if _, ok := d.textures[h]; !ok {
		return
	}
	delete(d.textures, h)
	for i, u := range d.units {
		if u == h {
			d.units[i] = 0
		}
	}
	for _, fb := range d.framebuffers {
		if fb.texture == h {
			fb.texture = 0
		}
	}
}

// CreateRenderbuffer allocates a depth or depth-stencil buffer.
func (d *Device) CreateRenderbuffer(format gpu.RenderbufferFormat, width, height int) gpu.Handle {
	if width <= 0 || height <= 0 {
		d.record("create renderbuffer", ErrInvalidValue)
		return 0
	}
	rb := &renderbuffer{format: format, width: width, height: height, depth: make([]float64, width*height)}
	fill(rb.depth, 1)
	if format == gpu.DepthStencil {
		rb.stencil = make([]uint8, width*height)
	}
	h := d.newHandle()
	d.renderbuffers[h] = rb
	return h
}

// IsRenderbuffer reports whether h names a live renderbuffer.
func (d *Device) IsRenderbuffer(h gpu.Handle) bool {
	_, ok := d.renderbuffers[h]
	return ok
}

// DeleteRenderbuffer frees h. Unknown handles are ignored.
func (d *Device) DeleteRenderbuffer(h gpu.Handle) {
	if _, ok := d.renderbuffers[h]; !ok {
		return
	}
	delete(d.renderbuffers, h)
	for _, fb := range d.framebuffers {
		if fb.renderbuffer == h {
			fb.renderbuffer = 0
		}
	}
}

// CreateFramebuffer allocates a framebuffer with no attachments.
func (d *Device) CreateFramebuffer() gpu.Handle {
	h := d.newHandle()
	d.framebuffers[h] = &framebufferObject{}
	return h
}

// FramebufferTexture attaches one target of tex as the color buffer of fb.
func (d *Device) FramebufferTexture(fb, tex gpu.Handle, target gpu.TextureTarget) {
	f, ok := d.framebuffers[fb]
	if !ok {
		d.record("framebuffer texture", ErrInvalidOperation)
		return
	}
	t, ok := d.textures[tex]
	if !ok || !t.accepts(target) {
		d.record("framebuffer texture", ErrInvalidOperation)
		return
	}
	f.texture, f.target = tex, target
}

// FramebufferRenderbuffer attaches rb as the depth buffer of fb.
func (d *Device) FramebufferRenderbuffer(fb, rb gpu.Handle) {
	f, ok := d.framebuffers[fb]
	if !ok || !d.IsRenderbuffer(rb) {
		d.record("framebuffer renderbuffer", ErrInvalidOperation)
		return
	}
	f.renderbuffer = rb
}

// BindFramebuffer directs drawing to fb, or to the screen for zero.
func (d *Device) BindFramebuffer(fb gpu.Handle) {
	if fb != 0 && !d.IsFramebuffer(fb) {
		d.record("bind framebuffer", ErrInvalidOperation)
		return
	}
	d.boundFB = fb
}

// IsFramebuffer reports whether h names a live framebuffer.
func (d *Device) IsFramebuffer(h gpu.Handle) bool {
	_, ok := d.framebuffers[h]
	return ok
}

// DeleteFramebuffer frees h, falling back to the screen if it was bound.
func (d *Device) DeleteFramebuffer(h gpu.Handle) {
	if _, ok := d.framebuffers[h]; !ok {
		return
	}
	delete(d.framebuffers, h)
	if d.boundFB == h {
		d.boundFB = 0
	}
}

// CreateShader allocates a shader object for stage.
func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.Handle {
	h := d.newHandle()
	d.shaders[h] = &shaderObject{stage: stage}
	return h
}

// CompileShader parses source and returns the info log on failure.
func (d *Device) CompileShader(sh gpu.Handle, source string) (bool, string) {
	s, ok := d.shaders[sh]
	if !ok {
		d.record("compile shader", ErrInvalidValue)
		return false, ""
	}
	info, log := compileShader(s.stage, source, d.version == gpu.Modern)
	s.info = info
	return info != nil, log
}

// DeleteShader frees sh.
func (d *Device) DeleteShader(sh gpu.Handle) {
	delete(d.shaders, sh)
}

// CreateProgram allocates an empty program.
func (d *Device) CreateProgram() gpu.Handle {
	h := d.newHandle()
	d.programs[h] = &programObject{}
	return h
}

// LinkProgram links vs and fs into prog and assigns roles to their variables.
func (d *Device) LinkProgram(prog, vs, fs gpu.Handle) (bool, string) {
	p, ok := d.programs[prog]
	if !ok {
		d.record("link program", ErrInvalidValue)
		return false, ""
	}
	v, vok := d.shaders[vs]
	f, fok := d.shaders[fs]
	switch {
	case !vok || !fok:
		return false, "Attached shader objects are invalid.\n"
	case v.stage != gpu.VertexStage || f.stage != gpu.FragmentStage:
		return false, "Attached shaders have the wrong stages.\n"
	case v.info == nil || f.info == nil:
		return false, "Attached shader not compiled.\n"
	}
	info, log := linkProgram(v.info, f.info)
	p.info = info
	return info != nil, log
}

// IsProgram reports whether h names a live program.
func (d *Device) IsProgram(h gpu.Handle) bool {
	_, ok := d.programs[h]
	return ok
}

// DeleteProgram frees h.
func (d *Device) DeleteProgram(h gpu.Handle) {
	if _, ok := d.programs[h]; !ok {
		return
	}
	delete(d.programs, h)
	if d.program == h {
		d.program = 0
	}
}

// UseProgram makes prog current.
func (d *Device) UseProgram(prog gpu.Handle) {
	if prog == 0 {
		d.program = 0
		return
	}
	p, ok := d.programs[prog]
	if !ok || p.info == nil {
		d.record("use program", ErrInvalidOperation)
		return
	}
	d.program = prog
}

func (d *Device) linked(prog gpu.Handle) *programInfo {
	p, ok := d.programs[prog]
	if !ok {
		return nil
	}
	return p.info
}

// AttribLocation returns the slot of an active attribute, or -1.
func (d *Device) AttribLocation(prog gpu.Handle, name string) int {
	p := d.linked(prog)
	if p == nil {
		d.record("attrib location", ErrInvalidOperation)
		return -1
	}
	return p.attribLocation(name)
}

// UniformLocation looks up an active uniform of prog.
func (d *Device) UniformLocation(prog gpu.Handle, name string) (gpu.Location, bool) {
	p := d.linked(prog)
	if p == nil {
		d.record("uniform location", ErrInvalidOperation)
		return 0, false
	}
	return p.uniformLocation(name)
}

func (d *Device) setUniform(op string, loc gpu.Location, integer bool, size int, data []float64) {
	p := d.linked(d.program)
	if p == nil {
		d.record(op, ErrInvalidOperation)
		return
	}
	if err := p.setUniform(loc, integer, size, data); err != nil {
		d.record(op, err)
	}
}

// UniformInt stores integer uniform data for the current program.
func (d *Device) UniformInt(loc gpu.Location, size int, v []int32) {
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}
	d.setUniform("uniform int", loc, true, size, data)
}

// UniformFloat stores float uniform data for the current program.
func (d *Device) UniformFloat(loc gpu.Location, size int, v []float32) {
	d.setUniform("uniform float", loc, false, size, widen(v))
}

// UniformMatrix stores column-major matrix data for the current program.
func (d *Device) UniformMatrix(loc gpu.Location, dim int, v []float32) {
	if dim < 2 || dim > 4 {
		d.record("uniform matrix", ErrInvalidValue)
		return
	}
	d.setUniform("uniform matrix", loc, false, dim*dim, widen(v))
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// VertexAttrib enables slot loc and points it at buf with size components.
func (d *Device) VertexAttrib(loc int, buf gpu.Handle, size int) {
	if loc < 0 || loc >= maxVertexAttribs || size < 1 || size > 4 {
		d.record("vertex attrib", ErrInvalidValue)
		return
	}
	b, ok := d.buffers[buf]
	if !ok || b.width != 0 {
		d.record("vertex attrib", ErrInvalidOperation)
		return
	}
	d.attribs[loc] = attribBinding{enabled: true, buffer: buf, size: size}
}

// DisableVertexAttrib disables slot loc.
func (d *Device) DisableVertexAttrib(loc int) {
	if loc < 0 || loc >= maxVertexAttribs {
		d.record("disable vertex attrib", ErrInvalidValue)
		return
	}
	d.attribs[loc].enabled = false
}

// BindIndexBuffer sets the buffer read by DrawElements.
func (d *Device) BindIndexBuffer(buf gpu.Handle) {
	if buf == 0 {
		d.indexBuffer = 0
		return
	}
	b, ok := d.buffers[buf]
	if !ok || b.width == 0 {
		d.record("bind index buffer", ErrInvalidOperation)
		return
	}
	d.indexBuffer = buf
}

// SetCapability toggles a capability.
func (d *Device) SetCapability(c gpu.Capability, on bool) {
	d.caps[c] = on
}

// DepthMask toggles depth writes.
func (d *Device) DepthMask(on bool) {
	d.depthMask = on
}

// ClearColor sets the color used by Clear.
func (d *Device) ClearColor(r, g, b, a float32) {
	d.clearColor = [4]float32{r, g, b, a}
}

// ClearDepth sets the depth used by Clear.
func (d *Device) ClearDepth(v float32) {
	d.clearDepth = max(0, min(v, 1))
}

// ClearStencil sets the stencil value used by Clear.
func (d *Device) ClearStencil(s int) {
	d.clearStencil = s
}

// Clear fills the buffers named by mask.
func (d *Device) Clear(mask gpu.ClearMask) {
	tgt, err := d.target()
	if err != nil {
		d.record("clear", err)
		return
	}
	if mask&gpu.ColorBit != 0 {
		tgt.color.Clear(toNRGBA(d.clearColor[0], d.clearColor[1], d.clearColor[2], d.clearColor[3]))
	}
	if mask&gpu.DepthBit != 0 && tgt.depth != nil && d.depthMask {
		fill(tgt.depth, float64(d.clearDepth))
	}
	if mask&gpu.StencilBit != 0 && tgt.stencil != nil {
		fill(tgt.stencil, uint8(d.clearStencil))
	}
}

// Viewport sets the window rectangle in pixels.
func (d *Device) Viewport(x, y, width, height int) {
	if width < 0 || height < 0 {
		d.record("viewport", ErrInvalidValue)
		return
	}
	d.viewport = image.Rect(x, y, x+width, y+height)
}

// renderTarget is the color and depth storage draws write to.
type renderTarget struct {
	color   *Framebuffer
	depth   []float64
	stencil []uint8
}

func (d *Device) target() (renderTarget, error) {
	if d.boundFB == 0 {
		return renderTarget{color: d.screen, depth: d.depth, stencil: d.stencil}, nil
	}
	f := d.framebuffers[d.boundFB]
	t, ok := d.textures[f.texture]
	if !ok {
		return renderTarget{}, ErrIncompleteFramebuffer
	}
	img := t.base(f.target)
	if img == nil {
		return renderTarget{}, ErrIncompleteFramebuffer
	}
	tgt := renderTarget{color: img}
	if rb, ok := d.renderbuffers[f.renderbuffer]; ok {
		if rb.width != img.Width || rb.height != img.Height {
			return renderTarget{}, ErrIncompleteFramebuffer
		}
		tgt.depth, tgt.stencil = rb.depth, rb.stencil
	}
	return tgt, nil
}

func toNRGBA(r, g, b, a float32) color.NRGBA {
	return color.NRGBA{R: unit8(float64(r)), G: unit8(float64(g)), B: unit8(float64(b)), A: unit8(float64(a))}
}

// unit8 maps [0,1] to [0,255] with rounding.
func unit8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

func fill[T any](s []T, v T) {
	if len(s) == 0 {
		return
	}
	s[0] = v
	for i := 1; i < len(s); i *= 2 {
		copy(s[i:], s[:i])
	}
}
