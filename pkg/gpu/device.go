// Package gpu mediates GPU object creation, shader programs and per-draw
// state on top of an abstract graphics device.
//
// A Device is an explicit-handle graphics API: every object is named by a
// Handle returned from a Create call and every operation names the objects
// it touches. The only ambient state a Device keeps is the current program,
// vertex attribute bindings, bound framebuffer and the pipeline toggles.
package gpu

import "image"

// Handle names a device object. The zero Handle names nothing.
type Handle uint32

// Location is a resolved uniform slot. Unresolved uniforms have no Location.
type Location int32

// APIVersion selects the feature level a Surface provides.
type APIVersion int

const (
	// Baseline is the minimum feature level; 32-bit indices and float
	// textures are optional extensions.
	Baseline APIVersion = iota + 1
	// Modern has 32-bit indices and multiple draw buffers built in.
	Modern
)

func (v APIVersion) String() string {
	switch v {
	case Baseline:
		return "baseline"
	case Modern:
		return "modern"
	default:
		return "unknown"
	}
}

// Extension names an optional device capability.
type Extension string

// Extensions queried by NewContext.
const (
	ExtElementIndexUint Extension = "OES_element_index_uint"
	ExtTextureFloat     Extension = "OES_texture_float"
	ExtTextureHalfFloat Extension = "OES_texture_half_float"
	ExtDrawBuffers      Extension = "WEBGL_draw_buffers"
)

// Capability is a pipeline toggle.
type Capability int

const (
	CullFace Capability = iota
	DepthTest
	Blend
	StencilTest
)

// Primitive is the assembly mode of a draw call.
type Primitive int

const (
	Points Primitive = iota
	Lines
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

// IndexWidth is the size in bytes of one index.
type IndexWidth int

const (
	Index16 IndexWidth = 2
	Index32 IndexWidth = 4
)

// ShaderStage identifies a programmable stage.
type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	if s == VertexStage {
		return "vertex"
	}
	return "fragment"
}

// TextureKind is the dimensionality of a texture object.
type TextureKind int

const (
	Texture2D TextureKind = iota
	TextureCube
)

// TextureTarget is an image slot of a texture: the single 2D image or one
// cube face.
type TextureTarget int

const (
	Target2D TextureTarget = iota
	CubePositiveX
	CubeNegativeX
	CubePositiveY
	CubeNegativeY
	CubePositiveZ
	CubeNegativeZ
)

// CubeFaces lists the six cube face targets in conventional order.
var CubeFaces = []TextureTarget{
	CubePositiveX, CubeNegativeX,
	CubePositiveY, CubeNegativeY,
	CubePositiveZ, CubeNegativeZ,
}

// PixelType is the storage type of texture texels.
type PixelType int

const (
	UnsignedByte PixelType = iota
	Float
	HalfFloat
)

// Filter is a texture sampling filter.
type Filter int

const (
	Linear Filter = iota
	Nearest
)

// RenderbufferFormat is the storage of a depth or depth-stencil attachment.
type RenderbufferFormat int

const (
	Depth16 RenderbufferFormat = iota
	DepthStencil
)

// ClearMask selects the buffers Clear affects.
type ClearMask int

const (
	ColorBit ClearMask = 1 << iota
	DepthBit
	StencilBit
)

// Surface hands out devices. Acquire reports false when the surface cannot
// provide the requested version.
type Surface interface {
	Acquire(v APIVersion) (Device, bool)
}

// Device is the graphics device collaborator driven by Context and Program.
// Operations on unknown handles are ignored unless documented otherwise.
type Device interface {
	MaxCombinedTextureUnits() int
	Extension(name Extension) bool
	// Err returns and clears the first error recorded since the last call.
	Err() error

	CreateVertexBuffer(data []float32) Handle
	CreateIndexBuffer16(data []uint16) Handle
	CreateIndexBuffer32(data []uint32) Handle
	IsBuffer(h Handle) bool
	DeleteBuffer(h Handle)

	CreateTexture(kind TextureKind, filter Filter) Handle
	// TexImage2D defines the image of one target of tex. A nil img allocates
	// width x height texels with undefined contents.
	TexImage2D(tex Handle, target TextureTarget, width, height int, typ PixelType, img image.Image)
	GenerateMipmap(tex Handle)
	BindTexture(unit int, tex Handle)
	IsTexture(h Handle) bool
	DeleteTexture(h Handle)

	CreateRenderbuffer(format RenderbufferFormat, width, height int) Handle
	IsRenderbuffer(h Handle) bool
	DeleteRenderbuffer(h Handle)

	CreateFramebuffer() Handle
	FramebufferTexture(fb, tex Handle, target TextureTarget)
	FramebufferRenderbuffer(fb, rb Handle)
	// BindFramebuffer directs rendering to fb; zero selects the default framebuffer.
	BindFramebuffer(fb Handle)
	IsFramebuffer(h Handle) bool
	DeleteFramebuffer(h Handle)

	CreateShader(stage ShaderStage) Handle
	// CompileShader reports success and the compiler info log.
	CompileShader(sh Handle, source string) (bool, string)
	DeleteShader(sh Handle)

	CreateProgram() Handle
	// LinkProgram reports success and the linker info log.
	LinkProgram(prog, vs, fs Handle) (bool, string)
	IsProgram(h Handle) bool
	DeleteProgram(h Handle)
	UseProgram(prog Handle)
	// AttribLocation returns -1 when prog has no active attribute name.
	AttribLocation(prog Handle, name string) int
	UniformLocation(prog Handle, name string) (Location, bool)

	// Uniform uploads apply to the current program.
	UniformInt(loc Location, size int, v []int32)
	UniformFloat(loc Location, size int, v []float32)
	UniformMatrix(loc Location, dim int, v []float32)

	VertexAttrib(loc int, buf Handle, size int)
	DisableVertexAttrib(loc int)
	// BindIndexBuffer selects the index source of DrawElements; zero unbinds.
	BindIndexBuffer(buf Handle)

	SetCapability(c Capability, on bool)
	DepthMask(on bool)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	ClearStencil(s int)
	Clear(mask ClearMask)
	Viewport(x, y, width, height int)

	DrawArrays(prim Primitive, first, count int)
	DrawElements(prim Primitive, count int, width IndexWidth, offset int)
}
