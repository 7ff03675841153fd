package gpu

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/taigrr/cubic/pkg/colors"
)

// Extensions reports the optional capabilities found at construction.
type Extensions struct {
	ElementIndexUint bool
	TextureFloat     bool
	TextureHalfFloat bool
	DrawBuffers      bool
}

type options struct {
	logger   *slog.Logger
	console  bool
	baseline bool
}

// Option configures a Context.
type Option func(*options)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConsoleOutput enables or silences diagnostics. Enabled by default.
func WithConsoleOutput(on bool) Option {
	return func(o *options) {
		o.console = on
	}
}

// WithBaseline skips the Modern API version.
func WithBaseline() Option {
	return func(o *options) {
		o.baseline = true
	}
}

// Context owns one device and every object created through it.
//
// All methods except texture decoding must be called from the goroutine
// that drives frames. Texture futures decode off that goroutine and queue
// their uploads for Poll.
type Context struct {
	dev             Device
	version         APIVersion
	maxTextureUnits int
	ext             Extensions
	logger          *slog.Logger

	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
}

// NewContext acquires a device from surface, preferring Modern and falling
// back to Baseline.
func NewContext(surface Surface, opts ...Option) (*Context, error) {
	o := options{console: true}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	if !o.console {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	versions := []APIVersion{Modern, Baseline}
	if o.baseline {
		versions = versions[1:]
	}
	for _, v := range versions {
		dev, ok := surface.Acquire(v)
		if !ok || dev == nil {
			continue
		}
		c := &Context{
			dev:             dev,
			version:         v,
			maxTextureUnits: dev.MaxCombinedTextureUnits(),
			logger:          logger,
			notify:          make(chan struct{}, 1),
		}
		c.queryExtensions()
		logger.Debug("graphics device acquired",
			"version", v,
			"maxTextureUnits", c.maxTextureUnits,
			"extensions", c.ext)
		return c, nil
	}
	return nil, ErrNoDevice
}

func (c *Context) queryExtensions() {
	c.ext = Extensions{
		ElementIndexUint: c.dev.Extension(ExtElementIndexUint),
		TextureFloat:     c.dev.Extension(ExtTextureFloat),
		TextureHalfFloat: c.dev.Extension(ExtTextureHalfFloat),
		DrawBuffers:      c.dev.Extension(ExtDrawBuffers),
	}
	if c.version == Modern {
		c.ext.ElementIndexUint = true
		c.ext.DrawBuffers = true
	}
}

// Version returns the API version that was acquired.
func (c *Context) Version() APIVersion { return c.version }

// MaxCombinedTextureUnits returns the device texture unit limit.
func (c *Context) MaxCombinedTextureUnits() int { return c.maxTextureUnits }

// Extensions returns the optional capabilities of the device.
func (c *Context) Extensions() Extensions { return c.ext }

// Device returns the underlying device.
func (c *Context) Device() Device { return c.dev }

// Logger returns the diagnostics logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Err returns the first device error recorded since the last call.
func (c *Context) Err() error { return c.dev.Err() }

// CreateVertexBuffer uploads immutable float vertex data.
func (c *Context) CreateVertexBuffer(data []float32) Handle {
	return c.dev.CreateVertexBuffer(data)
}

// CreateIndexBuffer16 uploads 16-bit indices.
func (c *Context) CreateIndexBuffer16(data []uint16) Handle {
	return c.dev.CreateIndexBuffer16(data)
}

// CreateIndexBuffer32 uploads 32-bit indices. It fails with ErrUnsupported
// when the device has no 32-bit index support.
func (c *Context) CreateIndexBuffer32(data []uint32) (Handle, error) {
	if !c.ext.ElementIndexUint {
		c.logger.Warn("32-bit indices not supported", "version", c.version)
		return 0, fmt.Errorf("create index buffer: %s: %w", ExtElementIndexUint, ErrUnsupported)
	}
	return c.dev.CreateIndexBuffer32(data), nil
}

// IndexBuffer is an uploaded index buffer with the width it was stored at.
type IndexBuffer struct {
	Handle Handle
	Width  IndexWidth
	Count  int
}

// CreateIndexBuffer stores data at 16 bits when every index fits and at
// 32 bits otherwise.
func (c *Context) CreateIndexBuffer(data []uint32) (IndexBuffer, error) {
	fits := true
	for _, v := range data {
		if v > math.MaxUint16 {
			fits = false
			break
		}
	}
	if fits {
		short := make([]uint16, len(data))
		for i, v := range data {
			short[i] = uint16(v)
		}
		return IndexBuffer{Handle: c.dev.CreateIndexBuffer16(short), Width: Index16, Count: len(data)}, nil
	}
	h, err := c.CreateIndexBuffer32(data)
	if err != nil {
		return IndexBuffer{}, err
	}
	return IndexBuffer{Handle: h, Width: Index32, Count: len(data)}, nil
}

// DeleteBuffer deletes a vertex or index buffer. Unknown handles are ignored.
func (c *Context) DeleteBuffer(h Handle) {
	if !c.dev.IsBuffer(h) {
		return
	}
	c.dev.DeleteBuffer(h)
}

// DeleteTexture deletes a texture. Unknown handles are ignored.
func (c *Context) DeleteTexture(h Handle) {
	if !c.dev.IsTexture(h) {
		return
	}
	c.dev.DeleteTexture(h)
}

// BindTexture binds tex to a texture unit for sampling.
func (c *Context) BindTexture(unit int, tex Handle) {
	c.dev.BindTexture(unit, tex)
}

// SetFaceCulling toggles back face culling.
func (c *Context) SetFaceCulling(on bool) { c.dev.SetCapability(CullFace, on) }

// SetDepthTest toggles the depth test.
func (c *Context) SetDepthTest(on bool) { c.dev.SetCapability(DepthTest, on) }

// SetDepthWrite toggles depth buffer writes.
func (c *Context) SetDepthWrite(on bool) { c.dev.DepthMask(on) }

// SetBlend toggles alpha blending.
func (c *Context) SetBlend(on bool) { c.dev.SetCapability(Blend, on) }

// SetStencilTest toggles the stencil test.
func (c *Context) SetStencilTest(on bool) { c.dev.SetCapability(StencilTest, on) }

// Clear clears the color buffer and, when given, the depth and stencil
// buffers. A nil color keeps the previous clear color.
func (c *Context) Clear(color *colors.Color, depth *float64, stencil *int) {
	mask := ColorBit
	if color != nil {
		c.dev.ClearColor(float32(color.R), float32(color.G), float32(color.B), float32(color.A))
	}
	if depth != nil {
		c.dev.ClearDepth(float32(*depth))
		mask |= DepthBit
	}
	if stencil != nil {
		c.dev.ClearStencil(*stencil)
		mask |= StencilBit
	}
	c.dev.Clear(mask)
}

// Viewport sets the viewport rectangle in pixels.
func (c *Context) Viewport(x, y, width, height int) {
	c.dev.Viewport(x, y, width, height)
}

// DrawArrays draws count vertices starting at first from the bound attributes.
func (c *Context) DrawArrays(prim Primitive, first, count int) {
	c.dev.DrawArrays(prim, first, count)
}

// DrawElements draws count indices of the given width from the bound index
// buffer. Binding order is the caller's responsibility.
func (c *Context) DrawElements(prim Primitive, count int, width IndexWidth) {
	c.dev.DrawElements(prim, count, width, 0)
}

// DrawIndexed draws every index of ib. ib must be bound.
func (c *Context) DrawIndexed(prim Primitive, ib IndexBuffer) {
	c.dev.DrawElements(prim, ib.Count, ib.Width, 0)
}

// CreateProgram compiles and links a program and, once linked, resolves
// its bindings. The returned program is never nil; check its State or the
// error for build diagnostics.
func (c *Context) CreateProgram(vs, fs string, attrs []AttributeBinding, uniforms []UniformBinding) (*Program, error) {
	p := c.NewProgram()
	if err := p.CompileAndLink(vs, fs); err != nil {
		return p, err
	}
	if err := p.ResolveBindings(attrs, uniforms); err != nil {
		return p, err
	}
	return p, nil
}
