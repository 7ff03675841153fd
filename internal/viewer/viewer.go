// Package viewer composes one frame of the scene: it clears the target,
// updates the orbit camera, builds the model, view and projection
// matrices and draws the configured geometry.
package viewer

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/taigrr/cubic/internal/config"
	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/geometry"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
	"github.com/taigrr/cubic/pkg/orbit"
)

var (
	//go:embed shaders/default.vert
	defaultVertex string
	//go:embed shaders/default.frag
	defaultFragment string
)

var attributes = []gpu.AttributeBinding{
	{Name: "position", Size: 3},
	{Name: "normal", Size: 3},
	{Name: "color", Size: 4},
	{Name: "texCoord", Size: 2},
}

var uniforms = []gpu.UniformBinding{
	{Name: "mvpMatrix", Kind: gpu.UniformMat4},
	{Name: "normalMatrix", Kind: gpu.UniformMat4},
	{Name: "lightDirection", Kind: gpu.UniformFloatVec3},
	{Name: "tex", Kind: gpu.UniformInt},
}

// ErrClosed is returned by Frame after Close.
var ErrClosed = errors.New("viewer closed")

// modelAxis is the axis the model spins around.
var modelAxis = math3d.V3(1, 1, 0)

// DefaultLight is the light direction used unless WithLight is given.
var DefaultLight = math3d.V3(0.5, 1, 0.3).Normalize()

type options struct {
	mesh    *geometry.Attribute
	light   math3d.Vec3
	texture gpu.ImageSource
}

// Option configures a Viewer.
type Option func(*options)

// WithGeometry draws a instead of the configured shape.
func WithGeometry(a geometry.Attribute) Option {
	return func(o *options) {
		o.mesh = &a
	}
}

// WithTexture loads the model texture from src unless the configuration
// names a texture file.
func WithTexture(src gpu.ImageSource) Option {
	return func(o *options) {
		o.texture = src
	}
}

// WithLight sets the light direction.
func WithLight(dir math3d.Vec3) Option {
	return func(o *options) {
		o.light = dir.Normalize()
	}
}

// Viewer owns the GPU resources of one scene.
type Viewer struct {
	ctx    *gpu.Context
	cfg    *config.Config
	logger *slog.Logger

	program    *gpu.Program
	buffers    []gpu.Handle
	triangles  gpu.IndexBuffer
	lines      gpu.IndexBuffer
	texture    gpu.Handle
	pending    *gpu.TextureFuture
	mesh       geometry.Attribute
	light      math3d.Vec3
	camera     *orbit.Camera
	projection *orbit.Projection
	spin       SpinAxis

	width, height int
	elapsed       float64
	model         math3d.Mat4
	wireframe     bool
	closed        bool
}

// New uploads the scene described by cfg. The viewport starts at the
// configured device size.
func New(ctx *gpu.Context, cfg *config.Config, opts ...Option) (*Viewer, error) {
	o := options{light: DefaultLight}
	for _, opt := range opts {
		opt(&o)
	}

	var mesh geometry.Attribute
	if o.mesh != nil {
		mesh = *o.mesh
	} else {
		var err error
		if mesh, err = cfg.Geometry(); err != nil {
			return nil, err
		}
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	vs, fs, err := shaderSources(cfg.Shaders)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		ctx:    ctx,
		cfg:    cfg,
		logger: ctx.Logger(),
		mesh:   mesh,
		light:  o.light,
		width:  cfg.Device.Width,
		height: cfg.Device.Height,
		model:  math3d.Identity(),
		spin:   NewSpinAxis(cfg.FPS, cfg.Spin.Frequency, cfg.Spin.Damping),
	}

	v.program, err = ctx.CreateProgram(vs, fs, attributes, uniforms)
	if err != nil {
		v.Close()
		return nil, err
	}

	v.buffers = []gpu.Handle{
		ctx.CreateVertexBuffer(mesh.Position),
		ctx.CreateVertexBuffer(mesh.Normal),
		ctx.CreateVertexBuffer(mesh.Color),
		ctx.CreateVertexBuffer(mesh.TexCoord),
	}
	if v.triangles, err = ctx.CreateIndexBuffer(mesh.Index); err != nil {
		v.Close()
		return nil, fmt.Errorf("upload triangles: %w", err)
	}
	if v.lines, err = ctx.CreateIndexBuffer(mesh.Wireframe()); err != nil {
		v.Close()
		return nil, fmt.Errorf("upload wireframe: %w", err)
	}

	switch {
	case cfg.Texture != "":
		v.pending = ctx.CreateTexture2D(gpu.FromFile(cfg.Texture))
	case o.texture != nil:
		v.pending = ctx.CreateTexture2D(o.texture)
	}

	cam := cfg.Camera
	v.camera = orbit.New(v.bounds(),
		orbit.WithDistanceRange(cam.Min, cam.Max),
		orbit.WithDistance(cam.Distance),
		orbit.WithMoveScale(cam.MoveScale),
	)
	p := cfg.Projection
	v.projection = orbit.NewProjection(p.Fovy, v.aspect(), p.Near, p.Far)

	ctx.SetDepthTest(true)
	ctx.SetFaceCulling(true)

	v.logger.Debug("scene ready",
		"vertices", mesh.VertexCount(),
		"triangles", mesh.TriangleCount(),
		"indexWidth", v.triangles.Width)
	return v, nil
}

func shaderSources(s config.Shaders) (vs, fs string, err error) {
	if s.Vertex == "" {
		return defaultVertex, defaultFragment, nil
	}
	vb, err := os.ReadFile(s.Vertex)
	if err != nil {
		return "", "", fmt.Errorf("read vertex shader: %w", err)
	}
	fb, err := os.ReadFile(s.Fragment)
	if err != nil {
		return "", "", fmt.Errorf("read fragment shader: %w", err)
	}
	return string(vb), string(fb), nil
}

// Frame advances the scene by dt seconds and draws it.
func (v *Viewer) Frame(dt float64) error {
	if v.closed {
		return ErrClosed
	}
	v.pollTexture()
	v.elapsed += dt
	v.spin.Update()

	clearColor := colors.Color(v.cfg.Clear)
	depth := 1.0
	v.ctx.Clear(&clearColor, &depth, nil)
	v.ctx.Viewport(0, 0, v.width, v.height)

	angle := v.elapsed*v.cfg.Spin.Speed + v.spin.Position
	v.model = math3d.Identity().Rotate(angle, modelAxis)
	view := v.camera.Update()
	vp := v.projection.Matrix().Mul(view)
	mvp := vp.Mul(v.model)
	normal := v.model.Inverse().Transpose()

	if err := v.program.Use(); err != nil {
		return err
	}
	prim, ib := gpu.Triangles, v.triangles
	if v.wireframe {
		prim, ib = gpu.Lines, v.lines
	}
	v.program.BindVertexState(v.buffers, ib.Handle)
	defer v.program.UnbindVertexState()
	if err := v.program.UploadUniforms(&mvp, &normal, v.light, 0); err != nil {
		return err
	}
	v.ctx.BindTexture(0, v.texture)
	v.ctx.DrawIndexed(prim, ib)
	return v.ctx.Err()
}

// pollTexture runs queued texture uploads and adopts the texture once it
// resolves. A failed load is logged and the scene stays untextured.
func (v *Viewer) pollTexture() {
	if v.pending == nil {
		return
	}
	v.ctx.Poll()
	select {
	case <-v.pending.Done():
	default:
		return
	}
	tex, err := v.pending.Result()
	v.pending = nil
	if err != nil {
		v.logger.Warn("texture load failed", "error", err)
		return
	}
	v.texture = tex
}

// Resize sets the viewport size and updates the camera bounds and aspect.
func (v *Viewer) Resize(width, height int) {
	v.width, v.height = width, height
	v.camera.SetBounds(v.bounds())
	v.projection.SetAspect(v.aspect())
}

func (v *Viewer) bounds() orbit.Bounds {
	return orbit.Bounds{Width: float64(v.width), Height: float64(v.height)}
}

func (v *Viewer) aspect() float64 {
	if v.height == 0 {
		return 1
	}
	return float64(v.width) / float64(v.height)
}

// Camera returns the orbit camera for input forwarding.
func (v *Viewer) Camera() *orbit.Camera { return v.camera }

// Projection returns the perspective projection.
func (v *Viewer) Projection() *orbit.Projection { return v.projection }

// Model returns the model matrix of the last frame.
func (v *Viewer) Model() math3d.Mat4 { return v.model }

// Mesh returns the geometry being drawn.
func (v *Viewer) Mesh() geometry.Attribute { return v.mesh }

// Textured reports whether a texture is bound to the model.
func (v *Viewer) Textured() bool { return v.texture != 0 }

// TexturePending reports whether a texture is still loading.
func (v *Viewer) TexturePending() bool { return v.pending != nil }

// Wireframe reports whether edges are drawn instead of faces.
func (v *Viewer) Wireframe() bool { return v.wireframe }

// ToggleWireframe switches between faces and edges and returns the new mode.
func (v *Viewer) ToggleWireframe() bool {
	v.wireframe = !v.wireframe
	return v.wireframe
}

// Spin adds an angular impulse in radians per frame to the model.
func (v *Viewer) Spin(impulse float64) {
	v.spin.Impulse(impulse)
}

// Reset stops the spin and restarts the model rotation.
func (v *Viewer) Reset() {
	v.spin.Reset()
	v.elapsed = 0
}

// Close releases every GPU resource. It is safe to call more than once.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	if v.program != nil {
		v.program.Delete()
	}
	for _, h := range v.buffers {
		v.ctx.DeleteBuffer(h)
	}
	v.ctx.DeleteBuffer(v.triangles.Handle)
	v.ctx.DeleteBuffer(v.lines.Handle)
	if v.pending != nil {
		v.pending.Discard()
		if tex, err := v.pending.Result(); err == nil {
			v.ctx.DeleteTexture(tex)
		}
		v.pending = nil
	}
	v.ctx.DeleteTexture(v.texture)
	v.texture = 0
}
