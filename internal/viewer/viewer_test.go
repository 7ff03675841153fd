package viewer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/cubic/internal/config"
	"github.com/taigrr/cubic/pkg/geometry"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
	"github.com/taigrr/cubic/pkg/render"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Shape.Rows, cfg.Shape.Columns = 8, 8
	cfg.Device.Width, cfg.Device.Height = 64, 48
	return cfg
}

func newViewer(t *testing.T, surface *render.Surface, cfg *config.Config, opts ...Option) *Viewer {
	t.Helper()
	ctx, err := gpu.NewContext(surface, gpu.WithConsoleOutput(false))
	require.NoError(t, err)
	v, err := New(ctx, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestFrame(t *testing.T) {
	cfg := testConfig()
	surface := render.NewSurface(64, 48)
	v := newViewer(t, surface, cfg)
	dev := surface.Device()

	assert.Len(t, v.Mesh().Index, 384)
	assert.Equal(t, 5.0, v.Camera().Distance())

	require.NoError(t, v.Frame(0))

	view := v.Camera().View()
	for i, x := range view {
		assert.False(t, math.IsNaN(x), "view[%d] is NaN", i)
	}
	assert.NotZero(t, view.Determinant())

	stats := dev.Stats()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Zero(t, stats.Skipped)
	assert.Positive(t, stats.Fragments)

	fb := dev.Framebuffer()
	assert.Equal(t, color.NRGBA{255, 0, 255, 255}, fb.GetPixel(0, 0), "corner shows the clear color")
	assert.NoError(t, dev.Err())
}

func TestFrameRotatesModel(t *testing.T) {
	cfg := testConfig()
	cfg.Spin.Speed = 2
	v := newViewer(t, render.NewSurface(64, 48), cfg)

	require.NoError(t, v.Frame(0.25))
	want := math3d.Identity().Rotate(0.5, math3d.V3(1, 1, 0))
	assert.True(t, v.Model().ApproxEqual(want, 1e-9))

	v.Spin(0.3)
	require.NoError(t, v.Frame(0))
	want = math3d.Identity().Rotate(0.8, math3d.V3(1, 1, 0))
	assert.True(t, v.Model().ApproxEqual(want, 1e-9), "first step applies the whole impulse")

	v.Reset()
	require.NoError(t, v.Frame(0))
	assert.True(t, v.Model().ApproxEqual(math3d.Identity(), 1e-9))
}

func TestWireframe(t *testing.T) {
	surface := render.NewSurface(64, 48)
	v := newViewer(t, surface, testConfig())

	assert.False(t, v.Wireframe())
	assert.True(t, v.ToggleWireframe())
	require.NoError(t, v.Frame(0))

	stats := surface.Device().Stats()
	assert.Equal(t, 1, stats.DrawCalls)
	assert.Positive(t, stats.Fragments)

	assert.False(t, v.ToggleWireframe())
}

func TestResize(t *testing.T) {
	surface := render.NewSurface(64, 48)
	v := newViewer(t, surface, testConfig())

	surface.Device().Resize(32, 16)
	v.Resize(32, 16)
	assert.Equal(t, 2.0, v.Projection().Aspect())
	assert.Equal(t, 32.0, v.Camera().Bounds().Width)
	require.NoError(t, v.Frame(0))
}

func TestWithGeometry(t *testing.T) {
	v := newViewer(t, render.NewSurface(64, 48), testConfig(), WithGeometry(geometry.Cube(2)))
	assert.Equal(t, 24, v.Mesh().VertexCount())
	require.NoError(t, v.Frame(0))
}

func TestNewErrors(t *testing.T) {
	newCtx := func(t *testing.T, surface *render.Surface) *gpu.Context {
		ctx, err := gpu.NewContext(surface, gpu.WithConsoleOutput(false))
		require.NoError(t, err)
		return ctx
	}

	t.Run("malformed geometry", func(t *testing.T) {
		ctx := newCtx(t, render.NewSurface(8, 8))
		_, err := New(ctx, testConfig(), WithGeometry(geometry.Attribute{Position: []float32{1, 2}}))
		assert.ErrorIs(t, err, geometry.ErrMalformed)
	})

	t.Run("32-bit indices on baseline", func(t *testing.T) {
		surface := &render.Surface{Width: 8, Height: 8, Versions: []gpu.APIVersion{gpu.Baseline}}
		cfg := testConfig()
		cfg.Shape.Rows, cfg.Shape.Columns = 300, 300
		_, err := New(newCtx(t, surface), cfg)
		assert.ErrorIs(t, err, gpu.ErrUnsupported)
	})

	t.Run("missing shader", func(t *testing.T) {
		cfg := testConfig()
		cfg.Shaders = config.Shaders{Vertex: "missing.vert", Fragment: "missing.frag"}
		_, err := New(newCtx(t, render.NewSurface(8, 8)), cfg)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("broken shader", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig()
		cfg.Shaders = config.Shaders{
			Vertex:   filepath.Join(dir, "a.vert"),
			Fragment: filepath.Join(dir, "a.frag"),
		}
		require.NoError(t, os.WriteFile(cfg.Shaders.Vertex, []byte(defaultVertex), 0o644))
		require.NoError(t, os.WriteFile(cfg.Shaders.Fragment, []byte("void main() {\n"), 0o644))

		_, err := New(newCtx(t, render.NewSurface(8, 8)), cfg)
		assert.ErrorIs(t, err, gpu.ErrBuild)
		var buildErr *gpu.BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.NotEmpty(t, buildErr.Fragment)
	})
}

func TestCustomShaders(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Shaders = config.Shaders{
		Vertex:   filepath.Join(dir, "flat.vert"),
		Fragment: filepath.Join(dir, "flat.frag"),
	}
	require.NoError(t, os.WriteFile(cfg.Shaders.Vertex, []byte(`
attribute vec3 position;
uniform mat4 mvpMatrix;
void main() {
	gl_Position = mvpMatrix * vec4(position, 1.0);
}
`), 0o644))
	require.NoError(t, os.WriteFile(cfg.Shaders.Fragment, []byte(`
precision mediump float;
void main() {
	gl_FragColor = vec4(1.0);
}
`), 0o644))

	v := newViewer(t, render.NewSurface(64, 48), cfg)
	assert.Equal(t, -1, v.program.AttributeLocation(1), "normal is inert")
	assert.False(t, v.program.UniformResolved(2), "light is inert")
	require.NoError(t, v.Frame(0))
}

func TestTexture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checker.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	cfg := testConfig()
	cfg.Texture = path
	v := newViewer(t, render.NewSurface(64, 48), cfg)

	assert.False(t, v.Textured())
	require.Eventually(t, func() bool {
		return v.Frame(0) == nil && v.Textured()
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTextureLoadFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Texture = filepath.Join(t.TempDir(), "missing.png")
	v := newViewer(t, render.NewSurface(64, 48), cfg)

	require.Eventually(t, func() bool {
		return v.Frame(0) == nil && v.pending == nil
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, v.Textured())
}

func TestClose(t *testing.T) {
	surface := render.NewSurface(64, 48)
	v := newViewer(t, surface, testConfig())
	dev := surface.Device()
	prog := v.program.Handle()
	buffers := append([]gpu.Handle{v.triangles.Handle, v.lines.Handle}, v.buffers...)

	v.Close()
	v.Close()

	assert.False(t, dev.IsProgram(prog))
	for _, h := range buffers {
		assert.False(t, dev.IsBuffer(h))
	}
	assert.ErrorIs(t, v.Frame(0), ErrClosed)
}

func TestWithTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	v := newViewer(t, render.NewSurface(64, 48), testConfig(), WithTexture(gpu.FromImage(img)))

	require.Eventually(t, func() bool {
		return v.Frame(0) == nil && v.Textured()
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTexturePendingFromBytes(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	cfg := testConfig()
	require.Empty(t, cfg.Texture)
	v := newViewer(t, render.NewSurface(64, 48), cfg, WithTexture(gpu.FromBytes(buf.Bytes())))
	assert.True(t, v.TexturePending())

	deadline := time.Now().Add(5 * time.Second)
	for v.TexturePending() && time.Now().Before(deadline) {
		require.NoError(t, v.Frame(0))
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, v.TexturePending())
	assert.True(t, v.Textured())
}

func TestCloseDiscardsPendingTexture(t *testing.T) {
	surface := render.NewSurface(64, 48)
	release := make(chan struct{})
	v := newViewer(t, surface, testConfig(), WithTexture(func() (image.Image, error) {
		<-release
		return image.NewNRGBA(image.Rect(0, 0, 2, 2)), nil
	}))
	f := v.pending
	require.NotNil(t, f)

	v.Close()
	assert.False(t, v.TexturePending())
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := v.ctx.Await(ctx, f)
	assert.ErrorIs(t, err, gpu.ErrDiscarded)
	assert.Zero(t, surface.Device().TextureCount())
}
