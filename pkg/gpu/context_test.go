package gpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/render"
)

func newContext(t *testing.T, s *render.Surface, opts ...gpu.Option) *gpu.Context {
	t.Helper()
	opts = append([]gpu.Option{gpu.WithConsoleOutput(false)}, opts...)
	c, err := gpu.NewContext(s, opts...)
	require.NoError(t, err)
	return c
}

func TestNewContext(t *testing.T) {
	tests := []struct {
		name     string
		surface  *render.Surface
		opts     []gpu.Option
		version  gpu.APIVersion
		units    int
		index32  bool
		drawBufs bool
	}{
		{
			name:     "prefers modern",
			surface:  render.NewSurface(4, 4),
			version:  gpu.Modern,
			units:    32,
			index32:  true,
			drawBufs: true,
		},
		{
			name:    "falls back to baseline",
			surface: &render.Surface{Width: 4, Height: 4, Versions: []gpu.APIVersion{gpu.Baseline}},
			version: gpu.Baseline,
			units:   16,
		},
		{
			name:    "baseline requested",
			surface: render.NewSurface(4, 4),
			opts:    []gpu.Option{gpu.WithBaseline()},
			version: gpu.Baseline,
			units:   16,
		},
		{
			name: "baseline with extensions",
			surface: &render.Surface{
				Width: 4, Height: 4,
				Versions: []gpu.APIVersion{gpu.Baseline},
				Options:  []render.Option{render.WithExtensions(gpu.ExtElementIndexUint, gpu.ExtDrawBuffers)},
			},
			version:  gpu.Baseline,
			units:    16,
			index32:  true,
			drawBufs: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newContext(t, tc.surface, tc.opts...)
			assert.Equal(t, tc.version, c.Version())
			assert.Equal(t, tc.units, c.MaxCombinedTextureUnits())
			assert.Equal(t, tc.index32, c.Extensions().ElementIndexUint)
			assert.Equal(t, tc.drawBufs, c.Extensions().DrawBuffers)
			assert.False(t, c.Extensions().TextureFloat)
			assert.NotNil(t, c.Logger())
		})
	}
}

func TestNewContextNoDevice(t *testing.T) {
	s := &render.Surface{Width: 1, Height: 1, Versions: []gpu.APIVersion{}}
	_, err := gpu.NewContext(s)
	assert.ErrorIs(t, err, gpu.ErrNoDevice)

	s = &render.Surface{Width: 1, Height: 1, Versions: []gpu.APIVersion{gpu.Modern}}
	_, err = gpu.NewContext(s, gpu.WithBaseline())
	assert.ErrorIs(t, err, gpu.ErrNoDevice)
}

func TestIndexBuffers(t *testing.T) {
	small := []uint32{0, 1, 2}
	large := []uint32{0, 1, 70000}

	t.Run("modern", func(t *testing.T) {
		c := newContext(t, render.NewSurface(1, 1))
		ib, err := c.CreateIndexBuffer(small)
		require.NoError(t, err)
		assert.Equal(t, gpu.Index16, ib.Width)
		assert.Equal(t, 3, ib.Count)

		ib, err = c.CreateIndexBuffer(large)
		require.NoError(t, err)
		assert.Equal(t, gpu.Index32, ib.Width)
		assert.True(t, c.Device().IsBuffer(ib.Handle))
	})

	t.Run("baseline", func(t *testing.T) {
		c := newContext(t, render.NewSurface(1, 1), gpu.WithBaseline())
		ib, err := c.CreateIndexBuffer(small)
		require.NoError(t, err)
		assert.Equal(t, gpu.Index16, ib.Width)

		_, err = c.CreateIndexBuffer(large)
		assert.ErrorIs(t, err, gpu.ErrUnsupported)
		_, err = c.CreateIndexBuffer32(large)
		assert.ErrorIs(t, err, gpu.ErrUnsupported)
	})

	t.Run("delete twice", func(t *testing.T) {
		c := newContext(t, render.NewSurface(1, 1))
		vb := c.CreateVertexBuffer([]float32{0, 0, 0})
		c.DeleteBuffer(vb)
		c.DeleteBuffer(vb)
		assert.False(t, c.Device().IsBuffer(vb))
		assert.NoError(t, c.Err())
	})
}

func TestClearAndToggles(t *testing.T) {
	s := render.NewSurface(2, 2)
	c := newContext(t, s)
	dev := s.Device()

	c.SetFaceCulling(true)
	c.SetDepthTest(true)
	c.SetBlend(true)
	c.SetStencilTest(true)
	assert.True(t, dev.Enabled(gpu.CullFace))
	assert.True(t, dev.Enabled(gpu.DepthTest))
	assert.True(t, dev.Enabled(gpu.Blend))
	assert.True(t, dev.Enabled(gpu.StencilTest))
	c.SetBlend(false)
	assert.False(t, dev.Enabled(gpu.Blend))

	magenta := colors.RGBA(1, 0, 1, 1)
	depth := 1.0
	stencil := 0
	c.Clear(&magenta, &depth, &stencil)
	require.NoError(t, c.Err())
	assert.Equal(t, magenta.NRGBA(), dev.Framebuffer().GetPixel(1, 1))

	// A nil color keeps the previous clear color.
	dev.Framebuffer().SetPixel(0, 0, colors.RGBA(0, 0, 0, 0).NRGBA())
	c.Clear(nil, nil, nil)
	assert.Equal(t, magenta.NRGBA(), dev.Framebuffer().GetPixel(0, 0))
}

func TestFramebuffers(t *testing.T) {
	t.Run("color and depth", func(t *testing.T) {
		s := render.NewSurface(8, 8)
		c := newContext(t, s)
		fb := c.CreateFramebuffer(4, 4)
		require.NoError(t, c.Err())
		assert.NotZero(t, fb.Renderbuffer)

		c.BindFramebuffer(&fb)
		red := colors.RGBA(1, 0, 0, 1)
		c.Clear(&red, nil, nil)
		require.NoError(t, c.Err())
		assert.Equal(t, red.NRGBA(), s.Device().TextureImage(fb.Texture, gpu.Target2D).GetPixel(3, 3))
		assert.Zero(t, s.Device().Framebuffer().GetPixel(0, 0).A)

		c.BindFramebuffer(nil)
		c.DeleteFramebuffer(fb)
		c.DeleteFramebuffer(fb)
		dev := c.Device()
		assert.False(t, dev.IsFramebuffer(fb.Framebuffer))
		assert.False(t, dev.IsRenderbuffer(fb.Renderbuffer))
		assert.False(t, dev.IsTexture(fb.Texture))
		assert.NoError(t, c.Err())
	})

	t.Run("stencil", func(t *testing.T) {
		c := newContext(t, render.NewSurface(1, 1))
		fb := c.CreateFramebufferStencil(2, 2)
		c.BindFramebuffer(&fb)
		stencil := 1
		c.Clear(nil, nil, &stencil)
		assert.NoError(t, c.Err())
	})

	t.Run("cube", func(t *testing.T) {
		s := render.NewSurface(1, 1)
		c := newContext(t, s)
		fb := c.CreateFramebufferCube(2, 2, gpu.CubeFaces)
		require.NoError(t, c.Err())
		for _, face := range gpu.CubeFaces {
			assert.NotNil(t, s.Device().TextureImage(fb.Texture, face))
		}

		c.BindFramebuffer(&fb)
		c.Clear(nil, nil, nil)
		assert.ErrorIs(t, c.Err(), render.ErrIncompleteFramebuffer)

		c.AttachFace(fb, gpu.CubeNegativeY)
		green := colors.RGBA(0, 1, 0, 1)
		c.Clear(&green, nil, nil)
		require.NoError(t, c.Err())
		assert.Equal(t, green.NRGBA(), s.Device().TextureImage(fb.Texture, gpu.CubeNegativeY).GetPixel(0, 0))
		assert.Zero(t, s.Device().TextureImage(fb.Texture, gpu.CubePositiveY).GetPixel(0, 0).A)
	})
}

func TestFramebufferFloat(t *testing.T) {
	tests := []struct {
		name    string
		surface *render.Surface
		ok      bool
	}{
		{
			name:    "unsupported",
			surface: &render.Surface{Width: 1, Height: 1, Versions: []gpu.APIVersion{gpu.Baseline}},
		},
		{
			name: "float",
			surface: &render.Surface{
				Width: 1, Height: 1,
				Options: []render.Option{render.WithExtensions(gpu.ExtTextureFloat)},
			},
			ok: true,
		},
		{
			name: "half float on baseline",
			surface: &render.Surface{
				Width: 1, Height: 1,
				Versions: []gpu.APIVersion{gpu.Baseline},
				Options:  []render.Option{render.WithExtensions(gpu.ExtTextureHalfFloat)},
			},
			ok: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newContext(t, tc.surface)
			fb, ok := c.CreateFramebufferFloat(4, 4)
			assert.Equal(t, tc.ok, ok)
			if !ok {
				assert.Equal(t, gpu.Framebuffer{}, fb)
				return
			}
			require.NoError(t, c.Err())
			assert.Zero(t, fb.Renderbuffer)
			assert.NotNil(t, tc.surface.Device().TextureImage(fb.Texture, gpu.Target2D))
			c.DeleteFramebuffer(fb)
			assert.NoError(t, c.Err())
		})
	}
}
