package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/gpu"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "torus", cfg.Shape.Kind)
	assert.Equal(t, 64, cfg.Shape.Rows)
	assert.Equal(t, Color(colors.RGBA(1, 0, 1, 1)), cfg.Clear)
	assert.Equal(t, 5.0, cfg.Camera.Distance)
	assert.Equal(t, Projection{Fovy: 45, Near: 0.1, Far: 10}, cfg.Projection)
	assert.Equal(t, 30, cfg.FPS)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
shape:
  kind: sphere
  radius: 2
  rows: 12
  color: "#ff0000"
camera:
  distance: 8
clear: [0, 0, 0]
device:
  prefer_modern: false
  extensions: [OES_element_index_uint]
fps: 60
`))
	require.NoError(t, err)

	assert.Equal(t, "sphere", cfg.Shape.Kind)
	assert.Equal(t, 2.0, cfg.Shape.Radius)
	assert.Equal(t, 12, cfg.Shape.Rows)
	assert.Equal(t, 64, cfg.Shape.Columns, "unset fields keep defaults")
	assert.Equal(t, Color(colors.RGBA(1, 0, 0, 1)), cfg.Shape.Color)
	assert.Equal(t, 8.0, cfg.Camera.Distance)
	assert.Equal(t, 20.0, cfg.Camera.Max)
	assert.Equal(t, Color(colors.Black), cfg.Clear)
	assert.False(t, cfg.Device.PreferModern)
	assert.Equal(t, []gpu.Extension{gpu.ExtElementIndexUint}, cfg.DeviceExtensions())
	assert.Equal(t, 60, cfg.FPS)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("shape:\n  knd: torus\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knd")
}

func TestColorForms(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want colors.Color
	}{
		{"hex", `clear: "#00ff00"`, colors.RGBA(0, 1, 0, 1)},
		{"short hex", `clear: "#f00"`, colors.RGBA(1, 0, 0, 1)},
		{"rgb list", `clear: [0.5, 0.25, 1]`, colors.RGBA(0.5, 0.25, 1, 1)},
		{"rgba list", `clear: [0.5, 0.25, 1, 0.5]`, colors.RGBA(0.5, 0.25, 1, 0.5)},
		{"rgba map", `clear: {r: 1, g: 0.5, b: 0}`, colors.RGBA(1, 0.5, 0, 1)},
		{"rgba map alpha", `clear: {r: 1, g: 0.5, b: 0, a: 0}`, colors.RGBA(1, 0.5, 0, 0)},
		{"hsva map", `clear: {h: 240, s: 1, v: 1}`, colors.RGBA(0, 0, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			got := colors.Color(cfg.Clear)
			assert.InDelta(t, tt.want.R, got.R, 1e-9)
			assert.InDelta(t, tt.want.G, got.G, 1e-9)
			assert.InDelta(t, tt.want.B, got.B, 1e-9)
			assert.InDelta(t, tt.want.A, got.A, 1e-9)
		})
	}
}

func TestColorErrors(t *testing.T) {
	for _, doc := range []string{
		`clear: "green"`,
		`clear: [1, 0]`,
		`clear: [1, 0, 0, 1, 1]`,
		`clear: [a, b, c]`,
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"kind", func(c *Config) { c.Shape.Kind = "teapot" }, `shape.kind "teapot"`},
		{"min", func(c *Config) { c.Camera.Min = 0 }, "camera.min"},
		{"max", func(c *Config) { c.Camera.Max = 0.5 }, "camera.max"},
		{"distance", func(c *Config) { c.Camera.Distance = 50 }, "camera.distance"},
		{"fovy", func(c *Config) { c.Projection.Fovy = 180 }, "projection.fovy"},
		{"clip planes", func(c *Config) { c.Projection.Far = 0.05 }, "near < far"},
		{"fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"spin", func(c *Config) { c.Spin.Damping = -1 }, "spin"},
		{"size", func(c *Config) { c.Device.Width = 0 }, "device: width"},
		{"extension", func(c *Config) { c.Device.Extensions = []string{"EXT_bogus"} }, "EXT_bogus"},
		{"shaders", func(c *Config) { c.Shaders.Vertex = "a.vert" }, "set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.FPS = -1
	cfg.Shape.Kind = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fps")
	assert.Contains(t, err.Error(), "shape.kind")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cubic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shape:\n  kind: cube\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cube", cfg.Shape.Kind)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fps: 0\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Shape.Kind = "cone"
	cfg.Clear = Color(colors.RGBA(0.25, 0.5, 0.75, 1))

	data, err := cfg.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestGeometry(t *testing.T) {
	cfg := Default()
	cfg.Shape.Kind = "cube"
	a, err := cfg.Geometry()
	require.NoError(t, err)
	assert.Equal(t, 24, a.VertexCount())
}
