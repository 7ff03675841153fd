// Package config loads the viewer configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/geometry"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/orbit"
)

// Config is the complete viewer configuration.
type Config struct {
	Shape      Shape      `yaml:"shape"`
	Camera     Camera     `yaml:"camera"`
	Projection Projection `yaml:"projection"`
	Clear      Color      `yaml:"clear"`
	Device     Device     `yaml:"device"`
	FPS        int        `yaml:"fps"`
	Spin       Spin       `yaml:"spin"`
	Shaders    Shaders    `yaml:"shaders"`
	Texture    string     `yaml:"texture"` // Optional image path
}

// Shape selects a generated geometry.
type Shape struct {
	Kind            string `yaml:"kind"`
	geometry.Params `yaml:",inline"`
	Color           Color `yaml:"color"`
}

// Camera holds the orbit camera parameters.
type Camera struct {
	Distance  float64 `yaml:"distance"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	MoveScale float64 `yaml:"move_scale"`
}

// Projection holds the perspective parameters. Fovy is in degrees.
type Projection struct {
	Fovy float64 `yaml:"fovy"`
	Near float64 `yaml:"near"`
	Far  float64 `yaml:"far"`
}

// Device configures the software device.
type Device struct {
	PreferModern  bool     `yaml:"prefer_modern"`
	ConsoleOutput bool     `yaml:"console_output"`
	Extensions    []string `yaml:"extensions,omitempty"`
	Width         int      `yaml:"width"`  // Headless snapshot width
	Height        int      `yaml:"height"` // Headless snapshot height
}

// Spin configures the model rotation. Speed is in radians per second;
// frequency and damping shape the spring that decays spin impulses.
type Spin struct {
	Speed     float64 `yaml:"speed"`
	Frequency float64 `yaml:"frequency"`
	Damping   float64 `yaml:"damping"`
}

// Shaders optionally replaces the built-in shader pair.
type Shaders struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// Default returns the built-in configuration: a torus orbited from a
// distance of 5 on a magenta background.
func Default() *Config {
	params := geometry.DefaultParams()
	params.Rows, params.Columns = 64, 64
	return &Config{
		Shape: Shape{
			Kind:   "torus",
			Params: params,
			Color:  Color(colors.White),
		},
		Camera: Camera{
			Distance:  orbit.DefaultDistance,
			Min:       orbit.DefaultMinDistance,
			Max:       orbit.DefaultMaxDistance,
			MoveScale: orbit.DefaultMoveScale,
		},
		Projection: Projection{Fovy: 45, Near: 0.1, Far: 10},
		Clear:      Color(colors.RGBA(1, 0, 1, 1)),
		Device: Device{
			PreferModern:  true,
			ConsoleOutput: true,
			Width:         320,
			Height:        240,
		},
		FPS:  30,
		Spin: Spin{Speed: 1, Frequency: 4, Damping: 1},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and joins the problems found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains(geometry.Kinds(), strings.ToLower(c.Shape.Kind)) {
		add("shape.kind %q: want one of %s", c.Shape.Kind, strings.Join(geometry.Kinds(), ", "))
	}

	cam := c.Camera
	switch {
	case cam.Min <= 0:
		add("camera.min must be positive, got %g", cam.Min)
	case cam.Max < cam.Min:
		add("camera.max %g is below camera.min %g", cam.Max, cam.Min)
	case cam.Distance < cam.Min || cam.Distance > cam.Max:
		add("camera.distance %g outside [%g, %g]", cam.Distance, cam.Min, cam.Max)
	}

	p := c.Projection
	if p.Fovy <= 0 || p.Fovy >= 180 {
		add("projection.fovy must be in (0, 180) degrees, got %g", p.Fovy)
	}
	if p.Near <= 0 || p.Far <= p.Near {
		add("projection: need 0 < near < far, got near %g far %g", p.Near, p.Far)
	}

	if c.FPS <= 0 {
		add("fps must be positive, got %d", c.FPS)
	}
	if c.Spin.Frequency < 0 || c.Spin.Damping < 0 {
		add("spin: frequency and damping must not be negative")
	}
	if c.Device.Width <= 0 || c.Device.Height <= 0 {
		add("device: width and height must be positive, got %dx%d", c.Device.Width, c.Device.Height)
	}
	for _, e := range c.Device.Extensions {
		if !slices.Contains(knownExtensions, gpu.Extension(e)) {
			add("device.extensions: unknown extension %q", e)
		}
	}
	if (c.Shaders.Vertex == "") != (c.Shaders.Fragment == "") {
		add("shaders: vertex and fragment must be set together")
	}
	return errors.Join(errs...)
}

var knownExtensions = []gpu.Extension{
	gpu.ExtElementIndexUint,
	gpu.ExtTextureFloat,
	gpu.ExtTextureHalfFloat,
	gpu.ExtDrawBuffers,
}

// DeviceExtensions returns the configured extensions as device names.
func (c *Config) DeviceExtensions() []gpu.Extension {
	exts := make([]gpu.Extension, len(c.Device.Extensions))
	for i, e := range c.Device.Extensions {
		exts[i] = gpu.Extension(e)
	}
	return exts
}

// Geometry generates the configured shape.
func (c *Config) Geometry() (geometry.Attribute, error) {
	return geometry.Generate(c.Shape.Kind, c.Shape.Params, colors.Color(c.Shape.Color))
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
