// Package colors holds the float RGBA color type shared by geometry vertex
// colors, clear colors and uniforms.
package colors

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a straight-alpha color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// RGBA creates a Color from float components.
func RGBA(r, g, b, a float64) Color {
	return Color{r, g, b, a}
}

// White is opaque white, the default vertex color of generated geometry.
var White = Color{1, 1, 1, 1}

// Black is opaque black.
var Black = Color{0, 0, 0, 1}

// HSVA creates a Color from hue in degrees, saturation and value in [0, 1]
// and alpha. Hue wraps modulo 360; saturation is clamped.
func HSVA(h, s, v, a float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsv(h, Saturate(s), v)
	return Color{c.R, c.G, c.B, a}
}

// ParseHex parses #rgb or #rrggbb into an opaque Color.
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{c.R, c.G, c.B, 1}, nil
}

// FromColor converts any image color to a Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		float64(n.R) / 255,
		float64(n.G) / 255,
		float64(n.B) / 255,
		float64(n.A) / 255,
	}
}

// Float32 returns the components as a float32 array for vertex and uniform data.
func (c Color) Float32() [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

// NRGBA returns the 8-bit straight-alpha color, clamping each component.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: to8(c.R),
		G: to8(c.G),
		B: to8(c.B),
		A: to8(c.A),
	}
}

// Lerp linearly interpolates every component between c and d.
func (c Color) Lerp(d Color, t float64) Color {
	return Color{
		c.R + (d.R-c.R)*t,
		c.G + (d.G-c.G)*t,
		c.B + (d.B-c.B)*t,
		c.A + (d.A-c.A)*t,
	}
}

// Hex returns the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string {
	return colorful.Color{R: Saturate(c.R), G: Saturate(c.G), B: Saturate(c.B)}.Hex()
}

// String implements fmt.Stringer in CSS rgba() notation.
func (c Color) String() string {
	n := c.NRGBA()
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", n.R, n.G, n.B, c.A)
}

// Saturate clamps v to [0, 1].
func Saturate(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func to8(v float64) uint8 {
	return uint8(Saturate(v)*255 + 0.5)
}
