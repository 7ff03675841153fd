package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/cubic/pkg/colors"
)

// Color is a colors.Color that decodes from any of:
//
//	"#ff00ff"                      hex, opaque
//	[1, 0, 1] or [1, 0, 1, 0.5]    RGB(A) floats
//	{r: 1, g: 0, b: 1, a: 1}       RGBA floats
//	{h: 300, s: 1, v: 1, a: 1}     hue in degrees, saturation, value
type Color colors.Color

type rgbaFields struct {
	R, G, B float64
	A       *float64
}

type hsvaFields struct {
	H, S, V float64
	A       *float64
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := colors.ParseHex(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*c = Color(parsed)
		return nil

	case yaml.SequenceNode:
		var v []float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		switch len(v) {
		case 3:
			*c = Color(colors.RGBA(v[0], v[1], v[2], 1))
		case 4:
			*c = Color(colors.RGBA(v[0], v[1], v[2], v[3]))
		default:
			return fmt.Errorf("line %d: color needs 3 or 4 components, got %d", node.Line, len(v))
		}
		return nil

	case yaml.MappingNode:
		keys := make(map[string]bool)
		for i := 0; i < len(node.Content); i += 2 {
			keys[node.Content[i].Value] = true
		}
		if keys["h"] || keys["s"] || keys["v"] {
			var f hsvaFields
			if err := node.Decode(&f); err != nil {
				return err
			}
			*c = Color(colors.HSVA(f.H, f.S, f.V, alpha(f.A)))
			return nil
		}
		var f rgbaFields
		if err := node.Decode(&f); err != nil {
			return err
		}
		*c = Color(colors.RGBA(f.R, f.G, f.B, alpha(f.A)))
		return nil
	}
	return fmt.Errorf("line %d: unsupported color value", node.Line)
}

// MarshalYAML implements yaml.Marshaler as an RGBA list.
func (c Color) MarshalYAML() (any, error) {
	return []float64{c.R, c.G, c.B, c.A}, nil
}

func alpha(a *float64) float64 {
	if a == nil {
		return 1
	}
	return *a
}
