package geometry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/taigrr/cubic/pkg/colors"
)

// ErrUnknownKind is returned by Generate for an unrecognized shape name.
var ErrUnknownKind = errors.New("unknown geometry kind")

// Params collects the parameters of every generator so a shape can be
// described by configuration. Fields a kind does not use are ignored.
type Params struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Side         float64 `yaml:"side"`
	Radius       float64 `yaml:"radius"`
	TopRadius    float64 `yaml:"top_radius"`
	BottomRadius float64 `yaml:"bottom_radius"`
	InnerRadius  float64 `yaml:"inner_radius"`
	OuterRadius  float64 `yaml:"outer_radius"`
	Segments     int     `yaml:"segments"`
	Rows         int     `yaml:"rows"`
	Columns      int     `yaml:"columns"`
}

// DefaultParams returns parameters that give every kind a unit-scale shape.
func DefaultParams() Params {
	return Params{
		Width:        2,
		Height:       2,
		Side:         2,
		Radius:       1,
		TopRadius:    0.5,
		BottomRadius: 1,
		InnerRadius:  0.3,
		OuterRadius:  0.7,
		Segments:     32,
		Rows:         32,
		Columns:      32,
	}
}

var generators = map[string]func(Params, []Option) Attribute{
	"plane": func(p Params, o []Option) Attribute { return Plane(p.Width, p.Height, o...) },
	"circle": func(p Params, o []Option) Attribute {
		return Circle(p.Segments, p.Radius, o...)
	},
	"cube": func(p Params, o []Option) Attribute { return Cube(p.Side, o...) },
	"cone": func(p Params, o []Option) Attribute {
		return Cone(p.Segments, p.Radius, p.Height, o...)
	},
	"cylinder": func(p Params, o []Option) Attribute {
		return Cylinder(p.Segments, p.TopRadius, p.BottomRadius, p.Height, o...)
	},
	"sphere": func(p Params, o []Option) Attribute {
		return Sphere(p.Rows, p.Columns, p.Radius, o...)
	},
	"torus": func(p Params, o []Option) Attribute {
		return Torus(p.Rows, p.Columns, p.InnerRadius, p.OuterRadius, o...)
	},
	"icosahedron": func(p Params, o []Option) Attribute { return Icosahedron(p.Radius, o...) },
}

// Kinds returns the names accepted by Generate in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(generators))
	for k := range generators {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Generate builds the named shape. kind is matched case-insensitively.
func Generate(kind string, p Params, c colors.Color) (Attribute, error) {
	gen, ok := generators[strings.ToLower(kind)]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownKind, kind, strings.Join(Kinds(), ", "))
	}
	return gen(p, []Option{WithColor(c)}), nil
}
