package gpu

import (
	"fmt"
	"strings"

	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/math3d"
)

// UniformKind is the closed set of uniform value shapes. The kind is
// resolved once into an upload function when bindings are resolved.
type UniformKind int

const (
	UniformInt UniformKind = iota
	UniformIntArray
	UniformFloat
	UniformFloatArray
	UniformIntVec2
	UniformIntVec3
	UniformIntVec4
	UniformFloatVec2
	UniformFloatVec3
	UniformFloatVec4
	UniformMat2
	UniformMat3
	UniformMat4
)

var uniformKindNames = map[UniformKind]string{
	UniformInt:        "uniform1i",
	UniformIntArray:   "uniform1iv",
	UniformFloat:      "uniform1f",
	UniformFloatArray: "uniform1fv",
	UniformIntVec2:    "uniform2iv",
	UniformIntVec3:    "uniform3iv",
	UniformIntVec4:    "uniform4iv",
	UniformFloatVec2:  "uniform2fv",
	UniformFloatVec3:  "uniform3fv",
	UniformFloatVec4:  "uniform4fv",
	UniformMat2:       "uniformMatrix2fv",
	UniformMat3:       "uniformMatrix3fv",
	UniformMat4:       "uniformMatrix4fv",
}

func (k UniformKind) String() string {
	if name, ok := uniformKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UniformKind(%d)", int(k))
}

// ParseUniformKind maps a name such as "uniform3fv" or "uniformMatrix4fv"
// to its kind. Matching ignores case.
func ParseUniformKind(name string) (UniformKind, error) {
	for k, n := range uniformKindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown uniform kind %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *UniformKind) UnmarshalText(text []byte) error {
	v, err := ParseUniformKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k UniformKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// components returns the element count of one value and whether the kind
// holds integers.
func (k UniformKind) components() (n int, integer bool) {
	switch k {
	case UniformInt, UniformIntArray:
		return 1, true
	case UniformIntVec2:
		return 2, true
	case UniformIntVec3:
		return 3, true
	case UniformIntVec4:
		return 4, true
	case UniformFloat, UniformFloatArray:
		return 1, false
	case UniformFloatVec2:
		return 2, false
	case UniformFloatVec3:
		return 3, false
	case UniformFloatVec4:
		return 4, false
	case UniformMat2:
		return 4, false
	case UniformMat3:
		return 9, false
	case UniformMat4:
		return 16, false
	}
	return 0, false
}

func (k UniformKind) matrixDim() int {
	switch k {
	case UniformMat2:
		return 2
	case UniformMat3:
		return 3
	case UniformMat4:
		return 4
	}
	return 0
}

func skipUniform(any) error { return nil }

// uploader binds k to a device slot. The returned function converts each
// value into a scratch buffer it owns and uploads it.
func (k UniformKind) uploader(dev Device, loc Location) func(any) error {
	n, integer := k.components()
	if n == 0 {
		return func(any) error {
			return fmt.Errorf("%v: %w", k, ErrUniformValue)
		}
	}
	if integer {
		scratch := make([]int32, n)
		return func(v any) error {
			data, ok := intsOf(v, scratch)
			if !ok || len(data) == 0 || len(data)%n != 0 {
				return fmt.Errorf("%v from %T: %w", k, v, ErrUniformValue)
			}
			dev.UniformInt(loc, n, data)
			return nil
		}
	}
	scratch := make([]float32, n)
	dim := k.matrixDim()
	return func(v any) error {
		data, ok := floatsOf(v, dim, scratch)
		if !ok || len(data) == 0 || len(data)%n != 0 {
			return fmt.Errorf("%v from %T: %w", k, v, ErrUniformValue)
		}
		if dim > 0 {
			dev.UniformMatrix(loc, dim, data)
			return nil
		}
		dev.UniformFloat(loc, n, data)
		return nil
	}
}

func intsOf(v any, scratch []int32) ([]int32, bool) {
	switch x := v.(type) {
	case int:
		return scalarInt(int32(x), scratch)
	case int32:
		return scalarInt(x, scratch)
	case int64:
		return scalarInt(int32(x), scratch)
	case uint32:
		return scalarInt(int32(x), scratch)
	case bool:
		if x {
			return scalarInt(1, scratch)
		}
		return scalarInt(0, scratch)
	case []int32:
		return x, true
	case []int:
		out := scratch
		if len(x) != len(scratch) {
			out = make([]int32, len(x))
		}
		for i, e := range x {
			out[i] = int32(e)
		}
		return out, true
	case [2]int32:
		return x[:], true
	case [3]int32:
		return x[:], true
	case [4]int32:
		return x[:], true
	}
	return nil, false
}

func scalarInt(x int32, scratch []int32) ([]int32, bool) {
	if len(scratch) != 1 {
		return nil, false
	}
	scratch[0] = x
	return scratch, true
}

// floatsOf converts v for a slot of len(scratch) floats. Matrices are only
// accepted when dim, the slot's matrix dimension, is nonzero.
func floatsOf(v any, dim int, scratch []float32) ([]float32, bool) {
	switch x := v.(type) {
	case float32:
		return scalarFloat(x, scratch)
	case float64:
		return scalarFloat(float32(x), scratch)
	case int:
		return scalarFloat(float32(x), scratch)
	case []float32:
		return x, true
	case []float64:
		out := scratch
		if len(x) != len(scratch) {
			out = make([]float32, len(x))
		}
		for i, e := range x {
			out[i] = float32(e)
		}
		return out, true
	case [2]float32:
		return x[:], true
	case [3]float32:
		return x[:], true
	case [4]float32:
		return x[:], true
	case [9]float32:
		return x[:], true
	case [16]float32:
		return x[:], true
	case math3d.Vec2:
		return fill(scratch, x.X, x.Y)
	case math3d.Vec3:
		return fill(scratch, x.X, x.Y, x.Z)
	case math3d.Vec4:
		return fill(scratch, x.X, x.Y, x.Z, x.W)
	case colors.Color:
		if len(scratch) == 3 {
			return fill(scratch, x.R, x.G, x.B)
		}
		return fill(scratch, x.R, x.G, x.B, x.A)
	case math3d.Mat4:
		return matrixOf(&x, dim, scratch)
	case *math3d.Mat4:
		return matrixOf(x, dim, scratch)
	case math3d.Quat:
		return fill(scratch, x.X, x.Y, x.Z, x.W)
	}
	return nil, false
}

func scalarFloat(x float32, scratch []float32) ([]float32, bool) {
	if len(scratch) != 1 {
		return nil, false
	}
	scratch[0] = x
	return scratch, true
}

func fill(scratch []float32, vs ...float64) ([]float32, bool) {
	if len(vs) != len(scratch) {
		return nil, false
	}
	for i, v := range vs {
		scratch[i] = float32(v)
	}
	return scratch, true
}

// matrixOf writes the upper-left dim×dim block of m in column-major order.
func matrixOf(m *math3d.Mat4, dim int, scratch []float32) ([]float32, bool) {
	if dim == 0 || len(scratch) != dim*dim {
		return nil, false
	}
	for col := range dim {
		for row := range dim {
			scratch[row+col*dim] = float32(m[row+col*4])
		}
	}
	return scratch, true
}
