package gpu_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/cubic/pkg/colors"
	"github.com/taigrr/cubic/pkg/gpu"
	"github.com/taigrr/cubic/pkg/math3d"
	"github.com/taigrr/cubic/pkg/render"
)

const litVertex = `
attribute vec3 position;
attribute vec3 normal;
uniform mat4 mvpMatrix;
uniform mat4 normalMatrix;
varying vec4 vColor;
void main() {
	vec3 n = (normalMatrix * vec4(normal, 0.0)).xyz;
	vColor = vec4(vec3(max(dot(n, vec3(0.577)), 0.0)), 1.0);
	gl_Position = mvpMatrix * vec4(position, 1.0);
}
`

const litFragment = `
precision mediump float;
varying vec4 vColor;
void main() {
	gl_FragColor = vColor;
}
`

func TestProgramLifecycle(t *testing.T) {
	s := render.NewSurface(4, 4)
	c := newContext(t, s)

	p := c.NewProgram()
	assert.Equal(t, gpu.Uncompiled, p.State())
	assert.False(t, p.Usable())
	assert.ErrorIs(t, p.Use(), gpu.ErrNotLinked)
	assert.ErrorIs(t, p.ResolveBindings(nil, nil), gpu.ErrNotLinked)

	require.NoError(t, p.CompileAndLink(litVertex, litFragment))
	assert.Equal(t, gpu.Linked, p.State())
	assert.True(t, s.Device().IsProgram(p.Handle()))
	assert.Empty(t, p.VertexLog)
	assert.Empty(t, p.FragmentLog)
	assert.Empty(t, p.LinkLog)
	assert.ErrorIs(t, p.CompileAndLink(litVertex, litFragment), gpu.ErrAlreadyResolved)

	require.NoError(t, p.ResolveBindings(nil, nil))
	assert.ErrorIs(t, p.ResolveBindings(nil, nil), gpu.ErrAlreadyResolved)

	require.NoError(t, p.Use())
	assert.Equal(t, p.Handle(), s.Device().CurrentProgram())

	h := p.Handle()
	p.Delete()
	p.Delete()
	assert.False(t, p.Usable())
	assert.False(t, s.Device().IsProgram(h))
	assert.ErrorIs(t, p.Use(), gpu.ErrNotLinked)
	assert.ErrorIs(t, p.UploadUniforms(1), gpu.ErrNotLinked)
	assert.NoError(t, c.Err())
}

func TestProgramBuildFailures(t *testing.T) {
	tests := []struct {
		name     string
		vs, fs   string
		vertex   bool
		fragment bool
		link     bool
	}{
		{
			name:     "fragment compile error",
			vs:       litVertex,
			fs:       "precision mediump float;\nvoid main() {\n\tgl_FragColor = vec4(1.0)\n}\n",
			fragment: true,
		},
		{
			name:   "vertex compile error",
			vs:     "attribute vec5 position;\nvoid main() {}\n",
			fs:     litFragment,
			vertex: true,
		},
		{
			name: "link error",
			vs:   "attribute vec3 position;\nvoid main() {\n\tgl_Position = vec4(position, 1.0);\n}\n",
			fs:   litFragment,
			link: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := render.NewSurface(1, 1)
			c := newContext(t, s)
			p := c.NewProgram()

			err := p.CompileAndLink(tc.vs, tc.fs)
			require.Error(t, err)
			assert.ErrorIs(t, err, gpu.ErrBuild)
			var be *gpu.BuildError
			require.True(t, errors.As(err, &be))

			assert.Equal(t, gpu.Failed, p.State())
			assert.Zero(t, p.Handle())
			assert.Equal(t, tc.vertex, p.VertexLog != "")
			assert.Equal(t, tc.fragment, p.FragmentLog != "")
			assert.Equal(t, tc.link, p.LinkLog != "")
			assert.Equal(t, p.FragmentLog, be.Fragment)

			assert.ErrorIs(t, p.CompileAndLink(litVertex, litFragment), gpu.ErrAlreadyResolved)
			assert.ErrorIs(t, p.Use(), gpu.ErrNotLinked)
			assert.ErrorIs(t, p.UploadUniforms(math3d.Identity()), gpu.ErrNotLinked)
		})
	}
}

func TestBuildErrorMessage(t *testing.T) {
	err := &gpu.BuildError{Fragment: "ERROR: 0:3: '}' : syntax error\n", Link: "bad link\n"}
	assert.Equal(t, "shader build failed: fragment: ERROR: 0:3: '}' : syntax error; link: bad link", err.Error())
	assert.ErrorIs(t, err, gpu.ErrBuild)
}

func TestResolveBindings(t *testing.T) {
	s := render.NewSurface(4, 4)
	c := newContext(t, s)
	p, err := c.CreateProgram(litVertex, litFragment,
		[]gpu.AttributeBinding{
			{Name: "position", Size: 3},
			{Name: "normal", Size: 3},
			{Name: "uv", Size: 2},
		},
		[]gpu.UniformBinding{
			{Name: "mvpMatrix", Kind: gpu.UniformMat4},
			{Name: "uTime", Kind: gpu.UniformFloat},
			{Name: "normalMatrix", Kind: gpu.UniformMat4},
		},
	)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, p.AttributeLocation(0), 0)
	assert.GreaterOrEqual(t, p.AttributeLocation(1), 0)
	assert.Equal(t, -1, p.AttributeLocation(2))
	assert.Equal(t, -1, p.AttributeLocation(9))
	assert.True(t, p.UniformResolved(0))
	assert.False(t, p.UniformResolved(1))
	assert.True(t, p.UniformResolved(2))

	require.NoError(t, p.Use())
	mvp := math3d.Translation(math3d.V3(1, 2, 3))
	require.NoError(t, p.UploadUniforms(mvp, 1.5, math3d.Identity()))
	require.NoError(t, c.Err())

	dev := s.Device()
	loc, ok := dev.UniformLocation(p.Handle(), "mvpMatrix")
	require.True(t, ok)
	want := make([]float64, 16)
	copy(want, mvp[:])
	assert.Equal(t, want, dev.Uniform(p.Handle(), loc))

	t.Run("too many values", func(t *testing.T) {
		err := p.UploadUniforms(mvp, 1.0, mvp, mvp)
		assert.ErrorIs(t, err, gpu.ErrUniformValue)
	})

	t.Run("wrong value type", func(t *testing.T) {
		err := p.UploadUniforms("mvp")
		assert.ErrorIs(t, err, gpu.ErrUniformValue)
		assert.Contains(t, err.Error(), "mvpMatrix")
	})

	t.Run("fewer values", func(t *testing.T) {
		assert.NoError(t, p.UploadUniforms(mvp))
	})
}

func TestVertexState(t *testing.T) {
	s := render.NewSurface(4, 4)
	c := newContext(t, s)
	p, err := c.CreateProgram(litVertex, litFragment,
		[]gpu.AttributeBinding{{Name: "position", Size: 3}, {Name: "missing", Size: 2}, {Name: "normal", Size: 3}},
		[]gpu.UniformBinding{{Name: "mvpMatrix", Kind: gpu.UniformMat4}},
	)
	require.NoError(t, err)
	require.NoError(t, p.Use())
	require.NoError(t, p.UploadUniforms(math3d.Identity()))

	positions := c.CreateVertexBuffer([]float32{-1, -1, 0, 3, -1, 0, -1, 3, 0})
	normals := c.CreateVertexBuffer([]float32{0, 0, 1, 0, 0, 1, 0, 0, 1})
	ib, err := c.CreateIndexBuffer([]uint32{0, 1, 2})
	require.NoError(t, err)

	p.BindVertexState([]gpu.Handle{positions, 0, normals}, ib.Handle)
	require.NoError(t, c.Err())
	dev := s.Device()
	assert.True(t, dev.AttribEnabled(p.AttributeLocation(0)))
	assert.True(t, dev.AttribEnabled(p.AttributeLocation(2)))

	c.DrawIndexed(gpu.Triangles, ib)
	require.NoError(t, c.Err())
	assert.Equal(t, 16, dev.Stats().Fragments)

	p.UnbindVertexState()
	assert.False(t, dev.AttribEnabled(p.AttributeLocation(0)))
	c.DrawIndexed(gpu.Triangles, ib)
	assert.Error(t, c.Err())
}

func TestUniformKinds(t *testing.T) {
	vs := `
attribute vec3 position;
uniform int uMode;
uniform float uScale;
uniform vec2 uOffset;
uniform vec3 uLight;
uniform vec4 uTint;
uniform mat3 uBasis;
uniform mat4 uModel;
uniform float uWeights[3];
uniform ivec2 uSize;
void main() {
	gl_Position = vec4(position, 1.0);
}
`
	fs := "precision mediump float;\nvoid main() {\n\tgl_FragColor = vec4(1.0);\n}\n"

	tests := []struct {
		name    string
		uniform string
		kind    gpu.UniformKind
		value   any
		want    []float64
		wantErr bool
	}{
		{"int", "uMode", gpu.UniformInt, 3, []float64{3}, false},
		{"bool", "uMode", gpu.UniformInt, true, []float64{1}, false},
		{"float", "uScale", gpu.UniformFloat, 0.5, []float64{0.5}, false},
		{"vec2", "uOffset", gpu.UniformFloatVec2, math3d.V2(1, 2), []float64{1, 2}, false},
		{"vec3 from color", "uLight", gpu.UniformFloatVec3, colors.RGBA(1, 0.5, 0.25, 1), []float64{1, 0.5, 0.25}, false},
		{"vec4 from color", "uTint", gpu.UniformFloatVec4, colors.RGBA(0, 0.5, 1, 0.25), []float64{0, 0.5, 1, 0.25}, false},
		{"vec4 from slice", "uTint", gpu.UniformFloatVec4, []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, false},
		{"mat3 from mat4", "uBasis", gpu.UniformMat3, math3d.Scaling(math3d.V3(2, 3, 4)), []float64{2, 0, 0, 0, 3, 0, 0, 0, 4}, false},
		{"mat4", "uModel", gpu.UniformMat4, math3d.Identity(), []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, false},
		{"float array", "uWeights", gpu.UniformFloatArray, []float32{1, 2, 3}, []float64{1, 2, 3}, false},
		{"ivec2", "uSize", gpu.UniformIntVec2, [2]int32{4, 5}, []float64{4, 5}, false},
		{"scalar for vec2", "uOffset", gpu.UniformFloatVec2, 1.0, nil, true},
		{"string for int", "uMode", gpu.UniformInt, "3", nil, true},
		{"partial vector", "uTint", gpu.UniformFloatVec4, []float32{1, 2, 3}, nil, true},
		{"matrix for vec4", "uTint", gpu.UniformFloatVec4, math3d.Identity(), nil, true},
		{"matrix pointer for float array", "uWeights", gpu.UniformFloatArray, &math3d.Mat4{}, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := render.NewSurface(1, 1)
			c := newContext(t, s)
			p, err := c.CreateProgram(vs, fs, nil, []gpu.UniformBinding{{Name: tc.uniform, Kind: tc.kind}})
			require.NoError(t, err)
			require.NoError(t, p.Use())

			err = p.UploadUniforms(tc.value)
			if tc.wantErr {
				assert.ErrorIs(t, err, gpu.ErrUniformValue)
				return
			}
			require.NoError(t, err)
			require.NoError(t, c.Err())
			loc, ok := s.Device().UniformLocation(p.Handle(), tc.uniform)
			require.True(t, ok)
			assert.Equal(t, tc.want, s.Device().Uniform(p.Handle(), loc))
		})
	}
}

func TestParseUniformKind(t *testing.T) {
	tests := []struct {
		in   string
		want gpu.UniformKind
	}{
		{"uniform1i", gpu.UniformInt},
		{"uniform1fv", gpu.UniformFloatArray},
		{"UNIFORM3FV", gpu.UniformFloatVec3},
		{"uniformMatrix4fv", gpu.UniformMat4},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			k, err := gpu.ParseUniformKind(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, k)
		})
	}

	_, err := gpu.ParseUniformKind("uniform5f")
	assert.Error(t, err)

	var k gpu.UniformKind
	require.NoError(t, k.UnmarshalText([]byte("uniformMatrix3fv")))
	assert.Equal(t, gpu.UniformMat3, k)
	text, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "uniformMatrix3fv", string(text))
	assert.Equal(t, "UniformKind(99)", gpu.UniformKind(99).String())
}
