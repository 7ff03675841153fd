package gpu

import (
	"fmt"
	"log/slog"
)

// State is the build state of a Program. Linked and Failed are terminal.
type State int

const (
	Uncompiled State = iota
	Linked
	Failed
)

func (s State) String() string {
	switch s {
	case Uncompiled:
		return "uncompiled"
	case Linked:
		return "linked"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AttributeBinding names a vertex attribute and its component count.
type AttributeBinding struct {
	Name string
	Size int
}

// UniformBinding names a uniform and the kind of value it receives.
type UniformBinding struct {
	Name string
	Kind UniformKind
}

type attributeSlot struct {
	name     string
	location int
	size     int
}

type uniformSlot struct {
	name     string
	resolved bool
	upload   func(any) error
}

// Program is a vertex and fragment shader pair linked on a device, plus
// the attribute and uniform slots resolved against it.
type Program struct {
	dev    Device
	logger *slog.Logger

	handle   Handle
	state    State
	resolved bool
	deleted  bool

	attributes []attributeSlot
	uniforms   []uniformSlot

	// Diagnostics of the failed stage or link, empty otherwise.
	VertexLog   string
	FragmentLog string
	LinkLog     string
}

// NewProgram returns an Uncompiled program bound to the context's device.
func (c *Context) NewProgram() *Program {
	return &Program{dev: c.dev, logger: c.logger}
}

// State returns the build state.
func (p *Program) State() State { return p.state }

// Handle returns the linked program object, zero unless Linked.
func (p *Program) Handle() Handle { return p.handle }

// Usable reports whether the program is linked and not deleted.
func (p *Program) Usable() bool { return p.state == Linked && !p.deleted }

// CompileAndLink compiles both stages and links them. A compile failure in
// either stage skips the link. On any failure the program moves to Failed
// and the returned error is a *BuildError carrying the diagnostics.
func (p *Program) CompileAndLink(vertexSource, fragmentSource string) error {
	if p.state != Uncompiled {
		return fmt.Errorf("compile program: %w", ErrAlreadyResolved)
	}
	vs, vok, vlog := p.compile(VertexStage, vertexSource)
	fs, fok, flog := p.compile(FragmentStage, fragmentSource)
	if !vok || !fok {
		if !vok {
			p.VertexLog = vlog
		}
		if !fok {
			p.FragmentLog = flog
		}
		p.dev.DeleteShader(vs)
		p.dev.DeleteShader(fs)
		return p.fail()
	}

	prog := p.dev.CreateProgram()
	ok, log := p.dev.LinkProgram(prog, vs, fs)
	p.dev.DeleteShader(vs)
	p.dev.DeleteShader(fs)
	if !ok {
		p.LinkLog = log
		p.dev.DeleteProgram(prog)
		return p.fail()
	}
	p.handle = prog
	p.state = Linked
	return nil
}

func (p *Program) compile(stage ShaderStage, source string) (Handle, bool, string) {
	sh := p.dev.CreateShader(stage)
	ok, log := p.dev.CompileShader(sh, source)
	if !ok {
		p.logger.Error("shader compile failed", "stage", stage, "log", log)
	}
	return sh, ok, log
}

func (p *Program) fail() error {
	p.state = Failed
	err := &BuildError{Vertex: p.VertexLog, Fragment: p.FragmentLog, Link: p.LinkLog}
	if p.LinkLog != "" {
		p.logger.Error("program link failed", "log", p.LinkLog)
	}
	return err
}

// ResolveBindings looks up every attribute and uniform once. Names the
// program does not define resolve to inert slots: uploads to them are
// skipped and their attributes are never enabled.
func (p *Program) ResolveBindings(attrs []AttributeBinding, uniforms []UniformBinding) error {
	if p.state != Linked {
		return fmt.Errorf("resolve bindings: %w", ErrNotLinked)
	}
	if p.resolved {
		return fmt.Errorf("resolve bindings: %w", ErrAlreadyResolved)
	}
	p.attributes = make([]attributeSlot, len(attrs))
	for i, a := range attrs {
		loc := p.dev.AttribLocation(p.handle, a.Name)
		if loc < 0 {
			p.logger.Debug("attribute not active", "name", a.Name)
		}
		p.attributes[i] = attributeSlot{name: a.Name, location: loc, size: a.Size}
	}
	p.uniforms = make([]uniformSlot, len(uniforms))
	for i, u := range uniforms {
		loc, ok := p.dev.UniformLocation(p.handle, u.Name)
		if !ok {
			p.logger.Debug("uniform not active", "name", u.Name)
			p.uniforms[i] = uniformSlot{name: u.Name, upload: skipUniform}
			continue
		}
		p.uniforms[i] = uniformSlot{name: u.Name, resolved: true, upload: u.Kind.uploader(p.dev, loc)}
	}
	p.resolved = true
	return nil
}

// AttributeLocation returns the resolved slot of the i-th attribute, or
// -1 when it is inert or out of range.
func (p *Program) AttributeLocation(i int) int {
	if i < 0 || i >= len(p.attributes) {
		return -1
	}
	return p.attributes[i].location
}

// UniformResolved reports whether the i-th uniform resolved to a slot.
func (p *Program) UniformResolved(i int) bool {
	return i >= 0 && i < len(p.uniforms) && p.uniforms[i].resolved
}

// Use makes p the current program of the device.
func (p *Program) Use() error {
	if !p.Usable() {
		return fmt.Errorf("use program: %w", ErrNotLinked)
	}
	p.dev.UseProgram(p.handle)
	return nil
}

// BindVertexState points each resolved attribute at the buffer with the
// same index in buffers and, when index is nonzero, binds the index buffer.
func (p *Program) BindVertexState(buffers []Handle, index Handle) {
	for i, a := range p.attributes {
		if a.location < 0 || i >= len(buffers) {
			continue
		}
		p.dev.VertexAttrib(a.location, buffers[i], a.size)
	}
	if index != 0 {
		p.dev.BindIndexBuffer(index)
	}
}

// UnbindVertexState disables every attribute enabled by BindVertexState
// and unbinds the index buffer.
func (p *Program) UnbindVertexState() {
	for _, a := range p.attributes {
		if a.location < 0 {
			continue
		}
		p.dev.DisableVertexAttrib(a.location)
	}
	p.dev.BindIndexBuffer(0)
}

// UploadUniforms uploads values to the resolved uniforms in declaration
// order. The program must be current. Matrices upload untransposed.
func (p *Program) UploadUniforms(values ...any) error {
	if !p.Usable() {
		return fmt.Errorf("upload uniforms: %w", ErrNotLinked)
	}
	if len(values) > len(p.uniforms) {
		return fmt.Errorf("upload uniforms: %d values for %d uniforms: %w", len(values), len(p.uniforms), ErrUniformValue)
	}
	for i, v := range values {
		if err := p.uniforms[i].upload(v); err != nil {
			return fmt.Errorf("upload uniform %q: %w", p.uniforms[i].name, err)
		}
	}
	return nil
}

// Delete releases the linked program object. The program is unusable
// afterwards.
func (p *Program) Delete() {
	if p.deleted {
		return
	}
	p.deleted = true
	if p.handle != 0 && p.dev.IsProgram(p.handle) {
		p.dev.DeleteProgram(p.handle)
	}
	p.handle = 0
}
