package gpu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported reports a capability the device lacks.
	ErrUnsupported = errors.New("unsupported by device")
	// ErrNoDevice is returned when no API version could be acquired.
	ErrNoDevice = errors.New("no graphics device available")
	// ErrNotLinked is returned when a program is used outside the Linked state.
	ErrNotLinked = errors.New("program not linked")
	// ErrAlreadyResolved is returned when a resolved program or binding
	// set is resolved again.
	ErrAlreadyResolved = errors.New("already resolved")
	// ErrUniformValue is returned when a value does not match its uniform kind.
	ErrUniformValue = errors.New("uniform value does not match kind")
	// ErrBuild is wrapped by BuildError.
	ErrBuild = errors.New("shader build failed")
	// ErrPending is returned by TextureFuture.Result before the load resolves.
	ErrPending = errors.New("texture load pending")
	// ErrDiscarded resolves a TextureFuture discarded before its upload ran.
	ErrDiscarded = errors.New("texture upload discarded")
)

// BuildError carries the diagnostics of a failed compile or link.
type BuildError struct {
	Vertex   string
	Fragment string
	Link     string
}

func (e *BuildError) Error() string {
	var parts []string
	for _, p := range []struct{ name, log string }{
		{"vertex", e.Vertex},
		{"fragment", e.Fragment},
		{"link", e.Link},
	} {
		if p.log != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", p.name, strings.TrimSpace(p.log)))
		}
	}
	return fmt.Sprintf("%v: %s", ErrBuild, strings.Join(parts, "; "))
}

func (e *BuildError) Unwrap() error {
	return ErrBuild
}
