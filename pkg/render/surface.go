package render

import (
	"slices"

	"github.com/taigrr/cubic/pkg/gpu"
)

// Surface hands out software devices of a fixed size.
type Surface struct {
	Width    int
	Height   int
	Versions []gpu.APIVersion // Versions offered; nil offers all
	Options  []Option

	last *Device
}

// NewSurface returns a surface offering every API version.
func NewSurface(width, height int, opts ...Option) *Surface {
	return &Surface{Width: width, Height: height, Options: opts}
}

// Acquire creates a device for v when the surface offers it.
func (s *Surface) Acquire(v gpu.APIVersion) (gpu.Device, bool) {
	if s.Versions != nil && !slices.Contains(s.Versions, v) {
		return nil, false
	}
	opts := append(slices.Clone(s.Options), WithVersion(v))
	s.last = NewDevice(s.Width, s.Height, opts...)
	return s.last, true
}

// Device returns the most recently acquired device.
func (s *Surface) Device() *Device { return s.last }
