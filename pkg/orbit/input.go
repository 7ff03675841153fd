package orbit

// Buttons is the bit set of pressed pointer buttons.
type Buttons int

const (
	ButtonPrimary   Buttons = 1 << iota // Rotates
	ButtonSecondary                     // Pans
)

// PointerEvent is a pointer position in the coordinate space of the target
// surface's Bounds, with the buttons held during the event.
type PointerEvent struct {
	X, Y    float64
	Buttons Buttons
}

// WheelEvent is a scroll step. Only the sign of DeltaY is used.
type WheelEvent struct {
	DeltaY float64
}

// InputHandler consumes pointer and wheel events. Any event source can
// drive a Camera by forwarding to these methods.
type InputHandler interface {
	PointerDown(e PointerEvent)
	PointerMove(e PointerEvent)
	PointerUp(e PointerEvent)
	Wheel(e WheelEvent)
}

// Bounds is the bounding rectangle of the target surface.
type Bounds struct {
	Left, Top     float64
	Width, Height float64
}

// local converts an event position into surface-relative coordinates.
func (b Bounds) local(x, y float64) (float64, float64) {
	return x - b.Left, y - b.Top
}

// sensitivity maps pixels to turns so a drag across the shorter side of the
// surface is one full turn.
func (b Bounds) sensitivity() float64 {
	return 1 / min(b.Width, b.Height)
}
