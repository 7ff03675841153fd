// Package clock measures frame time.
package clock

import "time"

// Timer reports time elapsed since it was started and since the previous
// delta reading.
type Timer struct {
	now      func() time.Time
	start    time.Time
	previous time.Time
}

// New starts a timer on the wall clock.
func New() *Timer {
	return NewWithClock(time.Now)
}

// NewWithClock starts a timer reading time from now.
func NewWithClock(now func() time.Time) *Timer {
	t := &Timer{now: now}
	t.Reset()
	return t
}

// Reset restarts the timer.
func (t *Timer) Reset() {
	t.start = t.now()
	t.previous = t.start
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// PassMS returns the milliseconds since the timer started.
func (t *Timer) PassMS() float64 {
	return float64(t.Elapsed()) / float64(time.Millisecond)
}

// Pass returns the seconds since the timer started.
func (t *Timer) Pass() float64 {
	return t.Elapsed().Seconds()
}

// Tick returns the time since the previous Tick (or the start) and marks
// the current time.
func (t *Timer) Tick() time.Duration {
	now := t.now()
	d := now.Sub(t.previous)
	t.previous = now
	return d
}

// DeltaMS returns the milliseconds since the previous delta reading.
func (t *Timer) DeltaMS() float64 {
	return float64(t.Tick()) / float64(time.Millisecond)
}

// Delta returns the seconds since the previous delta reading.
func (t *Timer) Delta() float64 {
	return t.Tick().Seconds()
}
