// Package gpio provides the digital lines of the gate tester with hardware
// abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation simulates gates so the test logic runs without
// hardware.
package gpio

import (
	"errors"
	"sync/atomic"
)

// NumChannels is the number of gate sockets on the fixture.
const NumChannels = 4

// ErrNotSupported is returned by OpenReal on platforms without GPIO.
var ErrNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Drivable is an output line.
type Drivable interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// Sensable is an input line.
type Sensable interface {
	// High returns the sampled logic level.
	High() (bool, error)
}

// Button is a push button wired to a falling-edge interrupt.
type Button interface {
	// Pending reports whether an edge has been latched since the last clear.
	Pending() bool
	// ClearPending drops the latched edge.
	ClearPending()
}

// EdgeButton latches falling edges into a pending flag, the way a port
// interrupt flag register does. It is safe to Trigger from an event
// goroutine while the handler checks and clears it.
type EdgeButton struct {
	Name    string
	pending atomic.Bool
}

// NewEdgeButton returns a button with no pending edge.
func NewEdgeButton(name string) *EdgeButton {
	return &EdgeButton{Name: name}
}

// Trigger latches an edge.
func (b *EdgeButton) Trigger() {
	b.pending.Store(true)
}

// Pending reports whether an edge is latched.
func (b *EdgeButton) Pending() bool {
	return b.pending.Load()
}

// ClearPending drops the latched edge.
func (b *EdgeButton) ClearPending() {
	b.pending.Store(false)
}

// Board is the hardware context shared by the interrupt handler and the
// foreground loop. It is built once at startup and never reassigned.
type Board struct {
	DeviceButton Button
	ModeButton   Button
	Channels     [NumChannels]*Channel
}

// Channel returns the channel with the given 1-based id, or nil.
func (b *Board) Channel(id int) *Channel {
	if id < 1 || id > NumChannels {
		return nil
	}
	return b.Channels[id-1]
}

// LEDs are the indicator outputs. They belong to the foreground loop only.
type LEDs struct {
	Mode    Drivable // mode 0 steady, single-channel blinking
	OR      Drivable
	AND     Drivable
	Pass    Drivable
	Results [NumChannels + 1]Drivable // [all, ch1..ch4]
}

// All returns every LED line in a fixed order.
func (l *LEDs) All() []Drivable {
	out := []Drivable{l.Mode, l.OR, l.AND, l.Pass}
	return append(out, l.Results[:]...)
}
