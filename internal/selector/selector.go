// Package selector holds the two operator-controlled selectors: which gate
// family is under test and which channels are exercised.
//
// Each selector has exactly one writer (the button interrupt handler) and
// one reader (the foreground test loop). Values live in atomics so a read
// never blocks and never sees a torn value.
package selector

import (
	"fmt"
	"sync/atomic"
)

// Upper bounds, inclusive. Advancing past the bound wraps to 0.
const (
	DeviceMax = 2
	ModeMax   = 4
)

// Device identifies the gate family under test.
type Device uint32

const (
	DeviceOR       Device = 0
	DeviceAND      Device = 1
	DeviceSelfTest Device = DeviceMax
)

func (d Device) String() string {
	switch d {
	case DeviceOR:
		return "OR"
	case DeviceAND:
		return "AND"
	case DeviceSelfTest:
		return "SELF_TEST"
	}
	return fmt.Sprintf("Device(%d)", uint32(d))
}

// Mode selects the channels to exercise: 0 = all four, n = channel n only.
type Mode uint32

// ModeAll exercises every channel.
const ModeAll Mode = 0

func (m Mode) String() string {
	if m == ModeAll {
		return "ALL"
	}
	return fmt.Sprintf("CHANNEL_%d", uint32(m))
}

// Counter is a bounded counter in [0, max] that wraps to 0.
type Counter struct {
	max uint32
	v   atomic.Uint32
}

// NewCounter returns a counter at 0 with the given inclusive bound.
func NewCounter(max uint32) *Counter {
	return &Counter{max: max}
}

// Advance increments the counter, wrapping to 0 after max, and returns the
// new value. Only the interrupt handler may call it.
func (c *Counter) Advance() uint32 {
	cur := c.v.Load()
	next := cur + 1
	if cur >= c.max {
		next = 0
	}
	c.v.Store(next)
	return next
}

// Read returns the current value.
func (c *Counter) Read() uint32 {
	return c.v.Load()
}

// Max returns the inclusive upper bound.
func (c *Counter) Max() uint32 {
	return c.max
}

// State is the pair of selectors shared between the interrupt handler and
// the foreground loop.
type State struct {
	Device *Counter
	Mode   *Counter
}

// New returns both selectors at 0 (OR family, all channels).
func New() *State {
	return &State{
		Device: NewCounter(DeviceMax),
		Mode:   NewCounter(ModeMax),
	}
}

// Snapshot is a point-in-time copy of both selectors.
type Snapshot struct {
	Device Device
	Mode   Mode
}

// Snapshot reads both selectors once. The foreground loop takes one
// snapshot per iteration and uses it throughout.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Device: Device(s.Device.Read()),
		Mode:   Mode(s.Mode.Read()),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("device=%d mode=%d", uint32(s.Device), uint32(s.Mode))
}
