package gpio

import (
	"errors"
	"sync"
)

// FakeLine is a test double for a single line. Writes are recorded and the
// last written level is returned by High.
type FakeLine struct {
	mu     sync.Mutex
	level  bool
	writes []bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeLine creates a FakeLine at the given level.
func NewFakeLine(level bool) *FakeLine {
	return &FakeLine{level: level}
}

// Set records the write and updates the level.
func (f *FakeLine) Set(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.level = high
	f.writes = append(f.writes, high)
	return nil
}

// High returns the last written level.
func (f *FakeLine) High() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level, nil
}

// Level returns the current level without error handling.
func (f *FakeLine) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Writes returns a copy of every level written so far.
func (f *FakeLine) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// Reset clears recorded writes.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.writes = nil
	f.mu.Unlock()
}

// ConstantLine is an input stuck at one level.
type ConstantLine bool

// High returns the stuck level.
func (c ConstantLine) High() (bool, error) {
	return bool(c), nil
}

// FaultLine is an input whose reads always fail.
type FaultLine struct {
	Err error
}

// High returns the configured error.
func (f FaultLine) High() (bool, error) {
	if f.Err == nil {
		return false, errors.New("line fault")
	}
	return false, f.Err
}

// SimulatedGate is a purely combinational 2-input gate: its output is fn
// applied to the current levels of In1 and In2.
type SimulatedGate struct {
	In1 *FakeLine
	In2 *FakeLine
	fn  func(a, b bool) bool
}

// NewSimulatedGate creates a gate whose inputs start low.
func NewSimulatedGate(fn func(a, b bool) bool) *SimulatedGate {
	return &SimulatedGate{
		In1: NewFakeLine(false),
		In2: NewFakeLine(false),
		fn:  fn,
	}
}

// High evaluates the gate.
func (g *SimulatedGate) High() (bool, error) {
	return g.fn(g.In1.Level(), g.In2.Level()), nil
}

// Channel wires the gate into a channel with the given id.
func (g *SimulatedGate) Channel(id int) *Channel {
	return NewChannel(id, g.In1, g.In2, g)
}

// AndGate is a good 2-input AND gate.
func AndGate(a, b bool) bool { return a && b }

// OrGate is a good 2-input OR gate.
func OrGate(a, b bool) bool { return a || b }

// NandGate is a 2-input NAND gate.
func NandGate(a, b bool) bool { return !(a && b) }

// XorGate is a 2-input XOR gate.
func XorGate(a, b bool) bool { return a != b }

// StuckHigh models a socket whose output is shorted high.
func StuckHigh(a, b bool) bool { return true }

// StuckLow models an empty socket or an output shorted low.
func StuckLow(a, b bool) bool { return false }

// NewSimulatedBoard builds a board whose four sockets hold the given gates.
// The buttons are EdgeButtons so tests can Trigger them.
func NewSimulatedBoard(gates [NumChannels]func(a, b bool) bool) (*Board, [NumChannels]*SimulatedGate) {
	b := &Board{
		DeviceButton: NewEdgeButton("device"),
		ModeButton:   NewEdgeButton("mode"),
	}
	var sims [NumChannels]*SimulatedGate
	for i, fn := range gates {
		sims[i] = NewSimulatedGate(fn)
		b.Channels[i] = sims[i].Channel(i + 1)
	}
	return b, sims
}

// FakeLEDs returns an LED set backed by FakeLines, plus the lines in the
// order of LEDs.All.
func FakeLEDs() (LEDs, []*FakeLine) {
	lines := make([]*FakeLine, 4+NumChannels+1)
	for i := range lines {
		lines[i] = NewFakeLine(false)
	}
	l := LEDs{
		Mode: lines[0],
		OR:   lines[1],
		AND:  lines[2],
		Pass: lines[3],
	}
	for i := range l.Results {
		l.Results[i] = lines[4+i]
	}
	return l, lines
}
