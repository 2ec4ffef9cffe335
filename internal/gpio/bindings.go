package gpio

// ChannelPins binds one gate socket: two gate inputs driven by us, one gate
// output sampled by us.
type ChannelPins struct {
	In1 int
	In2 int
	Out int
}

// Bindings maps every logical role to a line offset on the GPIO chip.
// It is fixed at build time.
type Bindings struct {
	DeviceButton int
	ModeButton   int
	Channels     [NumChannels]ChannelPins

	ModeLED    int
	ORLED      int
	ANDLED     int
	PassLED    int
	ResultLEDs [NumChannels + 1]int
}

// DefaultBindings returns the fixture wiring (BCM numbering).
func DefaultBindings() Bindings {
	return Bindings{
		DeviceButton: 17,
		ModeButton:   27,
		Channels: [NumChannels]ChannelPins{
			{In1: 5, In2: 6, Out: 13},
			{In1: 19, In2: 26, Out: 21},
			{In1: 20, In2: 16, Out: 12},
			{In1: 7, In2: 8, Out: 25},
		},
		ModeLED:    24,
		ORLED:      23,
		ANDLED:     18,
		PassLED:    15,
		ResultLEDs: [NumChannels + 1]int{14, 2, 3, 4, 22},
	}
}

// Offsets returns every bound offset in a fixed order.
func (b Bindings) Offsets() []int {
	out := []int{b.DeviceButton, b.ModeButton}
	for _, c := range b.Channels {
		out = append(out, c.In1, c.In2, c.Out)
	}
	out = append(out, b.ModeLED, b.ORLED, b.ANDLED, b.PassLED)
	return append(out, b.ResultLEDs[:]...)
}
