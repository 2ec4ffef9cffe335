package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/gate-tester/internal/truth"
)

// Channel is one gate socket.
type Channel struct {
	ID  int
	In1 Drivable
	In2 Drivable
	Out Sensable

	// Settle is the pause between driving the inputs and sampling the
	// output. Zero samples immediately.
	Settle time.Duration
}

// NewChannel binds a socket to its lines.
func NewChannel(id int, in1, in2 Drivable, out Sensable) *Channel {
	return &Channel{ID: id, In1: in1, In2: in2, Out: out}
}

// Exercise drives the four input combinations in order and returns the
// sampled outputs. The inputs are left at (1,1).
func (c *Channel) Exercise() (truth.Table, error) {
	var t truth.Table
	for i, comb := range truth.Combinations {
		if err := c.Drive(comb); err != nil {
			return t, err
		}
		if c.Settle > 0 {
			time.Sleep(c.Settle)
		}
		high, err := c.Sample()
		if err != nil {
			return t, err
		}
		t[i] = high
	}
	return t, nil
}

// Drive sets both inputs to comb.
func (c *Channel) Drive(comb truth.Combination) error {
	if err := c.In1.Set(comb.A); err != nil {
		return fmt.Errorf("channel %d: drive input 1: %w", c.ID, err)
	}
	if err := c.In2.Set(comb.B); err != nil {
		return fmt.Errorf("channel %d: drive input 2: %w", c.ID, err)
	}
	return nil
}

// Sample reads the gate output.
func (c *Channel) Sample() (bool, error) {
	high, err := c.Out.High()
	if err != nil {
		return false, fmt.Errorf("channel %d: sample output: %w", c.ID, err)
	}
	return high, nil
}

// Check exercises the channel and compares the result with want.
func (c *Channel) Check(want truth.Table) (bool, truth.Table, error) {
	got, err := c.Exercise()
	if err != nil {
		return false, got, err
	}
	return got.Equal(want), got, nil
}
