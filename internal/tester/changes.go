package tester

import (
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/selector"
)

// TransitionType is a change of a channel's verdict.
type TransitionType string

const (
	TransitionPass TransitionType = "PASS" // fail -> pass
	TransitionFail TransitionType = "FAIL" // pass -> fail
)

// Transition is a verdict change on one channel under an unchanged
// selection.
type Transition struct {
	Timestamp time.Time
	Channel   int
	Type      TransitionType
	Selection selector.Snapshot
}

// Counts tracks iterations and verdict transitions since startup.
type Counts struct {
	Iterations int
	Selections int
	Passes     [gpio.NumChannels]int
	Failures   [gpio.NumChannels]int
}

// Changes compares successive reports. The first report after a selection
// change is a new baseline and produces no transitions.
type Changes struct {
	last   Report
	seeded bool
	counts Counts
}

// NewChanges creates an empty change tracker.
func NewChanges() *Changes {
	return &Changes{}
}

// Process takes the latest report. changed is true when the diagnostic line
// or the selection differs from the previous report.
func (c *Changes) Process(r Report) (changed bool, transitions []Transition) {
	c.counts.Iterations++

	if !c.seeded {
		c.last, c.seeded = r, true
		c.counts.Selections++
		return true, nil
	}

	prev := c.last
	c.last = r

	if prev.Selection != r.Selection {
		c.counts.Selections++
		return true, nil
	}

	if !r.SelfTest {
		for i := 0; i < gpio.NumChannels; i++ {
			slot := i + 1
			if !prev.Tested[slot] || !r.Tested[slot] || prev.Result[slot] == r.Result[slot] {
				continue
			}
			tr := Transition{
				Timestamp: r.Timestamp,
				Channel:   slot,
				Selection: r.Selection,
			}
			if r.Result[slot] {
				tr.Type = TransitionPass
				c.counts.Passes[i]++
			} else {
				tr.Type = TransitionFail
				c.counts.Failures[i]++
			}
			transitions = append(transitions, tr)
		}
	}

	return prev.Line() != r.Line() || prev.Observed != r.Observed || len(transitions) > 0, transitions
}

// Last returns the most recent report and whether one has been processed.
func (c *Changes) Last() (Report, bool) {
	return c.last, c.seeded
}

// Counts returns a copy of the counters.
func (c *Changes) Counts() Counts {
	return c.counts
}
