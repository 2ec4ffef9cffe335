package tester

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/irq"
	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/truth"
)

// Panel shows a report on the indicators.
type Panel interface {
	Show(r Report) error
}

// Feeder is fed once per completed iteration.
type Feeder interface {
	Feed()
}

// Orchestrator runs the foreground loop. It is the only reader of the
// selectors and the only user of the gate channels.
type Orchestrator struct {
	mask  *irq.Mask
	board *irq.Slot[*gpio.Board]
	sel   *selector.State
	panel Panel
	feed  Feeder
	now   func() time.Time
}

// New creates an orchestrator. panel and feed may be nil.
func New(mask *irq.Mask, board *irq.Slot[*gpio.Board], sel *selector.State, panel Panel, feed Feeder) *Orchestrator {
	return &Orchestrator{
		mask:  mask,
		board: board,
		sel:   sel,
		panel: panel,
		feed:  feed,
		now:   time.Now,
	}
}

// Step runs the test logic for one iteration against a single selector
// snapshot. A table mismatch is a normal result; an error means a line
// could not be driven or sampled.
func (o *Orchestrator) Step() (Report, error) {
	r := Report{
		Timestamp: o.now(),
		Selection: o.sel.Snapshot(),
	}

	switch r.Selection.Device {
	case selector.DeviceOR:
		r.Expected = truth.OR
	case selector.DeviceAND:
		r.Expected = truth.AND
	case selector.DeviceSelfTest:
		return o.selfTest(r)
	default:
		return r, fmt.Errorf("device selector out of range: %d", r.Selection.Device)
	}

	if r.Selection.Mode == selector.ModeAll {
		all := true
		for id := 1; id <= gpio.NumChannels; id++ {
			pass, err := o.check(&r, id)
			if err != nil {
				return r, err
			}
			all = all && pass
		}
		r.Result[0] = all
		r.Tested[0] = true
		return r, nil
	}

	id := int(r.Selection.Mode)
	if id < 1 || id > gpio.NumChannels {
		return r, fmt.Errorf("mode selector out of range: %d", r.Selection.Mode)
	}
	if _, err := o.check(&r, id); err != nil {
		return r, err
	}
	return r, nil
}

// selfTest classifies channel 1 as OR-shaped, AND-shaped or neither.
func (o *Orchestrator) selfTest(r Report) (Report, error) {
	r.SelfTest = true
	t, err := o.exercise(1)
	if err != nil {
		return r, err
	}
	r.Observed = t
	r.Tables[0] = t
	r.Shape = truth.Classify(t)
	return r, nil
}

func (o *Orchestrator) check(r *Report, id int) (bool, error) {
	t, err := o.exercise(id)
	if err != nil {
		return false, err
	}
	pass := t.Equal(r.Expected)
	r.Tables[id-1] = t
	r.Result[id] = pass
	r.Tested[id] = true
	return pass, nil
}

// exercise walks the input combinations of one channel. Each drive and
// each sample runs with interrupts masked, so the handler never observes a
// half-driven socket; the settle wait runs unmasked.
func (o *Orchestrator) exercise(id int) (truth.Table, error) {
	var t truth.Table
	for i, comb := range truth.Combinations {
		var settle time.Duration
		err := o.onChannel(id, func(ch *gpio.Channel) error {
			settle = ch.Settle
			return ch.Drive(comb)
		})
		if err != nil {
			return t, err
		}
		if settle > 0 {
			time.Sleep(settle)
		}
		err = o.onChannel(id, func(ch *gpio.Channel) error {
			high, err := ch.Sample()
			t[i] = high
			return err
		})
		if err != nil {
			return t, err
		}
	}
	return t, nil
}

// onChannel runs fn on channel id inside a critical section.
func (o *Orchestrator) onChannel(id int, fn func(ch *gpio.Channel) error) error {
	var err error
	o.mask.Free(func(cs *irq.CS) {
		b, ok := o.board.Borrow(cs)
		if !ok {
			err = irq.ErrNotPublished
			return
		}
		ch := b.Channel(id)
		if ch == nil {
			err = fmt.Errorf("channel %d not bound", id)
			return
		}
		err = fn(ch)
	})
	return err
}

// Iterate runs one full iteration: test, show on the panel, feed the
// watchdog.
func (o *Orchestrator) Iterate() (Report, error) {
	r, err := o.Step()
	if err != nil {
		return r, err
	}
	if o.panel != nil {
		if err := o.panel.Show(r); err != nil {
			return r, fmt.Errorf("show report: %w", err)
		}
	}
	if o.feed != nil {
		o.feed.Feed()
	}
	return r, nil
}

// Run iterates until ctx is done, calling observe with each report.
// When pace is non-nil, each iteration after the first waits for a value
// from it; otherwise iterations run back to back. Any hardware error is
// returned and is fatal.
func (o *Orchestrator) Run(ctx context.Context, pace <-chan time.Time, observe func(Report)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r, err := o.Iterate()
		if err != nil {
			return err
		}
		if observe != nil {
			observe(r)
		}

		if pace == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-pace:
		}
	}
}
