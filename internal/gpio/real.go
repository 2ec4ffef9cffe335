//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "gate-tester"

// RealLine is a requested line on the GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
	role string
}

// Set drives the line.
func (l *RealLine) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", l.role, err)
	}
	return nil
}

// High samples the line.
func (l *RealLine) High() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", l.role, err)
	}
	return v == 1, nil
}

// RealHardware owns every requested line of the fixture.
type RealHardware struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line

	Board *Board
	LEDs  LEDs
}

// OpenReal requests all lines in b from the named chip: gate inputs as
// outputs driven low, gate outputs as pulled-up inputs, buttons as pulled-up
// inputs with falling-edge events, LEDs as outputs driven low.
//
// Each button edge is latched into the button's pending flag and then
// reported through onEdge. onEdge runs on the library's event goroutine and
// must not block.
func OpenReal(chipName string, b Bindings, onEdge func()) (*RealHardware, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	h := &RealHardware{chip: chip, Board: &Board{}}

	output := func(offset int, role string) (*RealLine, error) {
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", role, offset, err)
		}
		h.lines = append(h.lines, l)
		return &RealLine{line: l, role: role}, nil
	}
	input := func(offset int, role string) (*RealLine, error) {
		l, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", role, offset, err)
		}
		h.lines = append(h.lines, l)
		return &RealLine{line: l, role: role}, nil
	}
	button := func(offset int, role string) (*EdgeButton, error) {
		btn := NewEdgeButton(role)
		handler := func(evt gpiocdev.LineEvent) {
			if evt.Type != gpiocdev.LineEventFallingEdge {
				return
			}
			btn.Trigger()
			if onEdge != nil {
				onEdge()
			}
		}
		l, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(handler))
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", role, offset, err)
		}
		h.lines = append(h.lines, l)
		return btn, nil
	}

	if err := h.request(b, output, input, button); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *RealHardware) request(
	b Bindings,
	output func(int, string) (*RealLine, error),
	input func(int, string) (*RealLine, error),
	button func(int, string) (*EdgeButton, error),
) error {
	var err error

	for i, pins := range b.Channels {
		id := i + 1
		in1, err := output(pins.In1, fmt.Sprintf("gate %d input 1", id))
		if err != nil {
			return err
		}
		in2, err := output(pins.In2, fmt.Sprintf("gate %d input 2", id))
		if err != nil {
			return err
		}
		out, err := input(pins.Out, fmt.Sprintf("gate %d output", id))
		if err != nil {
			return err
		}
		h.Board.Channels[i] = NewChannel(id, in1, in2, out)
	}

	if h.LEDs.Mode, err = output(b.ModeLED, "mode led"); err != nil {
		return err
	}
	if h.LEDs.OR, err = output(b.ORLED, "or led"); err != nil {
		return err
	}
	if h.LEDs.AND, err = output(b.ANDLED, "and led"); err != nil {
		return err
	}
	if h.LEDs.Pass, err = output(b.PassLED, "pass led"); err != nil {
		return err
	}
	for i, offset := range b.ResultLEDs {
		if h.LEDs.Results[i], err = output(offset, fmt.Sprintf("result led %d", i)); err != nil {
			return err
		}
	}

	// Buttons last: edges can be latched from here on.
	if h.Board.DeviceButton, err = button(b.DeviceButton, "device button"); err != nil {
		return err
	}
	if h.Board.ModeButton, err = button(b.ModeButton, "mode button"); err != nil {
		return err
	}
	return nil
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so the sockets are not left driven.
func (h *RealHardware) Close() error {
	var errs []error

	for _, l := range h.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	h.lines = nil
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		h.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
