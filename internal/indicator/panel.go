// Package indicator drives the LED panel from test reports.
package indicator

import (
	"fmt"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/tester"
)

// Panel maps reports onto LED lines.
//
//   - Mode: on in mode 0, toggles every iteration in single-channel modes,
//     off in self-test.
//   - OR / AND: the family under test, or the self-test shape.
//   - Pass: aggregate in mode 0, selected channel otherwise, off in self-test.
//   - Results: [all, ch1..ch4]; untouched in self-test.
type Panel struct {
	leds  gpio.LEDs
	blink bool
}

// New creates a panel over leds.
func New(leds gpio.LEDs) *Panel {
	return &Panel{leds: leds}
}

// Show drives the LEDs for r.
func (p *Panel) Show(r tester.Report) error {
	if r.SelfTest {
		return p.set(
			led{p.leds.Mode, false, "mode"},
			led{p.leds.Pass, false, "pass"},
			led{p.leds.OR, r.Shape.OR, "or"},
			led{p.leds.AND, r.Shape.AND, "and"},
		)
	}

	mode := true
	if r.Selection.Mode != selector.ModeAll {
		p.blink = !p.blink
		mode = p.blink
	}

	leds := []led{
		{p.leds.OR, r.Selection.Device == selector.DeviceOR, "or"},
		{p.leds.AND, r.Selection.Device == selector.DeviceAND, "and"},
		{p.leds.Mode, mode, "mode"},
		{p.leds.Pass, r.Pass(), "pass"},
	}
	for i, l := range p.leds.Results {
		leds = append(leds, led{l, r.Result[i], fmt.Sprintf("result %d", i)})
	}
	return p.set(leds...)
}

// Clear drives every LED low.
func (p *Panel) Clear() error {
	for _, l := range p.leds.All() {
		if l == nil {
			continue
		}
		if err := l.Set(false); err != nil {
			return fmt.Errorf("clear led: %w", err)
		}
	}
	return nil
}

type led struct {
	line gpio.Drivable
	on   bool
	name string
}

func (p *Panel) set(leds ...led) error {
	for _, l := range leds {
		if l.line == nil {
			continue
		}
		if err := l.line.Set(l.on); err != nil {
			return fmt.Errorf("set %s led: %w", l.name, err)
		}
	}
	return nil
}
