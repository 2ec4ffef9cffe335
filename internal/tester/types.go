// Package tester contains the foreground test loop: it picks the expected
// truth table from the device selector, exercises the channels picked by
// the mode selector and aggregates pass/fail results.
package tester

import (
	"fmt"
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/truth"
)

// Result is [all-pass, channel1-pass, ..., channel4-pass].
type Result [gpio.NumChannels + 1]bool

// Report is the outcome of one foreground iteration.
type Report struct {
	Timestamp time.Time
	Selection selector.Snapshot

	// SelfTest is set when the device selector was in self-test. Only
	// Observed, Shape and Tables[0] are meaningful then.
	SelfTest bool
	Observed truth.Table
	Shape    truth.Shape

	Expected truth.Table
	Result   Result

	// Tested marks the Result slots that were actually evaluated this
	// iteration. In single-channel modes only the selected slot is set;
	// the others read false in Result but were not tested.
	Tested Result

	// Tables holds the observed table of each tested channel.
	Tables [gpio.NumChannels]truth.Table
}

// Line returns the human-readable diagnostic line for the iteration.
func (r Report) Line() string {
	switch {
	case r.SelfTest:
		return fmt.Sprintf("self-test: OR gate: %v | AND gate: %v", r.Shape.OR, r.Shape.AND)
	case r.Selection.Mode == selector.ModeAll:
		return fmt.Sprintf("test result %v", r.Result)
	default:
		n := int(r.Selection.Mode)
		return fmt.Sprintf("test result channel %d: %v", n, r.Result[n])
	}
}

// Pass reports the flag shown on the pass indicator: the aggregate in
// mode 0, the selected channel otherwise. Always false in self-test.
func (r Report) Pass() bool {
	if r.SelfTest {
		return false
	}
	return r.Result[r.Selection.Mode]
}

// Outcome describes how a result slot should be read.
type Outcome string

const (
	OutcomePass      Outcome = "PASS"
	OutcomeFail      Outcome = "FAIL"
	OutcomeNotTested Outcome = "NOT_TESTED"

	// OutcomeSelfTest marks channel 1 during self-test: exercised and
	// classified, not judged.
	OutcomeSelfTest Outcome = "SELF_TEST"
)

// Outcome returns the outcome of result slot i (0 = aggregate).
func (r Report) Outcome(i int) Outcome {
	if r.SelfTest {
		if i == 1 {
			return OutcomeSelfTest
		}
		return OutcomeNotTested
	}
	if i < 0 || i >= len(r.Result) || !r.Tested[i] {
		return OutcomeNotTested
	}
	if r.Result[i] {
		return OutcomePass
	}
	return OutcomeFail
}

// Exercised reports whether channel i was driven this iteration, so that
// Tables[i-1] holds its observed table.
func (r Report) Exercised(i int) bool {
	if r.SelfTest {
		return i == 1
	}
	return i >= 1 && i < len(r.Tested) && r.Tested[i]
}
