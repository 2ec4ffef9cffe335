package tester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/truth"
)

func report(device, mode uint32, result, tested Result) Report {
	return Report{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Selection: selector.Snapshot{Device: selector.Device(device), Mode: selector.Mode(mode)},
		Result:    result,
		Tested:    tested,
	}
}

var allTested = Result{true, true, true, true, true}

func TestChangesFirstReportIsBaseline(t *testing.T) {
	c := NewChanges()

	changed, transitions := c.Process(report(0, 0, Result{true, true, true, true, true}, allTested))
	assert.True(t, changed, "first report should count as changed")
	assert.Empty(t, transitions)
	_, ok := c.Last()
	assert.True(t, ok)
}

func TestChangesStableReport(t *testing.T) {
	c := NewChanges()
	r := report(0, 0, Result{true, true, true, true, true}, allTested)

	c.Process(r)
	for i := 0; i < 5; i++ {
		changed, transitions := c.Process(r)
		assert.False(t, changed, "iteration %d: unchanged report flagged as changed", i)
		assert.Empty(t, transitions, "iteration %d", i)
	}

	counts := c.Counts()
	assert.Equal(t, 6, counts.Iterations)
	assert.Equal(t, 1, counts.Selections)
}

func TestChangesChannelFailsThenRecovers(t *testing.T) {
	c := NewChanges()
	c.Process(report(1, 0, Result{true, true, true, true, true}, allTested))

	changed, transitions := c.Process(report(1, 0, Result{false, true, false, true, true}, allTested))
	assert.True(t, changed)
	require.Len(t, transitions, 1)
	assert.Equal(t, 2, transitions[0].Channel)
	assert.Equal(t, TransitionFail, transitions[0].Type)

	_, transitions = c.Process(report(1, 0, Result{true, true, true, true, true}, allTested))
	require.Len(t, transitions, 1)
	assert.Equal(t, TransitionPass, transitions[0].Type)

	counts := c.Counts()
	assert.Equal(t, 1, counts.Failures[1])
	assert.Equal(t, 1, counts.Passes[1])
}

func TestChangesSelectionChangeRebaselines(t *testing.T) {
	c := NewChanges()
	c.Process(report(0, 0, Result{true, true, true, true, true}, allTested))

	// Switching to AND makes every OR gate fail, but that is a new
	// baseline, not four failures.
	changed, transitions := c.Process(report(1, 0, Result{}, allTested))
	assert.True(t, changed, "selection change should be flagged")
	assert.Empty(t, transitions)
	assert.Equal(t, 2, c.Counts().Selections)
}

func TestChangesUntestedSlotsIgnored(t *testing.T) {
	c := NewChanges()
	only2 := Result{false, false, true, false, false}
	c.Process(report(0, 2, only2, only2))

	_, transitions := c.Process(report(0, 2, only2, only2))
	assert.Empty(t, transitions)
}

func TestChangesSelfTestShape(t *testing.T) {
	c := NewChanges()
	base := Report{
		Selection: selector.Snapshot{Device: selector.DeviceSelfTest},
		SelfTest:  true,
		Observed:  truth.OR,
		Shape:     truth.Classify(truth.OR),
	}
	c.Process(base)

	next := base
	next.Observed = truth.Table{true, true, true, true}
	next.Shape = truth.Classify(next.Observed)
	changed, transitions := c.Process(next)
	assert.True(t, changed, "self-test shape change should be flagged")
	assert.Empty(t, transitions)
}
