package irq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/selector"
)

type fixture struct {
	mask    *Mask
	slot    *Slot[*gpio.Board]
	sel     *selector.State
	handler *Handler
	device  *gpio.EdgeButton
	mode    *gpio.EdgeButton
}

func newFixture(t *testing.T, publish bool) *fixture {
	t.Helper()
	board, _ := gpio.NewSimulatedBoard([gpio.NumChannels]func(a, b bool) bool{
		gpio.OrGate, gpio.OrGate, gpio.OrGate, gpio.OrGate,
	})
	f := &fixture{
		mask:   &Mask{},
		slot:   &Slot[*gpio.Board]{},
		sel:    selector.New(),
		device: board.DeviceButton.(*gpio.EdgeButton),
		mode:   board.ModeButton.(*gpio.EdgeButton),
	}
	f.handler = NewHandler(f.mask, f.slot, f.sel)
	if publish {
		Publish(f.mask, f.slot, board)
	}
	return f
}

func TestSlotRequiresCriticalSection(t *testing.T) {
	var s Slot[int]
	assert.Panics(t, func() { s.Borrow(nil) })

	var leaked *CS
	m := &Mask{}
	m.Free(func(cs *CS) { leaked = cs })
	assert.Panics(t, func() { s.Replace(leaked, 1) })
}

func TestSlotReplaceAndBorrow(t *testing.T) {
	m := &Mask{}
	var s Slot[string]

	m.Free(func(cs *CS) {
		_, ok := s.Borrow(cs)
		assert.False(t, ok)

		_, had := s.Replace(cs, "first")
		assert.False(t, had)

		old, had := s.Replace(cs, "second")
		assert.True(t, had)
		assert.Equal(t, "first", old)

		v, ok := s.Borrow(cs)
		assert.True(t, ok)
		assert.Equal(t, "second", v)
	})
}

func TestMaskExcludesConcurrentSections(t *testing.T) {
	m := &Mask{}
	inside := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Free(func(cs *CS) {
					inside++
					if inside != 1 {
						t.Errorf("overlapping critical sections: %d", inside)
					}
					inside--
				})
			}
		}()
	}
	wg.Wait()
}

func TestHandleBeforePublish(t *testing.T) {
	f := newFixture(t, false)
	f.device.Trigger()

	_, err := f.handler.Handle()
	assert.ErrorIs(t, err, ErrNotPublished)
	assert.Equal(t, selector.DeviceOR, f.sel.Snapshot().Device)
	assert.Zero(t, f.handler.Fired())
}

func TestDeviceButtonSequence(t *testing.T) {
	f := newFixture(t, true)

	var seen []selector.Device
	for i := 0; i < 3; i++ {
		f.device.Trigger()
		snap, err := f.handler.Handle()
		require.NoError(t, err)
		seen = append(seen, f.sel.Snapshot().Device)
		assert.Equal(t, snap.Device, seen[i])
		assert.False(t, f.device.Pending(), "pending flag should be cleared")
	}

	assert.Equal(t, []selector.Device{1, 2, 0}, seen)
	assert.Equal(t, selector.ModeAll, f.sel.Snapshot().Mode)
}

func TestBothButtonsAdvanceOnce(t *testing.T) {
	f := newFixture(t, true)
	f.device.Trigger()
	f.mode.Trigger()

	snap, err := f.handler.Handle()
	require.NoError(t, err)
	assert.Equal(t, selector.Snapshot{Device: 1, Mode: 1}, snap)

	// A spurious interrupt with nothing pending changes nothing.
	snap, err = f.handler.Handle()
	require.NoError(t, err)
	assert.Equal(t, selector.Snapshot{Device: 1, Mode: 1}, snap)
	assert.Equal(t, uint64(2), f.handler.Fired())
}

func TestRepeatedEdgesLatchOnce(t *testing.T) {
	f := newFixture(t, true)
	f.mode.Trigger()
	f.mode.Trigger()

	snap, err := f.handler.Handle()
	require.NoError(t, err)
	assert.Equal(t, selector.Mode(1), snap.Mode)
}

func TestControllerServicesEdgesAfterUnmask(t *testing.T) {
	f := newFixture(t, true)
	c := NewController(f.handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Latched while masked.
	f.device.Trigger()
	c.Raise()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, f.handler.Fired(), "handler ran before unmask")

	c.Unmask()
	c.Unmask()
	require.Eventually(t, func() bool { return f.handler.Fired() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, selector.DeviceAND, f.sel.Snapshot().Device)

	f.mode.Trigger()
	c.Raise()
	require.Eventually(t, func() bool { return f.sel.Snapshot().Mode == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestControllerUnpublishedIsFatal(t *testing.T) {
	f := newFixture(t, false)
	c := NewController(f.handler)
	c.Unmask()
	c.Raise()

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPublished))
}

func TestControllerStopsWhileMasked(t *testing.T) {
	f := newFixture(t, true)
	c := NewController(f.handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Run(ctx))
}
