package irq

import (
	"log"
	"sync/atomic"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/selector"
)

// Handler is the button interrupt handler. It is the only writer of the
// selectors.
type Handler struct {
	mask  *Mask
	board *Slot[*gpio.Board]
	sel   *selector.State
	fired atomic.Uint64
}

// NewHandler creates a handler that reads buttons from the board slot and
// advances sel.
func NewHandler(mask *Mask, board *Slot[*gpio.Board], sel *selector.State) *Handler {
	return &Handler{mask: mask, board: board, sel: sel}
}

// Handle services one interrupt. Both buttons are checked, so edges latched
// on both advance both selectors once each. The flag check and clear happen
// with interrupts masked; the diagnostic line is logged after unmasking.
func (h *Handler) Handle() (selector.Snapshot, error) {
	var err error
	h.mask.Free(func(cs *CS) {
		b, ok := h.board.Borrow(cs)
		if !ok {
			err = ErrNotPublished
			return
		}
		if b.DeviceButton.Pending() {
			h.sel.Device.Advance()
			b.DeviceButton.ClearPending()
		}
		if b.ModeButton.Pending() {
			h.sel.Mode.Advance()
			b.ModeButton.ClearPending()
		}
	})
	if err != nil {
		return selector.Snapshot{}, err
	}

	h.fired.Add(1)
	snap := h.sel.Snapshot()
	log.Printf("interrupt: device=%d mode=%d", snap.Device, snap.Mode)
	return snap, nil
}

// Fired returns the number of interrupts serviced.
func (h *Handler) Fired() uint64 {
	return h.fired.Load()
}
