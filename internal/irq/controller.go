package irq

import (
	"context"
	"fmt"
	"sync"
)

// Controller turns edge notifications into handler invocations. Edges
// raised while masked stay pending and are serviced once Unmask is called.
// The handler always runs to completion on the controller's goroutine, so
// invocations never overlap.
type Controller struct {
	handler *Handler
	lines   chan struct{}
	unmask  chan struct{}
	once    sync.Once
}

// NewController creates a masked controller for h.
func NewController(h *Handler) *Controller {
	return &Controller{
		handler: h,
		lines:   make(chan struct{}, 1),
		unmask:  make(chan struct{}),
	}
}

// Raise signals that a button line saw an edge. It never blocks: an edge
// raised while another is still pending is folded into it, the same way the
// port interrupt line stays asserted until serviced.
func (c *Controller) Raise() {
	select {
	case c.lines <- struct{}{}:
	default:
	}
}

// Unmask enables dispatch. Call it only after the hardware context has been
// published.
func (c *Controller) Unmask() {
	c.once.Do(func() { close(c.unmask) })
}

// Run dispatches interrupts until ctx is done. A handler error is fatal and
// is returned.
func (c *Controller) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-c.unmask:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.lines:
			if _, err := c.handler.Handle(); err != nil {
				return fmt.Errorf("interrupt handler: %w", err)
			}
		}
	}
}
