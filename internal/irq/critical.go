// Package irq models the button interrupt: a global mask that makes code
// regions atomic with respect to the handler, a guarded slot for the shared
// hardware context, and the dispatcher that runs the handler on each edge.
package irq

import (
	"errors"
	"sync"
)

// ErrNotPublished means the hardware context was used before setup placed
// it in its slot.
var ErrNotPublished = errors.New("irq: hardware context not published")

// Mask is the interrupt mask. Holding it is being inside a critical
// section: the handler cannot run, and no other critical section can start.
type Mask struct {
	mu sync.Mutex
}

// CS proves that the caller is inside a critical section. Only Mask.Free
// creates one, and it is only valid for the duration of that call.
type CS struct {
	live bool
}

// Free runs fn with interrupts masked. Critical sections must not block on
// anything that needs the handler to make progress.
func (m *Mask) Free(fn func(cs *CS)) {
	m.mu.Lock()
	cs := &CS{live: true}
	defer func() {
		cs.live = false
		m.mu.Unlock()
	}()
	fn(cs)
}

func (cs *CS) check() {
	if cs == nil || !cs.live {
		panic("irq: slot accessed outside a critical section")
	}
}

// Slot holds a value that both the handler and the foreground loop reach,
// and can only be touched inside a critical section.
type Slot[T any] struct {
	v  T
	ok bool
}

// Replace stores v and returns the previous value, if any.
func (s *Slot[T]) Replace(cs *CS, v T) (T, bool) {
	cs.check()
	old, had := s.v, s.ok
	s.v, s.ok = v, true
	return old, had
}

// Borrow returns the stored value. ok is false until Replace has been called.
func (s *Slot[T]) Borrow(cs *CS) (v T, ok bool) {
	cs.check()
	return s.v, s.ok
}

// Publish stores v in the slot inside its own critical section. It is the
// setup step between configuring the hardware and unmasking interrupts.
func Publish[T any](m *Mask, s *Slot[T], v T) {
	m.Free(func(cs *CS) {
		s.Replace(cs, v)
	})
}
