// Package watchdog provides a software watchdog: unless Feed is called
// within the interval, the expiry function runs once.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog is a resettable timer.
type Watchdog struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	expired  bool
	stopped  bool
}

// New starts a watchdog. onExpire runs on its own goroutine if the
// interval passes without a Feed.
func New(interval time.Duration, onExpire func()) *Watchdog {
	w := &Watchdog{interval: interval}
	w.timer = time.AfterFunc(interval, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.expired = true
		w.mu.Unlock()
		onExpire()
	})
	return w
}

// Feed restarts the countdown. Feeding an expired or stopped watchdog has
// no effect.
func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired || w.stopped {
		return
	}
	w.timer.Reset(w.interval)
}

// Stop disarms the watchdog for a clean shutdown.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.timer.Stop()
}

// Expired reports whether the watchdog has fired.
func (w *Watchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Interval returns the configured interval.
func (w *Watchdog) Interval() time.Duration {
	return w.interval
}
