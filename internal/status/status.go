// Package status provides a thread-safe status tracker for the gate tester.
// It is written by the foreground loop and read by HTTP handlers and the
// MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gate-tester/internal/tester"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	IntervalMs  int64
	SettleUs    int64
	WatchdogMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Report        tester.Report
	HasReport     bool
	Counts        tester.Counts
	Interrupts    uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest report and counters.
// Called from the foreground loop after every iteration.
func (t *Tracker) Update(r tester.Report, counts tester.Counts) {
	t.mu.Lock()
	t.snap.Report = r
	t.snap.HasReport = true
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetInterrupts sets the number of serviced button interrupts.
func (t *Tracker) SetInterrupts(n uint64) {
	t.mu.Lock()
	t.snap.Interrupts = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
