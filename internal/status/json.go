package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Ready         bool          `json:"ready"`
	Device        string        `json:"device"`
	Mode          string        `json:"mode"`
	AllPass       string        `json:"all_pass"`
	Channels      []ChannelJSON `json:"channels"`
	SelfTest      *SelfTestJSON `json:"self_test,omitempty"`
	Interrupts    uint64        `json:"interrupts"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is one gate socket's latest outcome.
type ChannelJSON struct {
	Channel  int    `json:"channel"`
	Outcome  string `json:"outcome"`
	Observed string `json:"observed,omitempty"`
}

// SelfTestJSON is the self-test classification.
type SelfTestJSON struct {
	Observed string `json:"observed"`
	OR       bool   `json:"or"`
	AND      bool   `json:"and"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the counters.
type CountsJSON struct {
	Iterations int   `json:"iterations"`
	Selections int   `json:"selections"`
	Passes     []int `json:"passes"`
	Failures   []int `json:"failures"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	IntervalMs  int64  `json:"interval_ms"`
	SettleUs    int64  `json:"settle_us"`
	WatchdogMs  int64  `json:"watchdog_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Report
	inner := StatusInner{
		Ready:         snap.HasReport,
		Device:        "UNKNOWN",
		Mode:          "UNKNOWN",
		AllPass:       "UNKNOWN",
		Interrupts:    snap.Interrupts,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Iterations: snap.Counts.Iterations,
			Selections: snap.Counts.Selections,
			Passes:     snap.Counts.Passes[:],
			Failures:   snap.Counts.Failures[:],
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			IntervalMs:  snap.Config.IntervalMs,
			SettleUs:    snap.Config.SettleUs,
			WatchdogMs:  snap.Config.WatchdogMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if !snap.HasReport {
		return inner
	}

	inner.Device = r.Selection.Device.String()
	inner.Mode = r.Selection.Mode.String()
	if r.SelfTest {
		inner.AllPass = "NOT_TESTED"
		inner.SelfTest = &SelfTestJSON{
			Observed: r.Observed.String(),
			OR:       r.Shape.OR,
			AND:      r.Shape.AND,
		}
	} else {
		inner.AllPass = string(r.Outcome(0))
	}

	for i := 1; i <= gpio.NumChannels; i++ {
		c := ChannelJSON{Channel: i, Outcome: string(r.Outcome(i))}
		if r.Exercised(i) {
			c.Observed = r.Tables[i-1].String()
		}
		inner.Channels = append(inner.Channels, c)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
