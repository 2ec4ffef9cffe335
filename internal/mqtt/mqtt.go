// Package mqtt mirrors the tester's diagnostic stream to an MQTT broker,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gate-tester/internal/gpio"
	"github.com/sweeney/gate-tester/internal/tester"
)

// Topics.
const (
	TopicResults     = "bench/gate-tester/results"
	TopicTransitions = "bench/gate-tester/transitions"
	TopicSystem      = "bench/gate-tester/system"
)

// Publisher publishes tester output to MQTT.
type Publisher interface {
	// PublishResult sends a test report. Returns error if publishing fails
	// (should not crash the process).
	PublishResult(r tester.Report) error

	// PublishTransition sends a channel verdict change.
	PublishTransition(t tester.Transition) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ResultPayload is the MQTT message for a test report.
type ResultPayload struct {
	Result ResultInner `json:"result"`
}

// ResultInner contains the report details.
type ResultInner struct {
	Timestamp string          `json:"timestamp"`
	Device    string          `json:"device"`
	Mode      string          `json:"mode"`
	Line      string          `json:"line"`
	SelfTest  *SelfTestInner  `json:"self_test,omitempty"`
	Expected  string          `json:"expected,omitempty"`
	AllPass   string          `json:"all_pass,omitempty"`
	Channels  []ChannelResult `json:"channels,omitempty"`
}

// SelfTestInner is the self-test classification.
type SelfTestInner struct {
	Observed string `json:"observed"`
	OR       bool   `json:"or"`
	AND      bool   `json:"and"`
}

// ChannelResult is one channel's outcome.
type ChannelResult struct {
	Channel  int    `json:"channel"`
	Outcome  string `json:"outcome"`
	Observed string `json:"observed,omitempty"`
}

// FormatResult creates the JSON payload for a report.
func FormatResult(r tester.Report) ([]byte, error) {
	inner := ResultInner{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Device:    r.Selection.Device.String(),
		Mode:      r.Selection.Mode.String(),
		Line:      r.Line(),
	}
	if r.SelfTest {
		inner.SelfTest = &SelfTestInner{
			Observed: r.Observed.String(),
			OR:       r.Shape.OR,
			AND:      r.Shape.AND,
		}
		return json.Marshal(ResultPayload{Result: inner})
	}

	inner.Expected = r.Expected.String()
	inner.AllPass = string(r.Outcome(0))
	for i := 1; i <= gpio.NumChannels; i++ {
		c := ChannelResult{Channel: i, Outcome: string(r.Outcome(i))}
		if r.Exercised(i) {
			c.Observed = r.Tables[i-1].String()
		}
		inner.Channels = append(inner.Channels, c)
	}
	return json.Marshal(ResultPayload{Result: inner})
}

// TransitionPayload is the MQTT message for a verdict change.
type TransitionPayload struct {
	Transition TransitionInner `json:"transition"`
}

// TransitionInner contains the transition details.
type TransitionInner struct {
	Timestamp string `json:"timestamp"`
	Channel   int    `json:"channel"`
	Event     string `json:"event"`
	Device    string `json:"device"`
}

// FormatTransition creates the JSON payload for a transition.
func FormatTransition(t tester.Transition) ([]byte, error) {
	return json.Marshal(TransitionPayload{
		Transition: TransitionInner{
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
			Channel:   t.Channel,
			Event:     string(t.Type),
			Device:    t.Selection.Device.String(),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
