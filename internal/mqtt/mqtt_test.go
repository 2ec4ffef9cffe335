package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gate-tester/internal/selector"
	"github.com/sweeney/gate-tester/internal/tester"
	"github.com/sweeney/gate-tester/internal/truth"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func allChannelsReport() tester.Report {
	return tester.Report{
		Timestamp: ts,
		Selection: selector.Snapshot{Device: selector.DeviceAND, Mode: selector.ModeAll},
		Expected:  truth.AND,
		Result:    tester.Result{false, true, false, true, true},
		Tested:    tester.Result{true, true, true, true, true},
		Tables:    [4]truth.Table{truth.AND, truth.OR, truth.AND, truth.AND},
	}
}

func parseResult(t *testing.T, payload []byte) ResultInner {
	t.Helper()
	var parsed ResultPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return parsed.Result
}

func TestFormatResultAllChannels(t *testing.T) {
	payload, err := FormatResult(allChannelsReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := parseResult(t, payload)
	if got.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", got.Timestamp)
	}
	if got.Device != "AND" || got.Mode != "ALL" {
		t.Errorf("selection: got %s/%s, want AND/ALL", got.Device, got.Mode)
	}
	if got.Expected != "0001" {
		t.Errorf("expected: got %s, want 0001", got.Expected)
	}
	if got.AllPass != "FAIL" {
		t.Errorf("all_pass: got %s, want FAIL", got.AllPass)
	}
	if got.Line != "test result [false true false true true]" {
		t.Errorf("line: got %q", got.Line)
	}
	if got.SelfTest != nil {
		t.Error("self_test should be omitted outside self-test")
	}
	if len(got.Channels) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(got.Channels))
	}
	if c := got.Channels[1]; c.Channel != 2 || c.Outcome != "FAIL" || c.Observed != "0111" {
		t.Errorf("channel 2: got %+v", c)
	}
}

func TestFormatResultSingleChannelMarksOthersUntested(t *testing.T) {
	r := tester.Report{
		Timestamp: ts,
		Selection: selector.Snapshot{Device: selector.DeviceOR, Mode: 2},
		Expected:  truth.OR,
		Result:    tester.Result{false, false, true, false, false},
		Tested:    tester.Result{false, false, true, false, false},
		Tables:    [4]truth.Table{{}, truth.OR, {}, {}},
	}

	payload, err := FormatResult(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := parseResult(t, payload)

	if got.AllPass != "NOT_TESTED" {
		t.Errorf("all_pass: got %s, want NOT_TESTED", got.AllPass)
	}
	want := []string{"NOT_TESTED", "PASS", "NOT_TESTED", "NOT_TESTED"}
	for i, c := range got.Channels {
		if c.Outcome != want[i] {
			t.Errorf("channel %d: got %s, want %s", c.Channel, c.Outcome, want[i])
		}
		if c.Outcome == "NOT_TESTED" && c.Observed != "" {
			t.Errorf("channel %d: untested channel should omit observed, got %q", c.Channel, c.Observed)
		}
	}
	if got.Line != "test result channel 2: true" {
		t.Errorf("line: got %q", got.Line)
	}
}

func TestFormatResultSelfTest(t *testing.T) {
	r := tester.Report{
		Timestamp: ts,
		Selection: selector.Snapshot{Device: selector.DeviceSelfTest, Mode: 3},
		SelfTest:  true,
		Observed:  truth.OR,
		Shape:     truth.Classify(truth.OR),
	}

	payload, err := FormatResult(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"result":{"timestamp":"2026-02-02T22:18:12Z","device":"SELF_TEST","mode":"CHANNEL_3",` +
		`"line":"self-test: OR gate: true | AND gate: false","self_test":{"observed":"0111","or":true,"and":false}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatResultTimezoneConversion(t *testing.T) {
	r := allChannelsReport()
	r.Timestamp = time.Date(2026, 2, 2, 23, 18, 12, 0, time.FixedZone("CET", 3600))

	payload, err := FormatResult(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := parseResult(t, payload); got.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", got.Timestamp)
	}
}

func TestFormatTransitionExactJSON(t *testing.T) {
	tr := tester.Transition{
		Timestamp: ts,
		Channel:   3,
		Type:      tester.TransitionFail,
		Selection: selector.Snapshot{Device: selector.DeviceOR},
	}

	payload, err := FormatTransition(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"transition":{"timestamp":"2026-02-02T22:18:12Z","channel":3,"event":"FAIL","device":"OR"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestTopics(t *testing.T) {
	tests := map[string]string{
		TopicResults:     "bench/gate-tester/results",
		TopicTransitions: "bench/gate-tester/transitions",
		TopicSystem:      "bench/gate-tester/system",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("unexpected topic: got %s, want %s", got, want)
		}
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "RECONNECTED"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishResult(allChannelsReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := tester.Transition{Timestamp: ts, Channel: 1, Type: tester.TransitionPass}
	if err := f.PublishTransition(tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(f.Results))
	}
	if len(f.Transitions) != 1 || f.Transitions[0].Channel != 1 {
		t.Fatalf("unexpected transitions: %+v", f.Transitions)
	}
	if len(f.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.PublishResult(allChannelsReport()); err == nil {
		t.Error("expected error from PublishResult")
	}
	if err := f.PublishTransition(tester.Transition{}); err == nil {
		t.Error("expected error from PublishTransition")
	}
	if len(f.Results) != 0 || len(f.Transitions) != 0 {
		t.Error("expected nothing recorded on error")
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	event := SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}
	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Fatalf("unexpected system events: %+v", f.SystemEvents)
	}
	if len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}

	f.PublishSystemError = errors.New("simulated error")
	if err := f.PublishSystem(event); err == nil {
		t.Error("expected error")
	}
	if len(f.SystemEvents) != 1 {
		t.Errorf("expected no new event on error, got %d", len(f.SystemEvents))
	}
}

func TestFakePublisherResetAndClose(t *testing.T) {
	f := NewFakePublisher()
	f.PublishResult(allChannelsReport())
	f.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP"})
	f.Connected = true
	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()

	if len(f.Results) != 0 || len(f.Payloads) != 0 {
		t.Error("results should be cleared")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed || f.IsConnected() {
		t.Error("flags should be reset")
	}

	if err := f.PublishResult(allChannelsReport()); err != nil {
		t.Fatalf("publish after reset: %v", err)
	}
	if len(f.Results) != 1 {
		t.Errorf("expected 1 result after reset, got %d", len(f.Results))
	}
}
