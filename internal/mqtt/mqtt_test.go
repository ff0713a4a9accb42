package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/seat-sensor/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventFree,
		Status:    logic.StatusFree,
	}

	payload, err := FormatPayload(Identity{SeatID: "desk-1", Channel: 1}, event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"seat":{"timestamp":"2026-02-02T22:18:12Z","event":"SEAT_FREE","id":"desk-1","channel":1,"status":"FREE"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType  logic.EventType
		status     logic.Status
		wantEvent  string
		wantStatus string
	}{
		{logic.EventOccupied, logic.StatusOccupied, "SEAT_OCCUPIED", "OCCUPIED"},
		{logic.EventFree, logic.StatusFree, "SEAT_FREE", "FREE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			payload, err := FormatPayload(Identity{SeatID: "s", Channel: 2}, logic.Event{
				Timestamp: time.Now(),
				Type:      tt.eventType,
				Status:    tt.status,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Seat.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Seat.Event, tt.wantEvent)
			}
			if parsed.Seat.Status != tt.wantStatus {
				t.Errorf("status: got %s, want %s", parsed.Seat.Status, tt.wantStatus)
			}
			if parsed.Seat.Channel != 2 {
				t.Errorf("channel: got %d, want 2", parsed.Seat.Channel)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 8, 0, 0, 0, loc),
		Type:      logic.EventOccupied,
		Status:    logic.StatusOccupied,
	}

	payload, err := FormatPayload(Identity{SeatID: "s", Channel: 1}, event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Seat.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Seat.Timestamp)
	}
}

func TestTopicsPerChannel(t *testing.T) {
	tests := []struct {
		id         Identity
		wantEvents string
		wantSystem string
	}{
		{Identity{SeatID: "desk-1", Channel: 1}, "seats/ch1/desk-1/events", "seats/ch1/desk-1/system"},
		{Identity{SeatID: "desk-1", Channel: 11}, "seats/ch11/desk-1/events", "seats/ch11/desk-1/system"},
		{Identity{SeatID: "lab-a", Channel: 4}, "seats/ch4/lab-a/events", "seats/ch4/lab-a/system"},
	}

	for _, tt := range tests {
		if got := tt.id.EventsTopic(); got != tt.wantEvents {
			t.Errorf("EventsTopic: got %q, want %q", got, tt.wantEvents)
		}
		if got := tt.id.SystemTopic(); got != tt.wantSystem {
			t.Errorf("SystemTopic: got %q, want %q", got, tt.wantSystem)
		}
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
		Type:      logic.EventFree,
		Status:    logic.StatusFree,
	}
	if err := f.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Type != logic.EventFree {
		t.Errorf("unexpected event type: %s", f.Events[0].Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}

	var parsed Payload
	if err := json.Unmarshal(f.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Seat.ID != "test-seat" {
		t.Errorf("unexpected seat id: %s", parsed.Seat.ID)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	err := f.Publish(logic.Event{Type: logic.EventOccupied, Status: logic.StatusOccupied})
	if err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("expected 0 events recorded on error, got %d", len(f.Events))
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGINT",
		Retained:  true,
	}
	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag to be recorded")
	}
	if len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherPublishSystemError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystemError = errors.New("simulated error")

	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected error")
	}
	if len(f.SystemEvents) != 0 {
		t.Errorf("expected 0 system events recorded on error, got %d", len(f.SystemEvents))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(logic.Event{Type: logic.EventOccupied, Status: logic.StatusOccupied})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 {
		t.Error("expected events cleared after reset")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("expected system events cleared after reset")
	}
	if f.Closed {
		t.Error("expected Closed=false after reset")
	}
	if f.IsConnected() {
		t.Error("expected Connected=false after reset")
	}
}
