// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/seat-sensor/internal/logic"
)

// TopicRoot is the prefix shared by every seat sensor topic.
const TopicRoot = "seats"

// Identity names the seat and the wireless channel it reports on. Sensors on
// different channels never share a topic namespace.
type Identity struct {
	SeatID  string
	Channel int
}

// EventsTopic is the topic for occupancy events.
func (id Identity) EventsTopic() string {
	return fmt.Sprintf("%s/ch%d/%s/events", TopicRoot, id.Channel, id.SeatID)
}

// SystemTopic is the topic for system lifecycle events.
func (id Identity) SystemTopic() string {
	return fmt.Sprintf("%s/ch%d/%s/system", TopicRoot, id.Channel, id.SeatID)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an occupancy event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
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

// Payload represents the MQTT message payload structure.
type Payload struct {
	Seat SeatPayload `json:"seat"`
}

// SeatPayload contains the occupancy event details.
type SeatPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	ID        string `json:"id"`
	Channel   int    `json:"channel"`
	Status    string `json:"status"`
}

// FormatPayload creates the JSON payload for an occupancy event.
func FormatPayload(id Identity, event logic.Event) ([]byte, error) {
	payload := Payload{
		Seat: SeatPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			ID:        id.SeatID,
			Channel:   id.Channel,
			Status:    string(event.Status),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
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
