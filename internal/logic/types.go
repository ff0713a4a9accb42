// Package logic contains pure business logic for seat occupancy tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"time"
)

// Status is the debounced occupancy status of a seat.
type Status string

const (
	StatusOccupied Status = "OCCUPIED"
	StatusFree     Status = "FREE"
)

// EventType represents a status transition event.
type EventType string

const (
	EventOccupied EventType = "SEAT_OCCUPIED"
	EventFree     EventType = "SEAT_FREE"
)

// Event represents a status transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Status    Status
}

// Input represents a single raw presence sample.
type Input struct {
	Present bool // true = weight/presence detected
	Time    time.Time
}

// Config holds the sensor settings. It is immutable once loaded.
type Config struct {
	PollIntervalSeconds int
	FreeTimeoutSeconds  int
	WirelessChannel     int
}

// PollInterval returns the time between raw samples.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// FreeTimeout returns how long the seat must read empty before it is free.
func (c Config) FreeTimeout() time.Duration {
	return time.Duration(c.FreeTimeoutSeconds) * time.Second
}

// ErrInvalidConfig is matched by every *InvalidConfigError via errors.Is.
var ErrInvalidConfig = errors.New("invalid config")

// InvalidConfigError reports a configuration value that must be positive.
type InvalidConfigError struct {
	Field string
	Value int
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s must be positive, got %d", e.Field, e.Value)
}

// Is reports whether target is ErrInvalidConfig.
func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Occupied int
	Free     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
