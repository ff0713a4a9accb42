// Package status provides a thread-safe status tracker for the seat-sensor daemon.
// It is written by the sampling loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/seat-sensor/internal/logic"
)

// NetworkInfo contains network state reported by the host's network helper.
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
	SeatID              string
	WirelessChannel     int
	PollIntervalSeconds int
	FreeTimeoutSeconds  int
	HeartbeatSeconds    int64
	Broker              string
	HTTPAddr            string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Status        logic.Status
	EmptySince    time.Time // zero when no empty run is in progress
	Counts        logic.EventCounts
	Samples       int64
	ReadErrors    int64
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

// EmptyFor returns how long the seat has read empty, or 0 if it is not.
func (s Snapshot) EmptyFor() time.Duration {
	if s.EmptySince.IsZero() {
		return 0
	}
	return s.Now.Sub(s.EmptySince)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the detector's view after a sample.
func (t *Tracker) Update(st logic.Status, emptySince time.Time, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Status = st
	t.snap.EmptySince = emptySince
	t.snap.Counts = counts
	t.snap.Samples++
	t.mu.Unlock()
}

// RecordReadError counts a failed sensor read.
func (t *Tracker) RecordReadError() {
	t.mu.Lock()
	t.snap.ReadErrors++
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
	s.Now = t.now()
	return s
}
