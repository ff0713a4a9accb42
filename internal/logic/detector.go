package logic

import "time"

// Detector drives a State from a sample stream and turns status changes into
// events. It is owned by a single goroutine.
type Detector struct {
	state         State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector for cfg. The startTime is used for
// calculating uptime in heartbeat events.
func NewDetector(cfg Config, startTime time.Time) (*Detector, error) {
	state, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}
	return &Detector{
		state:         state,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}, nil
}

// Process takes a new input sample and returns any events that should be emitted.
func (d *Detector) Process(input Input) []Event {
	next, changed := d.state.OnSample(input.Present, input.Time)
	d.state = next
	if !changed {
		return nil
	}

	event := Event{
		Timestamp: input.Time,
		Status:    next.Status,
	}
	switch next.Status {
	case StatusOccupied:
		event.Type = EventOccupied
		d.eventCounts.Occupied++
	case StatusFree:
		event.Type = EventFree
		d.eventCounts.Free++
	}
	return []Event{event}
}

// CurrentStatus returns the debounced status.
func (d *Detector) CurrentStatus() Status {
	return d.state.Status
}

// EmptySince returns when the current empty run started, if one is in progress.
func (d *Detector) EmptySince() (time.Time, bool) {
	return d.state.EmptySince, d.state.EmptySet
}

// EventCountsSnapshot returns a copy of the event counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
