package logic

import "time"

// State is the debounce state for one seat. It is a value type: OnSample
// returns a new State and never mutates the receiver.
type State struct {
	// Current debounced status
	Status Status
	// Time the current run of empty samples started; only meaningful when
	// EmptySet is true
	EmptySince time.Time
	EmptySet   bool

	freeTimeout time.Duration
}

// Initialize validates cfg and returns the initial state. The seat is assumed
// occupied until an empty run proves otherwise.
func Initialize(cfg Config) (State, error) {
	if cfg.PollIntervalSeconds <= 0 {
		return State{}, &InvalidConfigError{Field: "pollIntervalSeconds", Value: cfg.PollIntervalSeconds}
	}
	if cfg.FreeTimeoutSeconds <= 0 {
		return State{}, &InvalidConfigError{Field: "freeTimeoutSeconds", Value: cfg.FreeTimeoutSeconds}
	}
	return State{
		Status:      StatusOccupied,
		freeTimeout: cfg.FreeTimeout(),
	}, nil
}

// FreeTimeout returns the timeout the state was initialized with.
func (s State) FreeTimeout() time.Duration {
	return s.freeTimeout
}

// OnSample applies one raw sample taken at now. It reports whether the
// debounced status changed.
func (s State) OnSample(present bool, now time.Time) (State, bool) {
	prev := s.Status

	if present {
		s.Status = StatusOccupied
		s.EmptySince = time.Time{}
		s.EmptySet = false
		return s, prev == StatusFree
	}

	if !s.EmptySet {
		// First empty sample starts the timer; never decides on its own.
		s.EmptySince = now
		s.EmptySet = true
		return s, false
	}

	if now.Sub(s.EmptySince) >= s.freeTimeout {
		s.Status = StatusFree
		return s, prev == StatusOccupied
	}

	return s, false
}
