package session

import (
	"slices"
	"time"
)

// Status is the state machine position derived from a State.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Label is the display form: Ready, Active or Paused.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusPaused:
		return "Paused"
	default:
		return "Ready"
	}
}

// State is the authoritative session state for one day. Zero times mean unset.
type State struct {
	DayKey                  DayKey
	StartedAt               time.Time
	AccumulatedWorkSeconds  int64
	AccumulatedBreakSeconds int64
	IsPaused                bool
	PauseStartedAt          time.Time
	EmergencyWeek           bool
	Events                  []Event
}

// NewState returns the all-zero Idle state for a day.
func NewState(day DayKey, emergencyWeek bool) State {
	return State{DayKey: day, EmergencyWeek: emergencyWeek}
}

// Status derives the state machine position.
func (s State) Status() Status {
	switch {
	case s.StartedAt.IsZero():
		return StatusIdle
	case s.IsPaused:
		return StatusPaused
	default:
		return StatusActive
	}
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Events = slices.Clone(s.Events)
	return s
}

// IsZero reports whether nothing has happened on this day yet.
func (s State) IsZero() bool {
	return s.StartedAt.IsZero() && s.AccumulatedWorkSeconds == 0 &&
		s.AccumulatedBreakSeconds == 0 && !s.IsPaused && len(s.Events) == 0
}
