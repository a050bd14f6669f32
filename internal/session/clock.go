package session

import "time"

// Reading is the live view of a state at one instant.
type Reading struct {
	// ElapsedSeconds is the current interval's gross time; frozen while paused.
	ElapsedSeconds int64
	// NetWorkedSeconds is accumulated work plus elapsed minus folded breaks.
	NetWorkedSeconds int64
	// BreakSeconds includes the in-progress pause while paused.
	BreakSeconds int64
}

// Elapsed returns the gross seconds of the running interval at now.
func (s State) Elapsed(now time.Time) int64 {
	switch s.Status() {
	case StatusActive:
		return seconds(now.Sub(s.StartedAt))
	case StatusPaused:
		return seconds(s.PauseStartedAt.Sub(s.StartedAt))
	default:
		return 0
	}
}

// Read derives the live figures at now. Net is non-decreasing while Active and
// constant while Paused or Idle.
func (s State) Read(now time.Time) Reading {
	now = now.Truncate(time.Second)
	elapsed := s.Elapsed(now)
	breaks := s.AccumulatedBreakSeconds
	if s.Status() == StatusPaused {
		breaks += seconds(now.Sub(s.PauseStartedAt))
	}
	return Reading{
		ElapsedSeconds:   elapsed,
		NetWorkedSeconds: max(s.AccumulatedWorkSeconds+elapsed-s.AccumulatedBreakSeconds, 0),
		BreakSeconds:     breaks,
	}
}
