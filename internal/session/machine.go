package session

import "time"

// Interval is one completed Start->Stop span.
type Interval struct {
	Start        time.Time
	End          time.Time
	GrossSeconds int64
	BreakSeconds int64
}

// NetSeconds is gross minus the breaks taken inside the interval.
func (i Interval) NetSeconds() int64 {
	return max(i.GrossSeconds-i.BreakSeconds, 0)
}

// Transition describes the effect of an applied action.
type Transition struct {
	Event Event
	// Interval is set when the action was a Stop.
	Interval *Interval
}

// Apply dispatches an action by kind.
func (s *State) Apply(kind Kind, now time.Time) (Transition, bool) {
	switch kind {
	case KindStart:
		return s.Start(now)
	case KindPause:
		return s.Pause(now)
	case KindResume:
		return s.Resume(now)
	case KindStop:
		return s.Stop(now)
	default:
		return Transition{}, false
	}
}

// Start begins an interval. Idle only.
func (s *State) Start(now time.Time) (Transition, bool) {
	if s.Status() != StatusIdle {
		return Transition{}, false
	}
	now = s.stamp(now)
	s.StartedAt = now
	s.IsPaused = false
	s.PauseStartedAt = time.Time{}
	return Transition{Event: s.append(KindStart, now)}, true
}

// Pause opens a break. Active only.
func (s *State) Pause(now time.Time) (Transition, bool) {
	if s.Status() != StatusActive {
		return Transition{}, false
	}
	now = s.stamp(now)
	s.PauseStartedAt = now
	s.IsPaused = true
	return Transition{Event: s.append(KindPause, now)}, true
}

// Resume closes the open break. Paused only.
func (s *State) Resume(now time.Time) (Transition, bool) {
	if s.Status() != StatusPaused {
		return Transition{}, false
	}
	now = s.stamp(now)
	s.closeBreak(now)
	return Transition{Event: s.append(KindResume, now)}, true
}

// Stop completes the interval from Active or Paused. An open break is folded
// in without a Resume event. Gross time, breaks included, is added to the
// accumulated work seconds.
func (s *State) Stop(now time.Time) (Transition, bool) {
	if s.Status() == StatusIdle {
		return Transition{}, false
	}
	now = s.stamp(now)
	if s.IsPaused {
		s.closeBreak(now)
	}
	start := s.StartedAt
	gross := seconds(now.Sub(start))
	ev := s.append(KindStop, now)
	s.AccumulatedWorkSeconds += gross
	s.StartedAt = time.Time{}

	iv := &Interval{
		Start:        start,
		End:          now,
		GrossSeconds: gross,
		BreakSeconds: LastIntervalBreakSeconds(s.Events),
	}
	return Transition{Event: ev, Interval: iv}, true
}

// LastIntervalBreakSeconds sums the breaks of the most recent interval in the
// log: every Pause up to the following Resume or Stop.
func LastIntervalBreakSeconds(events []Event) int64 {
	startIdx := -1
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == KindStart {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return 0
	}
	var total int64
	var pausedAt time.Time
	for _, ev := range events[startIdx+1:] {
		switch ev.Kind {
		case KindPause:
			pausedAt = ev.At
		case KindResume, KindStop:
			if !pausedAt.IsZero() {
				total += seconds(ev.At.Sub(pausedAt))
				pausedAt = time.Time{}
			}
		}
	}
	return total
}

func (s *State) closeBreak(now time.Time) {
	s.AccumulatedBreakSeconds += seconds(now.Sub(s.PauseStartedAt))
	s.PauseStartedAt = time.Time{}
	s.IsPaused = false
}

func (s *State) append(kind Kind, at time.Time) Event {
	ev := Event{Kind: kind, At: at}
	s.Events = append(s.Events, ev)
	return ev
}

// stamp truncates to whole seconds and never lets time run backwards relative
// to the last logged event, keeping the log ordered under clock skew.
func (s *State) stamp(now time.Time) time.Time {
	now = now.Truncate(time.Second)
	if n := len(s.Events); n > 0 && now.Before(s.Events[n-1].At) {
		return s.Events[n-1].At
	}
	return now
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
