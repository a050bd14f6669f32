// Package statistics derives display figures from a session state.
package statistics

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/worktime/internal/session"
)

// Exceeded is shown instead of a projected end once the target is reached.
const Exceeded = "exceeded"

// WarningLevel grades net worked time against the daily target.
type WarningLevel string

const (
	WarningNone        WarningLevel = "none"
	WarningApproaching WarningLevel = "approaching"
	WarningExceeded    WarningLevel = "exceeded"
)

// Ordinal maps the level to 0, 1 or 2 for gauges.
func (w WarningLevel) Ordinal() int {
	switch w {
	case WarningApproaching:
		return 1
	case WarningExceeded:
		return 2
	default:
		return 0
	}
}

// Targets configures the daily goal.
type Targets struct {
	Daily       time.Duration
	WarningLead time.Duration
}

// Stats is the derived, never stored, view of a state.
type Stats struct {
	ElapsedSeconds    int64
	NetWorkedSeconds  int64
	BreakSeconds      int64
	RemainingSeconds  int64
	ProjectedEndOfDay string
	WarningLevel      WarningLevel
}

// Compute derives statistics for s at now. The projection is formatted in loc.
func Compute(s session.State, now time.Time, t Targets, loc *time.Location) Stats {
	r := s.Read(now)
	return FromReading(r, now, t, loc)
}

// FromReading derives statistics from an already taken reading.
func FromReading(r session.Reading, now time.Time, t Targets, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	target := int64(t.Daily / time.Second)
	lead := int64(t.WarningLead / time.Second)
	net := r.NetWorkedSeconds

	st := Stats{
		ElapsedSeconds:   r.ElapsedSeconds,
		NetWorkedSeconds: net,
		BreakSeconds:     r.BreakSeconds,
		RemainingSeconds: max(target-net, 0),
		WarningLevel:     Level(net, target, lead),
	}
	if net >= target {
		st.ProjectedEndOfDay = Exceeded
	} else {
		end := now.Truncate(time.Second).Add(time.Duration(target-net) * time.Second)
		st.ProjectedEndOfDay = end.In(loc).Format("15:04")
	}
	return st
}

// Level grades net seconds against target and lead, all in seconds.
func Level(net, target, lead int64) WarningLevel {
	switch {
	case net >= target:
		return WarningExceeded
	case net >= target-lead:
		return WarningApproaching
	default:
		return WarningNone
	}
}

// FormatHM floors seconds to whole minutes and renders H:MM.
func FormatHM(seconds int64) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%d:%02d", seconds/3600, seconds%3600/60)
}

// FormatElapsed renders H:MM:SSh.
func FormatElapsed(seconds int64) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%d:%02d:%02dh", seconds/3600, seconds%3600/60, seconds%60)
}
