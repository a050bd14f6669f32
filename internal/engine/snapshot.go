package engine

import (
	"time"

	"git.home.luguber.info/inful/worktime/internal/session"
	"git.home.luguber.info/inful/worktime/internal/statistics"
)

// NoticeKind identifies a user-visible problem.
type NoticeKind string

const (
	NoticePersistence NoticeKind = "persistence_failure"
	NoticeCommit      NoticeKind = "commit_failure"
)

// Notice is a problem the user should see on the dashboard.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Since   time.Time  `json:"since"`
}

// Snapshot is the display view of the session at one instant.
type Snapshot struct {
	DayKey            string                  `json:"day_key"`
	Status            string                  `json:"status"`
	Elapsed           string                  `json:"elapsed"`
	NetWorkedSeconds  int64                   `json:"net_worked_seconds"`
	NetBreakSeconds   int64                   `json:"net_break_seconds"`
	NetWorked         string                  `json:"net_worked"`
	NetBreak          string                  `json:"net_break"`
	RemainingSeconds  int64                   `json:"remaining_seconds"`
	ProjectedEndOfDay string                  `json:"projected_end_of_day"`
	WarningLevel      statistics.WarningLevel `json:"warning_level"`
	EmergencyWeek     bool                    `json:"emergency_week"`
	Notice            *Notice                 `json:"notice,omitempty"`
	At                time.Time               `json:"at"`
}

// Active reports whether the clock is running.
func (s Snapshot) Active() bool {
	return s.Status == session.StatusActive.Label()
}

func buildSnapshot(st session.State, now time.Time, t statistics.Targets, loc *time.Location, notice *Notice) Snapshot {
	stats := statistics.Compute(st, now, t, loc)
	snap := Snapshot{
		DayKey:            st.DayKey.String(),
		Status:            st.Status().Label(),
		Elapsed:           statistics.FormatElapsed(stats.ElapsedSeconds),
		NetWorkedSeconds:  stats.NetWorkedSeconds,
		NetBreakSeconds:   stats.BreakSeconds,
		NetWorked:         statistics.FormatHM(stats.NetWorkedSeconds),
		NetBreak:          statistics.FormatHM(stats.BreakSeconds),
		RemainingSeconds:  stats.RemainingSeconds,
		ProjectedEndOfDay: stats.ProjectedEndOfDay,
		WarningLevel:      stats.WarningLevel,
		EmergencyWeek:     st.EmergencyWeek,
		At:                now,
	}
	if notice != nil {
		n := *notice
		snap.Notice = &n
	}
	return snap
}

// Subscribe registers a snapshot observer. Sends never block: a subscriber
// that falls behind misses snapshots. The returned func unsubscribes and
// closes the channel.
func (e *Engine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	e.subsMu.Lock()
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	unsubscribe := func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (e *Engine) publish(snap Snapshot) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
}
