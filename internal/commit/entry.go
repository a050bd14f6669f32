// Package commit turns completed intervals into time entries and submits
// them to the time entry API.
package commit

import (
	"fmt"
	"strconv"
	"time"

	"git.home.luguber.info/inful/worktime/internal/session"
	"git.home.luguber.info/inful/worktime/internal/statistics"
)

// TimeEntry is the payload accepted by the time entry creation endpoint.
type TimeEntry struct {
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Duration      string `json:"duration"`
	EmergencyWeek bool   `json:"emergency_week"`
	Note          string `json:"note"`
	WorkerID      string `json:"worker_id,omitempty"`
}

// NewTimeEntry packages a completed interval. Duration is the interval's net
// work, floored to whole minutes.
func NewTimeEntry(iv session.Interval, emergencyWeek bool, workerID string, loc *time.Location) TimeEntry {
	if loc == nil {
		loc = time.Local
	}
	start := iv.Start.In(loc)
	end := iv.End.In(loc)
	return TimeEntry{
		Date:          start.Format(time.DateOnly),
		StartTime:     start.Format(time.TimeOnly),
		EndTime:       end.Format(time.TimeOnly),
		Duration:      statistics.FormatHM(iv.NetSeconds()),
		EmergencyWeek: emergencyWeek,
		Note:          autoNote(iv),
		WorkerID:      workerID,
	}
}

func autoNote(iv session.Interval) string {
	if iv.BreakSeconds == 0 {
		return "Recorded by worktime, no breaks"
	}
	return fmt.Sprintf("Recorded by worktime, breaks %s", statistics.FormatHM(iv.BreakSeconds))
}

// IdempotencyKey identifies an interval by its start instant.
func IdempotencyKey(intervalStart time.Time) string {
	return "interval-" + strconv.FormatInt(intervalStart.Unix(), 10)
}
