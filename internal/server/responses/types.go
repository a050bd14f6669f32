// Package responses defines the JSON bodies of the worktime HTTP API.
package responses

import (
	"time"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// ActionResponse is returned by the lifecycle endpoints.
type ActionResponse struct {
	Applied bool              `json:"applied"`
	Session engine.Snapshot   `json:"session"`
	Entry   *commit.TimeEntry `json:"entry,omitempty"`
	Commit  string            `json:"commit,omitempty"`
	// Error is set when the interval was stopped but its entry was not saved.
	Error *errors.HTTPErrorResponse `json:"error,omitempty"`
}

// EmergencyWeekRequest is the body of PUT /api/session/emergency-week.
type EmergencyWeekRequest struct {
	Enabled *bool `json:"enabled"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	Uptime        float64   `json:"uptime"`
	SessionStatus string    `json:"session_status"`
	DayKey        string    `json:"day_key"`
	Notice        string    `json:"notice,omitempty"`
}
