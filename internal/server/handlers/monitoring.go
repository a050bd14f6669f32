package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/server/responses"
	"git.home.luguber.info/inful/worktime/internal/version"
)

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	engine       SessionEngine
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(e SessionEngine, startTime time.Time, logger *slog.Logger) *MonitoringHandlers {
	return &MonitoringHandlers{
		engine:       e,
		startTime:    startTime,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleHealthCheck reports liveness. An open persistence notice degrades the status.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	health := responses.HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		Version:       version.Version,
		Uptime:        time.Since(h.startTime).Seconds(),
		SessionStatus: snap.Status,
		DayKey:        snap.DayKey,
	}
	if snap.Notice != nil {
		health.Notice = string(snap.Notice.Kind)
		if snap.Notice.Kind == engine.NoticePersistence {
			health.Status = "degraded"
		}
	}
	if err := writeJSON(w, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to encode health response").Build())
	}
}
