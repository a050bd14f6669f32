package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/server/responses"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// SessionEngine is the part of the engine the API drives.
type SessionEngine interface {
	Snapshot() engine.Snapshot
	Apply(ctx context.Context, kind session.Kind) (engine.Result, error)
	SetEmergencyWeek(ctx context.Context, on bool) (engine.Result, error)
	Subscribe(buffer int) (<-chan engine.Snapshot, func())
}

// SessionHandlers serves the /api/session endpoints.
type SessionHandlers struct {
	engine       SessionEngine
	errorAdapter *errors.HTTPErrorAdapter
	stream       StreamOptions
}

// NewSessionHandlers creates the session handlers.
func NewSessionHandlers(e SessionEngine, logger *slog.Logger) *SessionHandlers {
	return &SessionHandlers{
		engine:       e,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
		stream:       DefaultStreamOptions(),
	}
}

// WithStreamOptions overrides the stream heartbeat settings.
func (h *SessionHandlers) WithStreamOptions(o StreamOptions) *SessionHandlers {
	h.stream = o
	return h
}

// HandleGet returns the current snapshot.
func (h *SessionHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, h.engine.Snapshot()); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to encode session snapshot").Build())
	}
}

// HandleAction returns a handler applying one lifecycle action. An ignored
// action still answers 200 with applied=false.
func (h *SessionHandlers) HandleAction(kind session.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.engine.Apply(r.Context(), kind)
		resp := responses.ActionResponse{
			Applied: res.Applied,
			Session: res.Snapshot,
			Entry:   res.Entry,
			Commit:  string(res.Outcome),
		}
		status := http.StatusOK
		if err != nil {
			if !res.Applied {
				h.errorAdapter.WriteErrorResponse(w, r, err)
				return
			}
			payload := h.errorAdapter.FormatErrorResponse(err)
			resp.Error = &payload
			status = h.errorAdapter.StatusCodeFor(err)
		}
		if werr := writeJSON(w, status, resp); werr != nil {
			h.errorAdapter.WriteErrorResponse(w, r,
				errors.WrapError(werr, errors.CategoryInternal, "failed to encode action response").Build())
		}
	}
}

// HandleEmergencyWeek sets the emergency-week flag from {"enabled": bool}.
func (h *SessionHandlers) HandleEmergencyWeek(w http.ResponseWriter, r *http.Request) {
	var req responses.EmergencyWeekRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryValidation, "invalid request body").Build())
		return
	}
	if req.Enabled == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("missing field").
			WithContext("field", "enabled").
			Build())
		return
	}
	res, err := h.engine.SetEmergencyWeek(r.Context(), *req.Enabled)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if werr := writeJSON(w, http.StatusOK, responses.ActionResponse{Applied: res.Applied, Session: res.Snapshot}); werr != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(werr, errors.CategoryInternal, "failed to encode action response").Build())
	}
}
