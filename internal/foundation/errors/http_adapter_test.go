package errors

import (
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: http.StatusOK},
		{name: "validation", err: ValidationError("invalid input").Build(), expected: http.StatusBadRequest},
		{name: "not found", err: NotFoundError("missing").Build(), expected: http.StatusNotFound},
		{name: "commit", err: CommitError("submission failed").Build(), expected: http.StatusBadGateway},
		{name: "persistence", err: PersistenceError("disk full").Build(), expected: http.StatusInsufficientStorage},
		{name: "daemon", err: DaemonError("stopped").Build(), expected: http.StatusServiceUnavailable},
		{name: "plain", err: stdErrors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.StatusCodeFor(tt.err); got != tt.expected {
				t.Errorf("StatusCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/api/session/stop", nil)
	rec := httptest.NewRecorder()

	err := CommitError("time entry submission failed").
		WithContext("http_status", 500).
		Build()
	adapter.WriteErrorResponse(rec, req, err)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var payload HTTPErrorResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &payload); jerr != nil {
		t.Fatalf("invalid json: %v", jerr)
	}
	if payload.Code != "commit" || payload.Error != "time entry submission failed" {
		t.Errorf("unexpected payload %+v", payload)
	}
	if payload.Retryable {
		t.Error("commit failures require user action and are not retryable")
	}
}
