package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/server/responses"
	"git.home.luguber.info/inful/worktime/internal/session"
)

const maxResponseBytes = 1 << 20

// APIClient talks to a running daemon's HTTP API.
type APIClient struct {
	base string
	http *http.Client
}

// NewAPIClient creates a client for the daemon listening on address.
func NewAPIClient(address string, timeout time.Duration) *APIClient {
	return &APIClient{base: baseURL(address), http: &http.Client{Timeout: timeout}}
}

// Snapshot fetches the current session.
func (c *APIClient) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &snap)
	return snap, err
}

// Action applies a lifecycle action. A failed commit returns both the
// response, whose interval was recorded, and the error.
func (c *APIClient) Action(ctx context.Context, kind session.Kind) (responses.ActionResponse, error) {
	var resp responses.ActionResponse
	err := c.do(ctx, http.MethodPost, "/api/session/"+string(kind), nil, &resp)
	return resp, err
}

// SetEmergencyWeek sets the flag for the current day.
func (c *APIClient) SetEmergencyWeek(ctx context.Context, on bool) (responses.ActionResponse, error) {
	var resp responses.ActionResponse
	err := c.do(ctx, http.MethodPut, "/api/session/emergency-week", responses.EmergencyWeekRequest{Enabled: &on}, &resp)
	return resp, err
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode request").Build()
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid daemon address").
			WithContext("url", c.base).
			Build()
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "worktime daemon unreachable").
			WithContext("url", c.base).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to read daemon response").Build()
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "unexpected daemon response").
			WithContext("http_status", resp.StatusCode).
			Build()
	}
	return nil
}

// decodeAPIError rebuilds a classified error from either a plain error body
// or an action response carrying one.
func decodeAPIError(status int, data []byte) error {
	var envelope map[string]json.RawMessage
	var payload errors.HTTPErrorResponse
	if json.Unmarshal(data, &envelope) == nil {
		if raw, ok := envelope["error"]; ok && len(raw) > 0 && raw[0] == '{' {
			_ = json.Unmarshal(raw, &payload)
		} else {
			_ = json.Unmarshal(data, &payload)
		}
	}
	if payload.Error == "" {
		payload.Error = http.StatusText(status)
	}
	category := errors.ErrorCategory(payload.Code)
	if category == "" {
		category = errors.CategoryDaemon
	}
	b := errors.NewError(category, payload.Error).WithContext("http_status", status)
	for k, v := range payload.Details {
		b = b.WithContext(k, v)
	}
	if payload.Retryable {
		b = b.Retryable()
	}
	return b.Build()
}
