package commit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// Submitter delivers one time entry.
type Submitter interface {
	Submit(ctx context.Context, entry TimeEntry, idempotencyKey string) error
}

// Client posts time entries as JSON to the configured endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

var _ Submitter = (*Client)(nil)

// NewClient creates a client. Expiry of timeout counts as a failed submission.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// Submit posts the entry. Any non-2xx answer is a commit error carrying the status.
func (c *Client) Submit(ctx context.Context, entry TimeEntry, idempotencyKey string) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode time entry").Build()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid commit endpoint").
			WithContext("endpoint", c.endpoint).
			Build()
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryCommit, "time entry submission failed").
			UserAction().
			WithContext("endpoint", c.endpoint).
			WithContext("request_id", requestID).
			Build()
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.CommitError("time entry submission failed").
			WithContext("endpoint", c.endpoint).
			WithContext("request_id", requestID).
			WithContext("http_status", resp.StatusCode).
			WithContext("response", string(bytes.TrimSpace(snippet))).
			Build()
	}
	return nil
}
