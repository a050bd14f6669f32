package commit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

func sampleEntry() TimeEntry {
	return TimeEntry{
		Date:      "2025-03-10",
		StartTime: "09:00:00",
		EndTime:   "11:00:00",
		Duration:  "2:00",
		Note:      "Recorded by worktime, no breaks",
	}
}

func TestClientSubmitSendsEntry(t *testing.T) {
	var (
		got     TimeEntry
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	require.NoError(t, c.Submit(context.Background(), sampleEntry(), "interval-42"))

	require.Equal(t, sampleEntry(), got)
	require.Equal(t, "application/json", headers.Get("Content-Type"))
	require.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Equal(t, "interval-42", headers.Get("Idempotency-Key"))
	_, err := uuid.Parse(headers.Get("X-Request-ID"))
	require.NoError(t, err)
}

func TestClientSubmitWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, "", 0).Submit(context.Background(), sampleEntry(), ""))
}

func TestClientSubmitNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", time.Second).Submit(context.Background(), sampleEntry(), "k")
	require.Error(t, err)
	require.True(t, stderrors.Is(err, ErrSubmissionFailed))
	require.True(t, errors.HasCategory(err, errors.CategoryCommit))

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	status, _ := ce.Context().Get("http_status")
	require.Equal(t, http.StatusUnprocessableEntity, status)
	body, _ := ce.Context().GetString("response")
	require.Equal(t, "nope", body)
}

func TestClientSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	err := NewClient(srv.URL, "", 50*time.Millisecond).Submit(context.Background(), sampleEntry(), "k")
	require.Error(t, err)
	require.True(t, stderrors.Is(err, ErrSubmissionFailed))
}

func TestClientSubmitUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url, "", time.Second).Submit(context.Background(), sampleEntry(), "k")
	require.True(t, stderrors.Is(err, ErrSubmissionFailed))
}
