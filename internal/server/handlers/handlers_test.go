package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/server/responses"
	"git.home.luguber.info/inful/worktime/internal/session"
)

type fakeEngine struct {
	mu        sync.Mutex
	snap      engine.Snapshot
	result    engine.Result
	err       error
	applied   []session.Kind
	emergency []bool
	ch        chan engine.Snapshot
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		snap: engine.Snapshot{DayKey: "2025-03-10", Status: "Ready", Elapsed: "0:00:00h", NetWorked: "0:00", NetBreak: "0:00"},
		ch:   make(chan engine.Snapshot, 4),
	}
}

func (f *fakeEngine) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) Apply(_ context.Context, kind session.Kind) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, kind)
	return f.result, f.err
}

func (f *fakeEngine) SetEmergencyWeek(_ context.Context, on bool) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergency = append(f.emergency, on)
	snap := f.snap
	snap.EmergencyWeek = on
	return engine.Result{Applied: true, Snapshot: snap}, nil
}

func (f *fakeEngine) Subscribe(int) (<-chan engine.Snapshot, func()) {
	return f.ch, func() {}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleGet(t *testing.T) {
	f := newFakeEngine()
	h := NewSessionHandlers(f, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "Ready", snap.Status)
	require.Equal(t, "2025-03-10", snap.DayKey)
}

func TestHandleActionApplied(t *testing.T) {
	f := newFakeEngine()
	f.result = engine.Result{Applied: true, Snapshot: engine.Snapshot{Status: "Active"}}
	h := NewSessionHandlers(f, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleAction(session.KindStart)(rec, httptest.NewRequest(http.MethodPost, "/api/session/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []session.Kind{session.KindStart}, f.applied)

	var resp responses.ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Applied)
	require.Equal(t, "Active", resp.Session.Status)
	require.Nil(t, resp.Error)
}

func TestHandleActionIgnored(t *testing.T) {
	f := newFakeEngine()
	f.result = engine.Result{Snapshot: f.snap}
	h := NewSessionHandlers(f, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleAction(session.KindPause)(rec, httptest.NewRequest(http.MethodPost, "/api/session/pause", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp responses.ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Applied)
}

func TestHandleActionCommitFailure(t *testing.T) {
	f := newFakeEngine()
	entry := commit.TimeEntry{Date: "2025-03-10", Duration: "1:00"}
	f.result = engine.Result{
		Applied:  true,
		Snapshot: engine.Snapshot{Status: "Ready", Notice: &engine.Notice{Kind: engine.NoticeCommit}},
		Entry:    &entry,
		Outcome:  metrics.CommitFailed,
	}
	f.err = commit.ErrSubmissionFailed.WithContext("http_status", 500)
	h := NewSessionHandlers(f, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleAction(session.KindStop)(rec, httptest.NewRequest(http.MethodPost, "/api/session/stop", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp responses.ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Applied)
	require.Equal(t, "failed", resp.Commit)
	require.Equal(t, "1:00", resp.Entry.Duration)
	require.NotNil(t, resp.Error)
	require.Equal(t, "commit", resp.Error.Code)
	require.Equal(t, engine.NoticeCommit, resp.Session.Notice.Kind)
}

func TestHandleEmergencyWeek(t *testing.T) {
	f := newFakeEngine()
	h := NewSessionHandlers(f, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleEmergencyWeek(rec, httptest.NewRequest(http.MethodPut, "/api/session/emergency-week", strings.NewReader(`{"enabled":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []bool{true}, f.emergency)

	var resp responses.ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Session.EmergencyWeek)
}

func TestHandleEmergencyWeekRejectsBadBodies(t *testing.T) {
	f := newFakeEngine()
	h := NewSessionHandlers(f, quietLogger())

	for _, body := range []string{`{`, `{}`, `{"enabled":"yes"}`} {
		rec := httptest.NewRecorder()
		h.HandleEmergencyWeek(rec, httptest.NewRequest(http.MethodPut, "/api/session/emergency-week", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	require.Empty(t, f.emergency)
}

func TestHandleStream(t *testing.T) {
	f := newFakeEngine()
	h := NewSessionHandlers(f, quietLogger()).WithStreamOptions(StreamOptions{Buffer: 4, Heartbeat: time.Hour})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleStream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	require.Equal(t, "Ready", first.Status)

	f.ch <- engine.Snapshot{Status: "Active", NetWorkedSeconds: 7}
	second := readEvent(t, reader)
	require.Equal(t, "Active", second.Status)
	require.Equal(t, int64(7), second.NetWorkedSeconds)
}

func readEvent(t *testing.T, r *bufio.Reader) engine.Snapshot {
	t.Helper()
	var snap engine.Snapshot
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &snap))
			return snap
		}
	}
}

func TestHandleHealthCheck(t *testing.T) {
	f := newFakeEngine()
	h := NewMonitoringHandlers(f, time.Now().Add(-time.Minute), quietLogger())

	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health responses.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "Ready", health.SessionStatus)
	require.GreaterOrEqual(t, health.Uptime, 59.0)

	f.snap.Notice = &engine.Notice{Kind: engine.NoticePersistence}
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "persistence_failure", health.Notice)
}
