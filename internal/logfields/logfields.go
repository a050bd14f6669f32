package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDayKey        = "day_key"
	KeyEventKind     = "event_kind"
	KeyStatus        = "session_status"
	KeyDurationMS    = "duration_ms"
	KeySeconds       = "seconds"
	KeyAttempt       = "attempt"
	KeyIntervalStart = "interval_start"
	KeyEndpoint      = "endpoint"
	KeyRequestID     = "request_id"
	KeyHTTPStatus    = "http_status"
	KeyJob           = "job"
	KeyStore         = "store"
	KeyWorker        = "worker_id"
	KeyPath          = "path"
	KeyMethod        = "method"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func DayKey(k string) slog.Attr           { return slog.String(KeyDayKey, k) }
func EventKind(k string) slog.Attr        { return slog.String(KeyEventKind, k) }
func Status(s string) slog.Attr           { return slog.String(KeyStatus, s) }
func DurationMS(ms float64) slog.Attr     { return slog.Float64(KeyDurationMS, ms) }
func Seconds(s int64) slog.Attr           { return slog.Int64(KeySeconds, s) }
func Attempt(n int) slog.Attr             { return slog.Int(KeyAttempt, n) }
func Endpoint(u string) slog.Attr         { return slog.String(KeyEndpoint, u) }
func RequestID(id string) slog.Attr       { return slog.String(KeyRequestID, id) }
func HTTPStatus(code int) slog.Attr       { return slog.Int(KeyHTTPStatus, code) }
func Job(name string) slog.Attr           { return slog.String(KeyJob, name) }
func Store(name string) slog.Attr         { return slog.String(KeyStore, name) }
func Worker(id string) slog.Attr          { return slog.String(KeyWorker, id) }
func Path(p string) slog.Attr             { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr           { return slog.String(KeyMethod, m) }
func IntervalStart(t time.Time) slog.Attr { return slog.Time(KeyIntervalStart, t) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
