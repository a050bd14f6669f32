package metrics

import "time"

// CommitOutcome enumerates time entry submission results for counters.
type CommitOutcome string

const (
	CommitSucceeded CommitOutcome = "success"
	CommitFailed    CommitOutcome = "failed"
	CommitQueued    CommitOutcome = "queued"
	CommitRedeliver CommitOutcome = "redelivered"
	CommitDead      CommitOutcome = "dead"
	CommitSkipped   CommitOutcome = "skipped"
)

// Recorder defines observability hooks for the session engine. All methods must
// be safe for nil receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncTransition(kind string)
	IncIgnoredTransition(kind string)
	ObservePersistDuration(d time.Duration, success bool)
	IncMirrorFailure()
	IncCommitOutcome(outcome CommitOutcome)
	SetNetWorkedSeconds(v int64)
	SetWarningLevel(level int)
	SetOutboxPending(n int)
	IncDayRollover(discardedActive bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string)                       {}
func (NoopRecorder) IncIgnoredTransition(string)                {}
func (NoopRecorder) ObservePersistDuration(time.Duration, bool) {}
func (NoopRecorder) IncMirrorFailure()                          {}
func (NoopRecorder) IncCommitOutcome(CommitOutcome)             {}
func (NoopRecorder) SetNetWorkedSeconds(int64)                  {}
func (NoopRecorder) SetWarningLevel(int)                        {}
func (NoopRecorder) SetOutboxPending(int)                       {}
func (NoopRecorder) IncDayRollover(bool)                        {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
