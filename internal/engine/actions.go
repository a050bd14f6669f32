package engine

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// Result describes the outcome of a user action.
type Result struct {
	// Applied is false when the action was illegal in the current state.
	Applied  bool
	Snapshot Snapshot
	// Interval and Entry are set for an applied Stop.
	Interval *session.Interval
	Entry    *commit.TimeEntry
	// Outcome is the commit result for an applied Stop.
	Outcome metrics.CommitOutcome
}

// StartSession begins a work interval. Only legal while Ready.
func (e *Engine) StartSession(ctx context.Context) (Result, error) {
	return e.Apply(ctx, session.KindStart)
}

// Pause starts a break. Only legal while Active.
func (e *Engine) Pause(ctx context.Context) (Result, error) {
	return e.Apply(ctx, session.KindPause)
}

// Resume ends a break. Only legal while Paused.
func (e *Engine) Resume(ctx context.Context) (Result, error) {
	return e.Apply(ctx, session.KindResume)
}

// StopSession ends the interval and submits it as a time entry.
func (e *Engine) StopSession(ctx context.Context) (Result, error) {
	return e.Apply(ctx, session.KindStop)
}

// Apply runs one lifecycle action. Illegal actions leave the state untouched
// and report Applied=false. A persistence failure does not fail the action;
// it is retried on the next tick. The returned error is only set when the
// time entry of a Stop could not be submitted.
//
// Cancellation of ctx is ignored once the call is made: a transition that
// was applied in memory is always logged, persisted and committed. The
// commit stays bounded by the submitter's own timeout.
func (e *Engine) Apply(ctx context.Context, kind session.Kind) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	e.mu.Lock()
	now := e.clock.Now()
	e.rolloverLocked(ctx, now)

	tr, ok := e.st.Apply(kind, now)
	if !ok {
		e.recorder.IncIgnoredTransition(string(kind))
		e.logger.Debug("Transition ignored",
			logfields.EventKind(string(kind)),
			logfields.Status(string(e.st.Status())))
		snap := e.snapshotLocked(now)
		e.mu.Unlock()
		return Result{Snapshot: snap}, nil
	}

	e.recorder.IncTransition(string(kind))
	if kind == session.KindStart {
		e.commitNotice = nil
	}
	if e.events != nil {
		if err := e.events.Append(ctx, e.st.DayKey, tr.Event); err != nil {
			e.logger.Warn("Event log append failed",
				logfields.DayKey(string(e.st.DayKey)),
				logfields.EventKind(string(kind)),
				logfields.Error(err))
		}
	}
	_ = e.persistLocked(ctx, now)

	res := Result{Applied: true, Interval: tr.Interval}
	if tr.Interval != nil {
		entry := commit.NewTimeEntry(*tr.Interval, e.st.EmergencyWeek, e.workerID, e.loc)
		res.Entry = &entry
	}
	res.Snapshot = e.snapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("Session transition",
		logfields.EventKind(string(kind)),
		logfields.Status(res.Snapshot.Status),
		logfields.Seconds(res.Snapshot.NetWorkedSeconds))
	e.publish(res.Snapshot)

	if res.Interval == nil {
		return res, nil
	}
	return e.commit(ctx, res)
}

// commit submits a completed interval. It runs without the engine lock; a
// failure never rolls back the Stop.
func (e *Engine) commit(ctx context.Context, res Result) (Result, error) {
	if e.committer == nil {
		res.Outcome = metrics.CommitSkipped
		return res, nil
	}
	outcome, err := e.committer.Commit(ctx, *res.Interval, *res.Entry)
	res.Outcome = outcome
	if err != nil {
		msg := "Time entry could not be saved. Please record it manually."
		if commit.Queued(err) {
			msg = "Time entry could not be saved yet. It will be retried automatically."
		}
		e.mu.Lock()
		now := e.clock.Now()
		e.commitNotice = &Notice{Kind: NoticeCommit, Message: msg, Since: now}
		res.Snapshot = e.snapshotLocked(now)
		e.mu.Unlock()
		e.publish(res.Snapshot)
		return res, err
	}
	if outcome == metrics.CommitSucceeded && e.onEntryCreated != nil {
		e.onEntryCreated(*res.Entry)
	}
	return res, nil
}

// SetEmergencyWeek sets the emergency-week context flag. It appends no event
// but is persisted. It reports whether the flag changed.
func (e *Engine) SetEmergencyWeek(ctx context.Context, on bool) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	e.mu.Lock()
	now := e.clock.Now()
	e.rolloverLocked(ctx, now)
	if e.st.EmergencyWeek == on {
		snap := e.snapshotLocked(now)
		e.mu.Unlock()
		return Result{Snapshot: snap}, nil
	}
	e.st.EmergencyWeek = on
	_ = e.persistLocked(ctx, now)
	snap := e.snapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("Emergency week flag changed", slog.Bool("emergency_week", on))
	e.publish(snap)
	return Result{Applied: true, Snapshot: snap}, nil
}
