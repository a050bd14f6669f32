package engine

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// RefreshTick republishes the live display while Active. No event is appended.
func (e *Engine) RefreshTick() {
	e.mu.Lock()
	if e.st.Status() != session.StatusActive {
		e.mu.Unlock()
		return
	}
	snap := e.snapshotLocked(e.clock.Now())
	e.mu.Unlock()
	e.publish(snap)
}

// PersistTick saves the session while Active, or while an earlier write is
// still outstanding.
func (e *Engine) PersistTick(ctx context.Context) {
	e.mu.Lock()
	if e.st.Status() != session.StatusActive && e.persistFailures == 0 {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	hadNotice := e.persistNotice != nil
	_ = e.persistLocked(ctx, now)
	changed := hadNotice != (e.persistNotice != nil)
	snap := e.snapshotLocked(now)
	e.mu.Unlock()
	if changed {
		e.publish(snap)
	}
}

// DayCheckTick resets the session when the calendar day has changed.
func (e *Engine) DayCheckTick(ctx context.Context) {
	e.mu.Lock()
	now := e.clock.Now()
	if !e.rolloverLocked(ctx, now) {
		e.mu.Unlock()
		return
	}
	snap := e.snapshotLocked(now)
	e.mu.Unlock()
	e.publish(snap)
}

// DrainTick redelivers due time entries from the commit outbox.
func (e *Engine) DrainTick(ctx context.Context) {
	if !e.committer.OutboxEnabled() {
		return
	}
	n, err := e.committer.Drain(ctx)
	if err != nil {
		e.logger.Error("Outbox drain failed", logfields.Job("outbox-drain"), logfields.Error(err))
		return
	}
	if n > 0 {
		e.logger.Info("Outbox drained", logfields.Job("outbox-drain"), slog.Int("delivered", n))
	}
}

// rolloverLocked moves the session to today's day key when the wall-clock
// date has passed it. An open interval is discarded, never committed.
func (e *Engine) rolloverLocked(ctx context.Context, now time.Time) bool {
	today := session.DayKeyOf(now, e.loc)
	if !e.st.DayKey.Before(today) {
		return false
	}
	old := e.st
	wasOpen := old.Status() != session.StatusIdle
	if wasOpen {
		e.logger.Warn("Session spanning midnight discarded",
			logfields.DayKey(string(old.DayKey)),
			logfields.Status(string(old.Status())),
			logfields.Seconds(old.Read(now).NetWorkedSeconds))
	}

	e.st = session.NewState(today, e.emergencyDefault)
	e.commitNotice = nil
	e.persistFailures = 0
	e.persistNotice = nil

	if err := e.persister.Purge(ctx); err != nil {
		e.logger.Error("Failed to purge previous day record", logfields.DayKey(string(old.DayKey)), logfields.Error(err))
	}
	if e.events != nil {
		if n, err := e.events.PurgeBefore(ctx, today); err != nil {
			e.logger.Error("Failed to purge previous day events", logfields.DayKey(string(old.DayKey)), logfields.Error(err))
		} else if n > 0 {
			e.logger.Debug("Previous day events purged", logfields.DayKey(string(old.DayKey)), slog.Int64("events", n))
		}
	}
	e.recorder.IncDayRollover(wasOpen)
	e.logger.Info("Day rolled over",
		slog.String("previous_day_key", string(old.DayKey)),
		logfields.DayKey(string(today)))
	return true
}
