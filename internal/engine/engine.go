package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/session"
	"git.home.luguber.info/inful/worktime/internal/state"
	"git.home.luguber.info/inful/worktime/internal/statistics"
)

// ErrNotRunning is returned by Stop on an engine that was never started.
var ErrNotRunning = errors.DaemonError("engine not running").Build()

// Engine is the session owner for one worker.
type Engine struct {
	mu               sync.Mutex
	clock            clockwork.Clock
	loc              *time.Location
	targets          statistics.Targets
	emergencyDefault bool
	workerID         string
	threshold        int
	intervals        Intervals

	persister      *state.Persister
	events         eventstore.Store
	committer      *commit.Committer
	recorder       metrics.Recorder
	logger         *slog.Logger
	onEntryCreated func(commit.TimeEntry)

	st              session.State
	persistFailures int
	persistNotice   *Notice
	commitNotice    *Notice

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	scheduler *Scheduler
}

// New creates an engine over persister. The session is empty until Load.
func New(persister *state.Persister, opts Options) *Engine {
	opts.applyDefaults()
	now := opts.Clock.Now()
	return &Engine{
		clock:            opts.Clock,
		loc:              opts.Location,
		targets:          opts.Targets,
		emergencyDefault: opts.EmergencyWeek,
		workerID:         opts.WorkerID,
		threshold:        opts.FailureThreshold,
		intervals:        opts.Intervals,
		persister:        persister,
		events:           opts.Events,
		committer:        opts.Committer,
		recorder:         opts.Recorder,
		logger:           opts.Logger,
		onEntryCreated:   opts.OnEntryCreated,
		st:               session.NewState(session.DayKeyOf(now, opts.Location), opts.EmergencyWeek),
		subs:             make(map[chan Snapshot]struct{}),
	}
}

// Load recovers today's session from the persistence adapter.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	now := e.clock.Now()
	today := session.DayKeyOf(now, e.loc)
	rec, err := e.persister.Load(ctx, today, e.emergencyDefault)
	e.st = rec.State
	if rec.Discarded != "" {
		e.recorder.IncDayRollover(false)
	}
	snap := e.snapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("Session loaded",
		logfields.DayKey(string(today)),
		logfields.Status(string(rec.State.Status())),
		slog.String("source", string(rec.Source)))
	e.publish(snap)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return nil
}

type tickJob struct {
	name     string
	interval time.Duration
	fn       func()
}

// Start loads the session and schedules the periodic ticks.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Load(ctx); err != nil {
		e.logger.Warn("Session load incomplete", logfields.Error(err))
	}

	s, err := NewScheduler(e.clock)
	if err != nil {
		return err
	}
	jobs := []tickJob{
		{"refresh", e.intervals.Refresh, func() { e.RefreshTick() }},
		{"persist", e.intervals.Persist, func() { e.PersistTick(context.Background()) }},
		{"day-check", e.intervals.DayCheck, func() { e.DayCheckTick(context.Background()) }},
	}
	if e.intervals.Drain > 0 && e.committer.OutboxEnabled() {
		jobs = append(jobs, tickJob{"outbox-drain", e.intervals.Drain, func() { e.DrainTick(context.Background()) }})
	}
	for _, j := range jobs {
		if _, err := s.ScheduleEvery(j.name, j.interval, j.fn); err != nil {
			_ = s.Stop(ctx)
			return err
		}
	}
	s.Start(ctx)

	e.mu.Lock()
	e.scheduler = s
	e.mu.Unlock()
	return nil
}

// Stop halts the ticks, writes a final record and closes subscribers.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	s := e.scheduler
	e.scheduler = nil
	e.mu.Unlock()
	if s == nil {
		return ErrNotRunning
	}

	err := s.Stop(ctx)

	e.mu.Lock()
	if perr := e.persistLocked(ctx, e.clock.Now()); perr != nil && err == nil {
		err = perr
	}
	e.mu.Unlock()

	e.persister.Wait()
	e.closeSubscribers()
	return err
}

// Snapshot returns the current display values.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.clock.Now())
}

// State returns a copy of the session state.
func (e *Engine) State() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Clone()
}

// UpdateTargets replaces the daily target and warning lead.
func (e *Engine) UpdateTargets(t statistics.Targets) {
	e.mu.Lock()
	if t.Daily > 0 {
		e.targets.Daily = t.Daily
	}
	if t.WarningLead >= 0 {
		e.targets.WarningLead = t.WarningLead
	}
	applied := e.targets
	snap := e.snapshotLocked(e.clock.Now())
	e.mu.Unlock()
	e.logger.Info("Targets updated",
		slog.Duration("daily", applied.Daily),
		slog.Duration("warning_lead", applied.WarningLead))
	e.publish(snap)
}

// SetEmergencyDefault changes the flag new days start with.
func (e *Engine) SetEmergencyDefault(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emergencyDefault = on
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	snap := buildSnapshot(e.st, now, e.targets, e.loc, e.noticeLocked())
	e.recorder.SetNetWorkedSeconds(snap.NetWorkedSeconds)
	e.recorder.SetWarningLevel(snap.WarningLevel.Ordinal())
	return snap
}

// noticeLocked picks the notice to show; persistence problems win.
func (e *Engine) noticeLocked() *Notice {
	if e.persistNotice != nil {
		return e.persistNotice
	}
	return e.commitNotice
}

// persistLocked saves the session. After threshold consecutive failures a
// notice is raised; the next success clears it.
func (e *Engine) persistLocked(ctx context.Context, now time.Time) error {
	err := e.persister.Save(ctx, e.st, now)
	if err != nil {
		e.persistFailures++
		e.logger.Error("Session persist failed",
			logfields.DayKey(string(e.st.DayKey)),
			logfields.Attempt(e.persistFailures),
			logfields.Error(err))
		if e.persistFailures >= e.threshold && e.persistNotice == nil {
			e.persistNotice = &Notice{
				Kind:    NoticePersistence,
				Message: "Session could not be saved. Changes may be lost if the app closes.",
				Since:   now,
			}
			e.logger.Warn("Persistence failure notice raised", slog.Int("failures", e.persistFailures))
		}
		return err
	}
	if e.persistFailures > 0 {
		e.logger.Info("Session persist recovered", slog.Int("failures", e.persistFailures))
	}
	e.persistFailures = 0
	e.persistNotice = nil
	return nil
}
