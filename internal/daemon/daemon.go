package daemon

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/engine"
	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/retry"
	"git.home.luguber.info/inful/worktime/internal/server/httpserver"
	"git.home.luguber.info/inful/worktime/internal/state"
	"git.home.luguber.info/inful/worktime/internal/statistics"
	"git.home.luguber.info/inful/worktime/internal/storage"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// shutdownTimeout bounds Run's graceful stop.
const shutdownTimeout = 10 * time.Second

// Option customises a Daemon.
type Option func(*Daemon)

// WithClock injects the clock driving the engine.
func WithClock(c clockwork.Clock) Option { return func(d *Daemon) { d.clock = c } }

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option { return func(d *Daemon) { d.logger = l } }

// WithOnEntryCreated registers a callback for every accepted time entry,
// including redelivered ones.
func WithOnEntryCreated(fn func(commit.TimeEntry)) Option {
	return func(d *Daemon) { d.onEntryCreated = fn }
}

// Daemon represents the main daemon service.
type Daemon struct {
	mu             sync.RWMutex
	config         *config.Config
	configFilePath string
	status         atomic.Value
	startTime      time.Time
	clock          clockwork.Clock
	logger         *slog.Logger
	onEntryCreated func(commit.TimeEntry)

	db        *sql.DB
	mirror    *state.NATSMirror
	events    *eventstore.SQLiteStore
	outbox    *commit.Outbox
	committer *commit.Committer
	registry  *prom.Registry
	engine    *engine.Engine
	server    *httpserver.Server
	watcher   *ConfigWatcher
}

// NewDaemon builds every component from cfg. configPath enables hot reload
// when not empty.
func NewDaemon(ctx context.Context, cfg *config.Config, configPath string, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration required").Build()
	}
	d := &Daemon{config: cfg, configFilePath: configPath}
	d.status.Store(StatusStopped)
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	if err := d.build(ctx); err != nil {
		d.closeStores()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) build(ctx context.Context) error {
	cfg := d.config
	db, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryPersistence, "failed to open session database").
			Fatal().
			WithContext("path", cfg.Storage.Path).
			Build()
	}
	d.db = db

	local, err := state.NewSQLiteStoreWithDB(ctx, db)
	if err != nil {
		return err
	}
	d.events, err = eventstore.NewSQLiteStoreWithDB(ctx, db, cfg.WorkerID)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		d.registry = metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	var mirror state.Store
	if cfg.Remote.Enabled {
		mctx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
		m, merr := state.NewNATSMirror(mctx, cfg.Remote.NATSURL, cfg.Remote.Bucket)
		cancel()
		if merr != nil {
			recorder.IncMirrorFailure()
			d.logger.Warn("Remote mirror unavailable, continuing with local store only",
				logfields.Store("mirror"), logfields.Error(merr))
		} else {
			d.mirror = m
			mirror = m
		}
	}

	persister := state.NewPersister(local, state.Options{
		Key:           state.RecordKey(cfg.WorkerID),
		Mirror:        mirror,
		MirrorTimeout: cfg.Remote.Timeout,
		Events:        d.events,
		Recorder:      recorder,
		Logger:        d.logger,
	})

	var submitter commit.Submitter
	if cfg.Commit.Endpoint != "" {
		submitter = commit.NewClient(cfg.Commit.Endpoint, cfg.Commit.Token, cfg.Commit.Timeout)
	} else {
		d.logger.Info("Commit endpoint not configured, time entries will not be submitted")
	}
	var drain time.Duration
	if submitter != nil && cfg.Commit.Retry.Enabled {
		d.outbox, err = commit.NewOutboxWithDB(ctx, db)
		if err != nil {
			return err
		}
		drain = cfg.Commit.Retry.Poll
	}
	d.committer = commit.NewCommitter(commit.Options{
		Submitter:     submitter,
		Outbox:        d.outbox,
		Policy:        retry.FromConfig(cfg.Commit.Retry),
		Clock:         d.clock,
		Recorder:      recorder,
		Logger:        d.logger,
		OnRedelivered: d.entryCreated,
	})

	d.engine = engine.New(persister, engine.Options{
		Clock:            d.clock,
		Location:         cfg.Location(),
		Targets:          targetsOf(cfg),
		EmergencyWeek:    cfg.EmergencyWeek,
		WorkerID:         cfg.WorkerID,
		FailureThreshold: cfg.Persistence.FailureThreshold,
		Intervals: engine.Intervals{
			Refresh:  cfg.Intervals.Refresh,
			Persist:  cfg.Intervals.Persist,
			DayCheck: cfg.Intervals.DayCheck,
			Drain:    drain,
		},
		Events:         d.events,
		Committer:      d.committer,
		Recorder:       recorder,
		Logger:         d.logger,
		OnEntryCreated: d.entryCreated,
	})

	d.server = httpserver.New(d.engine, httpserver.Options{
		Address:  cfg.Server.Address,
		Registry: d.registry,
		Logger:   d.logger,
	})
	return nil
}

func targetsOf(cfg *config.Config) statistics.Targets {
	return statistics.Targets{Daily: cfg.Targets.Daily, WarningLead: cfg.Targets.WarningLead}
}

func (d *Daemon) entryCreated(e commit.TimeEntry) {
	if d.onEntryCreated != nil {
		d.onEntryCreated(e)
	}
}

// Start runs the engine ticks, the HTTP API and the config watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.status.Store(StatusStarting)
	if err := d.engine.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return errors.WrapError(err, errors.CategoryDaemon, "failed to start session engine").Fatal().Build()
	}
	if err := d.server.Start(ctx); err != nil {
		_ = d.engine.Stop(ctx)
		d.status.Store(StatusError)
		return errors.WrapError(err, errors.CategoryDaemon, "failed to start HTTP API").
			Fatal().
			WithContext("address", d.config.Server.Address).
			Build()
	}
	if d.configFilePath != "" {
		w, err := NewConfigWatcher(d.configFilePath, d)
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			d.logger.Warn("Config hot reload disabled", logfields.Path(d.configFilePath), logfields.Error(err))
		} else {
			d.watcher = w
		}
	}

	d.mu.Lock()
	d.startTime = time.Now()
	d.mu.Unlock()
	d.status.Store(StatusRunning)
	d.logger.Info("Daemon started",
		slog.String("address", d.server.Addr()),
		logfields.Worker(d.config.WorkerID))
	return nil
}

// Stop shuts everything down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.status.Store(StatusStopping)
	var errs []error
	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := d.engine.Stop(ctx); err != nil && !stderrors.Is(err, engine.ErrNotRunning) {
		errs = append(errs, err)
	}
	d.closeStores()
	d.status.Store(StatusStopped)
	d.logger.Info("Daemon stopped")
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", stderrors.Join(errs...))
	}
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		d.closeStores()
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

func (d *Daemon) closeStores() {
	if d.mirror != nil {
		_ = d.mirror.Close()
		d.mirror = nil
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.logger.Warn("Failed to close session database", logfields.Error(err))
		}
		d.db = nil
	}
}

// ReloadConfig applies the settings that can change at runtime: targets and
// the emergency-week default. Other changes need a restart.
func (d *Daemon) ReloadConfig(_ context.Context, next *config.Config) error {
	if next == nil {
		return errors.ConfigError("configuration required").Build()
	}
	d.mu.Lock()
	prev := d.config
	d.config = next
	d.mu.Unlock()

	for field, changed := range map[string]bool{
		"timezone":       prev.Timezone != next.Timezone,
		"worker_id":      prev.WorkerID != next.WorkerID,
		"storage.path":   prev.Storage.Path != next.Storage.Path,
		"server.address": prev.Server.Address != next.Server.Address,
		"remote":         prev.Remote != next.Remote,
		"commit":         prev.Commit != next.Commit,
		"intervals":      prev.Intervals != next.Intervals,
	} {
		if changed {
			d.logger.Warn("Configuration change requires restart", slog.String("field", field))
		}
	}

	d.engine.UpdateTargets(targetsOf(next))
	d.engine.SetEmergencyDefault(next.EmergencyWeek)
	return nil
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// GetStatus returns the lifecycle status.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// GetStartTime returns when Start completed.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// Engine exposes the session engine.
func (d *Daemon) Engine() *engine.Engine { return d.engine }

// Addr returns the bound HTTP address once started.
func (d *Daemon) Addr() string { return d.server.Addr() }
