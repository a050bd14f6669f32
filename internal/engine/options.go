package engine

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/worktime/internal/commit"
	"git.home.luguber.info/inful/worktime/internal/config"
	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/statistics"
)

// Intervals are the tick periods. Zero values fall back to the config defaults.
type Intervals struct {
	Refresh  time.Duration
	Persist  time.Duration
	DayCheck time.Duration
	// Drain polls the commit outbox; zero disables the job.
	Drain time.Duration
}

// Options configures an Engine.
type Options struct {
	Clock    clockwork.Clock
	Location *time.Location
	Targets  statistics.Targets
	// EmergencyWeek is the flag a fresh day starts with.
	EmergencyWeek    bool
	WorkerID         string
	FailureThreshold int
	Intervals        Intervals

	Events    eventstore.Store
	Committer *commit.Committer
	Recorder  metrics.Recorder
	Logger    *slog.Logger

	// OnEntryCreated runs after a time entry was accepted by the endpoint.
	OnEntryCreated func(commit.TimeEntry)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Targets.Daily <= 0 {
		o.Targets.Daily = config.DefaultDailyTarget
	}
	if o.Targets.WarningLead < 0 {
		o.Targets.WarningLead = 0
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = config.DefaultFailureThreshold
	}
	if o.Intervals.Refresh <= 0 {
		o.Intervals.Refresh = config.DefaultRefreshInterval
	}
	if o.Intervals.Persist <= 0 {
		o.Intervals.Persist = config.DefaultPersistInterval
	}
	if o.Intervals.DayCheck <= 0 {
		o.Intervals.DayCheck = config.DefaultDayCheckInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Recorder = metrics.OrNoop(o.Recorder)
}
