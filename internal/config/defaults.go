package config

import "time"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// Default values.
const (
	DefaultTimezone         = "Local"
	DefaultDailyTarget      = 8*time.Hour + 30*time.Minute
	DefaultWarningLead      = 30 * time.Minute
	DefaultRefreshInterval  = time.Second
	DefaultPersistInterval  = 30 * time.Second
	DefaultDayCheckInterval = 60 * time.Second
	DefaultStoragePath      = "worktime.db"
	DefaultFailureThreshold = 3
	DefaultRemoteBucket     = "worktime_sessions"
	DefaultRemoteTimeout    = 5 * time.Second
	DefaultCommitTimeout    = 10 * time.Second
	DefaultServerAddress    = "127.0.0.1:8089"
)

type sessionDefaults struct{}

func (sessionDefaults) Domain() string { return "session" }

func (sessionDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Targets.Daily == 0 {
		cfg.Targets.Daily = DefaultDailyTarget
	}
	if cfg.Targets.WarningLead == 0 {
		cfg.Targets.WarningLead = DefaultWarningLead
	}
	if cfg.Intervals.Refresh == 0 {
		cfg.Intervals.Refresh = DefaultRefreshInterval
	}
	if cfg.Intervals.Persist == 0 {
		cfg.Intervals.Persist = DefaultPersistInterval
	}
	if cfg.Intervals.DayCheck == 0 {
		cfg.Intervals.DayCheck = DefaultDayCheckInterval
	}
	return nil
}

type storageDefaults struct{}

func (storageDefaults) Domain() string { return "storage" }

func (storageDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Persistence.FailureThreshold == 0 {
		cfg.Persistence.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Remote.Bucket == "" {
		cfg.Remote.Bucket = DefaultRemoteBucket
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = DefaultRemoteTimeout
	}
	return nil
}

type commitDefaults struct{}

func (commitDefaults) Domain() string { return "commit" }

func (commitDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Commit.Timeout == 0 {
		cfg.Commit.Timeout = DefaultCommitTimeout
	}
	r := &cfg.Commit.Retry
	if r.Backoff == "" {
		r.Backoff = RetryBackoffExponential
	} else if m := NormalizeRetryBackoff(string(r.Backoff)); m != "" {
		r.Backoff = m
	}
	if r.Initial == 0 {
		r.Initial = 30 * time.Second
	}
	if r.Max == 0 {
		r.Max = 15 * time.Minute
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 8
	}
	if r.Poll == 0 {
		r.Poll = time.Minute
	}
	return nil
}

type surfaceDefaults struct{}

func (surfaceDefaults) Domain() string { return "surface" }

func (surfaceDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		sessionDefaults{},
		storageDefaults{},
		commitDefaults{},
		surfaceDefaults{},
	}
}

// ApplyDefaults fills every unset field across all domains.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
