package config

import (
	"net/url"
	"time"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// Validate checks the configuration and resolves the time zone.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, step := range []func() error{
		v.validateTimezone,
		v.validateTargets,
		v.validateIntervals,
		v.validateStorage,
		v.validateRemote,
		v.validateCommit,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func invalid(field, message string, value any) error {
	return errors.ConfigError(message).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

func (cv *configurationValidator) validateTimezone() error {
	loc, err := time.LoadLocation(cv.config.Timezone)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "unknown timezone").
			Fatal().
			WithContext("field", "timezone").
			WithContext("value", cv.config.Timezone).
			Build()
	}
	cv.config.location = loc
	return nil
}

func (cv *configurationValidator) validateTargets() error {
	t := cv.config.Targets
	if t.Daily <= 0 || t.Daily >= 24*time.Hour {
		return invalid("targets.daily", "daily target must be between 0 and 24h", t.Daily.String())
	}
	if t.Daily%time.Second != 0 {
		return invalid("targets.daily", "daily target must be whole seconds", t.Daily.String())
	}
	if t.WarningLead < 0 || t.WarningLead >= t.Daily {
		return invalid("targets.warning_lead", "warning lead must be shorter than the daily target", t.WarningLead.String())
	}
	return nil
}

func (cv *configurationValidator) validateIntervals() error {
	iv := cv.config.Intervals
	for field, d := range map[string]time.Duration{
		"intervals.refresh":   iv.Refresh,
		"intervals.persist":   iv.Persist,
		"intervals.day_check": iv.DayCheck,
	} {
		if d < 0 {
			return invalid(field, "interval must be positive", d.String())
		}
	}
	return nil
}

func (cv *configurationValidator) validateStorage() error {
	if cv.config.Persistence.FailureThreshold < 1 {
		return invalid("persistence.failure_threshold", "failure threshold must be at least 1", cv.config.Persistence.FailureThreshold)
	}
	return nil
}

func (cv *configurationValidator) validateRemote() error {
	r := cv.config.Remote
	if !r.Enabled {
		return nil
	}
	if r.NATSURL == "" {
		return invalid("remote.nats_url", "nats_url is required when the mirror is enabled", r.NATSURL)
	}
	if r.Timeout < 0 {
		return invalid("remote.timeout", "timeout must be positive", r.Timeout.String())
	}
	return nil
}

func (cv *configurationValidator) validateCommit() error {
	c := cv.config.Commit
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("commit.endpoint", "endpoint must be an absolute http(s) URL", c.Endpoint)
		}
	}
	if c.Timeout < 0 {
		return invalid("commit.timeout", "timeout must be positive", c.Timeout.String())
	}
	if !c.Retry.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return invalid("commit.retry.enabled", "retry requires commit.endpoint", c.Endpoint)
	}
	if NormalizeRetryBackoff(string(c.Retry.Backoff)) == "" {
		return invalid("commit.retry.backoff", "unknown backoff mode", string(c.Retry.Backoff))
	}
	if c.Retry.Initial <= 0 || c.Retry.Max < c.Retry.Initial {
		return invalid("commit.retry.max", "retry max delay must be >= initial delay", c.Retry.Max.String())
	}
	if c.Retry.MaxRetries < 1 {
		return invalid("commit.retry.max_retries", "max_retries must be at least 1", c.Retry.MaxRetries)
	}
	return nil
}
