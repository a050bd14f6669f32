// Package config loads the worktime YAML configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// Config represents the application configuration.
type Config struct {
	// Timezone is an IANA zone name used for day keys and display. "Local" uses the host zone.
	Timezone      string            `yaml:"timezone"`
	WorkerID      string            `yaml:"worker_id"`
	Targets       TargetsConfig     `yaml:"targets"`
	EmergencyWeek bool              `yaml:"emergency_week"`
	Intervals     IntervalsConfig   `yaml:"intervals"`
	Storage       StorageConfig     `yaml:"storage"`
	Persistence   PersistenceConfig `yaml:"persistence"`
	Remote        RemoteConfig      `yaml:"remote"`
	Commit        CommitConfig      `yaml:"commit"`
	Server        ServerConfig      `yaml:"server"`
	Logging       LoggingConfig     `yaml:"logging"`
	Metrics       MetricsConfig     `yaml:"metrics"`

	location *time.Location
}

// TargetsConfig holds the daily work target and the warning lead before it.
type TargetsConfig struct {
	Daily       time.Duration `yaml:"daily"`
	WarningLead time.Duration `yaml:"warning_lead"`
}

// IntervalsConfig holds the periods of the engine's background ticks.
type IntervalsConfig struct {
	Refresh  time.Duration `yaml:"refresh"`
	Persist  time.Duration `yaml:"persist"`
	DayCheck time.Duration `yaml:"day_check"`
}

// StorageConfig points at the local SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// PersistenceConfig controls when persistent write failures become user visible.
type PersistenceConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
}

// RemoteConfig configures the NATS JetStream KV mirror.
type RemoteConfig struct {
	Enabled bool          `yaml:"enabled"`
	NATSURL string        `yaml:"nats_url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// CommitConfig configures time entry submission. An empty endpoint disables submission.
type CommitConfig struct {
	Endpoint string            `yaml:"endpoint"`
	Timeout  time.Duration     `yaml:"timeout"`
	Token    string            `yaml:"token"`
	Retry    CommitRetryConfig `yaml:"retry"`
}

// CommitRetryConfig configures the redelivery outbox.
type CommitRetryConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
	Poll       time.Duration    `yaml:"poll"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig toggles the Prometheus recorder and /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Location returns the resolved time zone. Valid only after Validate succeeded.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Load loads configuration from the specified file, applies defaults and validates it.
func Load(configPath string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML (after ${VAR} expansion), applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	_ = Validate(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}

const exampleConfig = `# worktime configuration
timezone: Europe/Oslo
worker_id: ${WORKTIME_WORKER_ID}

targets:
  daily: 8h30m
  warning_lead: 30m

# Default for the emergency (on-call) week flag on new sessions.
emergency_week: false

intervals:
  refresh: 1s
  persist: 30s
  day_check: 60s

storage:
  path: worktime.db

persistence:
  failure_threshold: 3

remote:
  enabled: false
  nats_url: nats://127.0.0.1:4222
  bucket: worktime_sessions
  timeout: 5s

commit:
  endpoint: http://localhost:8000/api/time-entries/
  timeout: 10s
  token: ${WORKTIME_API_TOKEN}
  retry:
    enabled: false
    backoff: exponential
    initial: 30s
    max: 15m
    max_retries: 8
    poll: 1m

server:
  address: 127.0.0.1:8089

logging:
  level: info
  format: text

metrics:
  enabled: true
`
