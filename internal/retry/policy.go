// Package retry computes backoff delays for commit redelivery.
package retry

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/worktime/internal/config"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // attempts after the first failure before an entry is dead
}

// DefaultPolicy returns the default policy (exponential, 30s initial, 15m cap, 8 retries).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 30 * time.Second, Max: 15 * time.Minute, MaxRetries: 8}
}

// NewPolicy builds a policy from raw fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if m := config.NormalizeRetryBackoff(string(mode)); m != "" {
		p.Mode = m
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the outbox policy from commit.retry.
func FromConfig(c config.CommitRetryConfig) Policy {
	return NewPolicy(c.Backoff, c.Initial, c.Max, c.MaxRetries)
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial
		for i := 1; i < retryCount; i++ {
			d *= 2
			if d >= p.Max || d <= 0 {
				return p.Max
			}
		}
		return min(d, p.Max)
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	}
}

// Exhausted reports whether a failed delivery with this many prior retries
// has used up the budget.
func (p Policy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}
