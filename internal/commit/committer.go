package commit

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/retry"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// drainBatch bounds the work of one outbox drain.
const drainBatch = 50

// Options configures a Committer.
type Options struct {
	// Submitter delivers entries; nil disables submission.
	Submitter Submitter
	// Outbox queues failed entries for redelivery; nil means at-most-once.
	Outbox   *Outbox
	Policy   retry.Policy
	Clock    clockwork.Clock
	Recorder metrics.Recorder
	Logger   *slog.Logger
	// OnRedelivered runs after the outbox delivered an entry.
	OnRedelivered func(TimeEntry)
}

// Committer submits completed intervals and, when an outbox is configured,
// redelivers the ones that failed.
type Committer struct {
	submitter     Submitter
	outbox        *Outbox
	policy        retry.Policy
	clock         clockwork.Clock
	recorder      metrics.Recorder
	logger        *slog.Logger
	onRedelivered func(TimeEntry)
}

// NewCommitter creates a Committer.
func NewCommitter(opts Options) *Committer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Policy.Validate() != nil {
		opts.Policy = retry.DefaultPolicy()
	}
	return &Committer{
		submitter:     opts.Submitter,
		outbox:        opts.Outbox,
		policy:        opts.Policy,
		clock:         opts.Clock,
		recorder:      metrics.OrNoop(opts.Recorder),
		logger:        opts.Logger,
		onRedelivered: opts.OnRedelivered,
	}
}

// Enabled reports whether submissions are sent at all.
func (c *Committer) Enabled() bool { return c != nil && c.submitter != nil }

// OutboxEnabled reports whether failed submissions are queued.
func (c *Committer) OutboxEnabled() bool { return c != nil && c.outbox != nil }

// Commit submits the entry for iv. A failure is returned as a commit error;
// with an outbox the entry is queued first and the error carries queued=true.
func (c *Committer) Commit(ctx context.Context, iv session.Interval, entry TimeEntry) (metrics.CommitOutcome, error) {
	if !c.Enabled() {
		c.recorder.IncCommitOutcome(metrics.CommitSkipped)
		c.logger.Info("Time entry not submitted, no endpoint configured", logfields.IntervalStart(iv.Start))
		return metrics.CommitSkipped, nil
	}

	err := c.submitter.Submit(ctx, entry, IdempotencyKey(iv.Start))
	if err == nil {
		c.recorder.IncCommitOutcome(metrics.CommitSucceeded)
		c.logger.Info("Time entry created",
			logfields.IntervalStart(iv.Start),
			slog.String("duration", entry.Duration))
		return metrics.CommitSucceeded, nil
	}

	c.recorder.IncCommitOutcome(metrics.CommitFailed)
	c.logger.Error("Time entry submission failed", logfields.IntervalStart(iv.Start), logfields.Error(err))
	if !c.OutboxEnabled() {
		return metrics.CommitFailed, err
	}

	now := c.clock.Now()
	queued, qerr := c.outbox.Enqueue(ctx, iv.Start, entry, err.Error(), now, now.Add(c.policy.Delay(1)))
	if qerr != nil {
		c.logger.Error("Failed to queue time entry for redelivery", logfields.IntervalStart(iv.Start), logfields.Error(qerr))
		return metrics.CommitFailed, err
	}
	if queued {
		c.recorder.IncCommitOutcome(metrics.CommitQueued)
	}
	c.refreshPending(ctx)
	return metrics.CommitQueued, withQueued(err)
}

// Drain redelivers due outbox items and reports how many were delivered.
func (c *Committer) Drain(ctx context.Context) (int, error) {
	if !c.OutboxEnabled() || !c.Enabled() {
		return 0, nil
	}
	now := c.clock.Now()
	items, err := c.outbox.Due(ctx, now, drainBatch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		attempt := it.Attempts + 1
		serr := c.submitter.Submit(ctx, it.Entry, IdempotencyKey(it.IntervalStart))
		if serr == nil {
			if err := c.outbox.Delivered(ctx, it.IntervalStart); err != nil {
				return delivered, err
			}
			delivered++
			c.recorder.IncCommitOutcome(metrics.CommitRedeliver)
			c.logger.Info("Queued time entry delivered", logfields.IntervalStart(it.IntervalStart), logfields.Attempt(attempt))
			if c.onRedelivered != nil {
				c.onRedelivered(it.Entry)
			}
			continue
		}

		if c.policy.Exhausted(attempt) {
			c.recorder.IncCommitOutcome(metrics.CommitDead)
			c.logger.Error("Time entry redelivery exhausted, manual re-entry required",
				logfields.IntervalStart(it.IntervalStart), logfields.Attempt(attempt), logfields.Error(serr))
			if err := c.outbox.Dead(ctx, it.IntervalStart, attempt, serr.Error()); err != nil {
				return delivered, err
			}
			continue
		}
		next := now.Add(c.policy.Delay(attempt + 1))
		c.logger.Warn("Time entry redelivery failed",
			logfields.IntervalStart(it.IntervalStart), logfields.Attempt(attempt), logfields.Error(serr))
		if err := c.outbox.Retry(ctx, it.IntervalStart, attempt, next, serr.Error()); err != nil {
			return delivered, err
		}
	}
	c.refreshPending(ctx)
	return delivered, nil
}

// Queued lists outbox items, pending and dead.
func (c *Committer) Queued(ctx context.Context) ([]Item, error) {
	if !c.OutboxEnabled() {
		return nil, nil
	}
	return c.outbox.List(ctx)
}

func (c *Committer) refreshPending(ctx context.Context) {
	if n, err := c.outbox.PendingCount(ctx); err == nil {
		c.recorder.SetOutboxPending(n)
	}
}

// Queued reports whether a commit error left the entry in the outbox.
func Queued(err error) bool {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return false
	}
	v, _ := ce.Context().Get("queued")
	q, _ := v.(bool)
	return q
}

func withQueued(err error) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("queued", true)
	}
	return errors.WrapError(err, errors.CategoryCommit, ErrSubmissionFailed.Message()).
		UserAction().
		WithContext("queued", true).
		Build()
}
