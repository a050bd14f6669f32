package commit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/worktime/internal/storage"
)

// Item states.
const (
	StatusPending = "pending"
	StatusDead    = "dead"
)

// Item is a queued time entry keyed by its interval start.
type Item struct {
	ID            string
	IntervalStart time.Time
	Entry         TimeEntry
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	Status        string
	CreatedAt     time.Time
}

// Outbox is the SQLite redelivery queue. Enqueue is idempotent per interval start.
type Outbox struct {
	db     *sql.DB
	ownsDB bool
	mu     sync.Mutex
}

const outboxSchema = `
CREATE TABLE IF NOT EXISTS commit_outbox (
	interval_start INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	payload BLOB NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at INTEGER NOT NULL
)`

const outboxIndex = `CREATE INDEX IF NOT EXISTS idx_commit_outbox_due ON commit_outbox(status, next_attempt_at)`

// NewOutbox opens its own database. Use ":memory:" in tests.
func NewOutbox(ctx context.Context, path string) (*Outbox, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, outboxErr(err, "open")
	}
	o, err := NewOutboxWithDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	o.ownsDB = true
	return o, nil
}

// NewOutboxWithDB uses a shared database handle; Close leaves it open.
func NewOutboxWithDB(ctx context.Context, db *sql.DB) (*Outbox, error) {
	if err := storage.Migrate(ctx, db, outboxSchema, outboxIndex); err != nil {
		return nil, outboxErr(err, "migrate")
	}
	return &Outbox{db: db}, nil
}

// Enqueue queues entry for a first redelivery at next. It reports false when
// the interval is already queued.
func (o *Outbox) Enqueue(ctx context.Context, intervalStart time.Time, entry TimeEntry, lastErr string, now, next time.Time) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, outboxErr(err, "encode")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	res, err := o.db.ExecContext(ctx, `
		INSERT INTO commit_outbox (interval_start, id, payload, next_attempt_at, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(interval_start) DO NOTHING`,
		intervalStart.Unix(), uuid.NewString(), payload, next.Unix(), lastErr, now.Unix(),
	)
	if err != nil {
		return false, outboxErr(err, "enqueue")
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Due returns pending items whose next attempt is at or before now.
func (o *Outbox) Due(ctx context.Context, now time.Time, limit int) ([]Item, error) {
	return o.query(ctx, "due",
		`WHERE status = 'pending' AND next_attempt_at <= ? ORDER BY next_attempt_at, interval_start LIMIT ?`,
		now.Unix(), limit)
}

// List returns every queued item, pending and dead, oldest interval first.
func (o *Outbox) List(ctx context.Context) ([]Item, error) {
	return o.query(ctx, "list", `ORDER BY interval_start`)
}

// PendingCount counts items still awaiting delivery.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var n int
	if err := o.db.QueryRowContext(ctx, `SELECT count(*) FROM commit_outbox WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, outboxErr(err, "count")
	}
	return n, nil
}

// Delivered removes an item after a successful submission.
func (o *Outbox) Delivered(ctx context.Context, intervalStart time.Time) error {
	return o.exec(ctx, "delivered", `DELETE FROM commit_outbox WHERE interval_start = ?`, intervalStart.Unix())
}

// Retry records a failed attempt and schedules the next one.
func (o *Outbox) Retry(ctx context.Context, intervalStart time.Time, attempts int, next time.Time, lastErr string) error {
	return o.exec(ctx, "retry",
		`UPDATE commit_outbox SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE interval_start = ?`,
		attempts, next.Unix(), lastErr, intervalStart.Unix())
}

// Dead parks an item that exhausted its retry budget. It stays for manual re-entry.
func (o *Outbox) Dead(ctx context.Context, intervalStart time.Time, attempts int, lastErr string) error {
	return o.exec(ctx, "dead",
		`UPDATE commit_outbox SET status = 'dead', attempts = ?, last_error = ? WHERE interval_start = ?`,
		attempts, lastErr, intervalStart.Unix())
}

// Close closes the database connection when the outbox opened it.
func (o *Outbox) Close() error {
	if !o.ownsDB {
		return nil
	}
	return o.db.Close()
}

func (o *Outbox) exec(ctx context.Context, op, query string, args ...any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.db.ExecContext(ctx, query, args...); err != nil {
		return outboxErr(err, op)
	}
	return nil
}

func (o *Outbox) query(ctx context.Context, op, where string, args ...any) ([]Item, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rows, err := o.db.QueryContext(ctx, `
		SELECT interval_start, id, payload, attempts, next_attempt_at, last_error, status, created_at
		FROM commit_outbox `+where, args...)
	if err != nil {
		return nil, outboxErr(err, op)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it                   Item
			start, next, created int64
			payload              []byte
		)
		if err := rows.Scan(&start, &it.ID, &payload, &it.Attempts, &next, &it.LastError, &it.Status, &created); err != nil {
			return nil, outboxErr(err, op)
		}
		if err := json.Unmarshal(payload, &it.Entry); err != nil {
			return nil, outboxErr(err, op)
		}
		it.IntervalStart = time.Unix(start, 0)
		it.NextAttemptAt = time.Unix(next, 0)
		it.CreatedAt = time.Unix(created, 0)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, outboxErr(err, op)
	}
	return items, nil
}
