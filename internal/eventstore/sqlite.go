package eventstore

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"git.home.luguber.info/inful/worktime/internal/session"
	"git.home.luguber.info/inful/worktime/internal/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	ownsDB   bool
	workerID string
	mu       sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	day_key TEXT NOT NULL,
	worker_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	at INTEGER NOT NULL
)`

const dayIndex = `CREATE INDEX IF NOT EXISTS idx_session_events_worker_day ON session_events(worker_id, day_key, at, id)`

// NewSQLiteStore opens its own database. Use ":memory:" in tests.
func NewSQLiteStore(ctx context.Context, dbPath, workerID string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	s, err := NewSQLiteStoreWithDB(ctx, db, workerID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStoreWithDB uses a shared database handle; Close leaves it open.
func NewSQLiteStoreWithDB(ctx context.Context, db *sql.DB, workerID string) (*SQLiteStore, error) {
	if err := storage.Migrate(ctx, db, schema, dayIndex); err != nil {
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}
	return &SQLiteStore{db: db, workerID: workerID}, nil
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, day session.DayKey, ev session.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO session_events (day_key, worker_id, kind, at) VALUES (?, ?, ?, ?)",
		string(day), s.workerID, string(ev.Kind), ev.At.Unix(),
	)
	if err != nil {
		return wrap(ErrEventAppendFailed, err)
	}
	return nil
}

// Day retrieves the store worker's events for a day.
func (s *SQLiteStore) Day(ctx context.Context, day session.DayKey) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, day_key, worker_id, kind, at FROM session_events WHERE day_key = ? AND worker_id = ? ORDER BY at, id",
		string(day), s.workerID,
	)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			key  string
			kind string
			at   int64
		)
		if err := rows.Scan(&r.ID, &key, &r.WorkerID, &kind, &at); err != nil {
			return nil, wrap(ErrEventQueryFailed, err)
		}
		r.DayKey = session.DayKey(key)
		r.Event = session.Event{Kind: session.Kind(kind), At: time.Unix(at, 0)}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	return out, nil
}

// PurgeBefore deletes the worker's streams of every day before day.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, day session.DayKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM session_events WHERE day_key < ? AND worker_id = ?",
		string(day), s.workerID)
	if err != nil {
		return 0, wrap(ErrEventPurgeFailed, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Purge deletes the worker's stream for one day.
func (s *SQLiteStore) Purge(ctx context.Context, day session.DayKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_events WHERE day_key = ? AND worker_id = ?",
		string(day), s.workerID); err != nil {
		return wrap(ErrEventPurgeFailed, err)
	}
	return nil
}

// Close closes the database connection when the store opened it.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Events strips row identity.
func Events(records []Record) []session.Event {
	out := make([]session.Event, len(records))
	for i, r := range records {
		out[i] = r.Event
	}
	return out
}
