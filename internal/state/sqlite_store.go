package state

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/storage"
)

// SQLiteStore is the authoritative local Store.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
	mu     sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

const recordSchema = `
CREATE TABLE IF NOT EXISTS session_records (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// NewSQLiteStore opens its own database. Use ":memory:" in tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPersistence, "could not open session store").Fatal().Build()
	}
	s, err := NewSQLiteStoreWithDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStoreWithDB uses a shared database handle; Close leaves it open.
func NewSQLiteStoreWithDB(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if err := storage.Migrate(ctx, db, recordSchema); err != nil {
		return nil, errors.WrapError(err, errors.CategoryPersistence, "failed to initialize session store schema").Fatal().Build()
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM session_records WHERE key = ?", key).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPersistence, "failed to read session record").
			NextTick().
			WithContext("key", key).
			Build()
	}
	return payload, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_records (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, data, s.now().Unix(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryPersistence, "failed to write session record").
			NextTick().
			WithContext("key", key).
			Build()
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_records WHERE key = ?", key); err != nil {
		return errors.WrapError(err, errors.CategoryPersistence, "failed to delete session record").
			NextTick().
			WithContext("key", key).
			Build()
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
