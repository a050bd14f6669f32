package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMemoryKeepsSchemaAcrossCalls(t *testing.T) {
	ctx := t.Context()
	db, err := OpenSQLite(ctx, MemoryPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(ctx, db, `CREATE TABLE t (v INTEGER)`, `INSERT INTO t (v) VALUES (42)`))

	var v int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT v FROM t`).Scan(&v))
	require.Equal(t, 42, v)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "nested", "worktime.db")
	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	require.Equal(t, "wal", mode)
	require.FileExists(t, path)
}

func TestMigrateRollsBack(t *testing.T) {
	ctx := t.Context()
	db, err := OpenSQLite(ctx, MemoryPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = Migrate(ctx, db, `CREATE TABLE a (v INTEGER)`, `NOT SQL`)
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE name = 'a'`).Scan(&n))
	require.Zero(t, n)
}
