package state

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// ErrNotFound is returned by Store.Get when no record exists for a key.
var ErrNotFound = errors.NotFoundError("session record not found").Build()

// Store is a key/value store for encoded session records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RecordKey derives the store key for a worker. Characters outside the set
// NATS KV accepts are replaced, so the same key works in every store.
func RecordKey(workerID string) string {
	if workerID == "" {
		workerID = "default"
	}
	var b strings.Builder
	b.WriteString("session.")
	for _, r := range workerID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
