package state

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
)

// NATSMirror is a best-effort Store backed by a JetStream key/value bucket.
type NATSMirror struct {
	conn   *nats.Conn
	kv     jetstream.KeyValue
	bucket string
}

var _ Store = (*NATSMirror)(nil)

// NewNATSMirror connects to url and opens (creating if needed) the bucket.
func NewNATSMirror(ctx context.Context, url, bucket string) (*NATSMirror, error) {
	conn, err := nats.Connect(url, nats.Name("worktime"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemoteSync, "failed to connect to NATS").
			Warning().
			WithContext("url", url).
			Build()
	}
	m, err := NewNATSMirrorWithConn(ctx, conn, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	m.conn = conn
	slog.Info("NATS session mirror initialized", "url", url, "bucket", bucket)
	return m, nil
}

// NewNATSMirrorWithConn uses an existing connection; Close leaves it open.
func NewNATSMirrorWithConn(ctx context.Context, conn *nats.Conn, bucket string) (*NATSMirror, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemoteSync, "failed to create JetStream context").Warning().Build()
	}

	kv, err := js.KeyValue(ctx, bucket)
	if stderrors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "worktime session records",
			History:     1,
		})
		if err == nil {
			slog.Info("Created KV bucket for session mirror", slog.String("bucket", bucket))
		}
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemoteSync, "failed to open KV bucket").
			Warning().
			WithContext("bucket", bucket).
			Build()
	}
	return &NATSMirror{kv: kv, bucket: bucket}, nil
}

func (m *NATSMirror) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.kv.Get(ctx, key)
	if stderrors.Is(err, jetstream.ErrKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, m.fail(err, "failed to get mirror record", key)
	}
	return entry.Value(), nil
}

func (m *NATSMirror) Put(ctx context.Context, key string, data []byte) error {
	if _, err := m.kv.Put(ctx, key, data); err != nil {
		return m.fail(err, "failed to put mirror record", key)
	}
	return nil
}

func (m *NATSMirror) Delete(ctx context.Context, key string) error {
	err := m.kv.Delete(ctx, key)
	if err != nil && !stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return m.fail(err, "failed to delete mirror record", key)
	}
	return nil
}

// Close closes the NATS connection when the mirror opened it.
func (m *NATSMirror) Close() error {
	if m.conn != nil {
		if err := m.conn.Drain(); err != nil {
			m.conn.Close()
			return fmt.Errorf("drain nats connection: %w", err)
		}
	}
	return nil
}

func (m *NATSMirror) fail(err error, msg, key string) error {
	slog.Debug(msg, slog.String("bucket", m.bucket), logfields.Store("nats"), logfields.Error(err))
	return errors.WrapError(err, errors.CategoryRemoteSync, msg).
		Warning().
		WithContext("key", key).
		WithContext("bucket", m.bucket).
		Build()
}
