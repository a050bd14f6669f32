package state

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Requires a JetStream-enabled server, e.g. `nats-server -js`.
func TestNATSMirrorAgainstServer(t *testing.T) {
	url := os.Getenv("WORKTIME_TEST_NATS_URL")
	if url == "" {
		t.Skip("WORKTIME_TEST_NATS_URL not set")
	}
	ctx := t.Context()
	m, err := NewNATSMirror(ctx, url, "worktime_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	key := RecordKey("tech-1")
	_, err = m.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, key, []byte(`{"schemaVersion":1}`)))
	got, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.JSONEq(t, `{"schemaVersion":1}`, string(got))

	require.NoError(t, m.Delete(ctx, key))
	_, err = m.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNATSMirrorConnectFailure(t *testing.T) {
	_, err := NewNATSMirror(t.Context(), "nats://127.0.0.1:1", "worktime_sessions")
	require.Error(t, err)
}
