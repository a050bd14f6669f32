package eventstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worktime/internal/session"
)

func TestRebuild(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	for _, ev := range []session.Event{
		{Kind: session.KindStart, At: at(2, 8, 0)},
		{Kind: session.KindPause, At: at(2, 10, 0)},
		{Kind: session.KindResume, At: at(2, 10, 15)},
	} {
		require.NoError(t, store.Append(ctx, monday, ev))
	}

	st, err := Rebuild(ctx, store, monday, true)
	require.NoError(t, err)
	require.Equal(t, session.StatusActive, st.Status())
	require.Equal(t, int64(900), st.AccumulatedBreakSeconds)
	require.True(t, st.EmergencyWeek)
	require.Len(t, st.Events, 3)
}

func TestRebuildRejectsCorruptStream(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	require.NoError(t, store.Append(ctx, monday, session.Event{Kind: session.KindPause, At: at(2, 8, 0)}))

	_, err := Rebuild(ctx, store, monday, false)
	require.ErrorIs(t, err, ErrProjectionRebuildFailed)
}

func TestRebuildEmptyDay(t *testing.T) {
	st, err := Rebuild(t.Context(), newStore(t), monday, false)
	require.NoError(t, err)
	require.True(t, st.IsZero())
	require.Equal(t, monday, st.DayKey)
}

func TestRebuildOnlySeesOwnWorker(t *testing.T) {
	alice := newStore(t)
	ctx := t.Context()
	bob, err := NewSQLiteStoreWithDB(ctx, alice.db, "bob")
	require.NoError(t, err)

	require.NoError(t, alice.Append(ctx, monday, session.Event{Kind: session.KindStart, At: at(2, 8, 0)}))

	st, err := Rebuild(ctx, bob, monday, false)
	require.NoError(t, err)
	require.Equal(t, session.StatusIdle, st.Status())
	require.Empty(t, st.Events)
}
