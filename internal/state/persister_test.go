package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/session"
)

const today = session.DayKey("2026-03-02")

type fixture struct {
	local  *SQLiteStore
	mirror *memStore
	events *eventstore.SQLiteStore
	p      *Persister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	local, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	events, err := eventstore.NewSQLiteStore(ctx, ":memory:", "tech-1")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = local.Close()
		_ = events.Close()
	})
	mirror := newMemStore()
	return &fixture{
		local:  local,
		mirror: mirror,
		events: events,
		p: NewPersister(local, Options{
			Key:    RecordKey("tech-1"),
			Mirror: mirror,
			Events: events,
		}),
	}
}

func TestSaveThenLoadSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	st := pausedState()

	require.NoError(t, f.p.Save(ctx, st, at(12, 1)))
	f.p.Wait()
	require.True(t, f.mirror.has(RecordKey("tech-1")))

	rec, err := f.p.Load(ctx, today, false)
	require.NoError(t, err)
	require.Equal(t, SourceLocal, rec.Source)
	require.True(t, session.Equivalent(st, rec.State))
}

func TestLoadDiscardsStaleDay(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	st := pausedState()
	require.NoError(t, f.p.Save(ctx, st, at(12, 1)))
	require.NoError(t, f.events.Append(ctx, st.DayKey, st.Events[0]))
	f.p.Wait()

	tomorrow := session.DayKey("2026-03-03")
	rec, err := f.p.Load(ctx, tomorrow, true)
	require.NoError(t, err)
	f.p.Wait()

	require.Equal(t, SourceFresh, rec.Source)
	require.Equal(t, session.DayKey("2026-03-02"), rec.Discarded)
	require.True(t, rec.State.IsZero())
	require.Equal(t, tomorrow, rec.State.DayKey)
	require.True(t, rec.State.EmergencyWeek)

	_, err = f.local.Get(ctx, RecordKey("tech-1"))
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, f.mirror.has(RecordKey("tech-1")))
	left, err := f.events.Day(ctx, st.DayKey)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestLoadDiscardsRecordFromLaterDay(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	st := pausedState()
	require.NoError(t, f.p.Save(ctx, st, at(12, 1)))
	for _, ev := range st.Events {
		require.NoError(t, f.events.Append(ctx, st.DayKey, ev))
	}

	yesterday := session.DayKey("2026-03-01")
	rec, err := f.p.Load(ctx, yesterday, false)
	require.NoError(t, err)
	f.p.Wait()
	require.Equal(t, st.DayKey, rec.Discarded)
	require.Equal(t, yesterday, rec.State.DayKey)

	left, err := f.events.Day(ctx, st.DayKey)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestLoadFallsBackToEventLog(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	for _, ev := range pausedState().Events {
		require.NoError(t, f.events.Append(ctx, today, ev))
	}

	rec, err := f.p.Load(ctx, today, true)
	require.NoError(t, err)
	require.Equal(t, SourceEvents, rec.Source)
	require.Equal(t, session.StatusPaused, rec.State.Status())
	require.Equal(t, int64(900), rec.State.AccumulatedBreakSeconds)
	require.True(t, rec.State.EmergencyWeek)
}

func TestLoadFallsBackToMirrorAndBackfills(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	st := pausedState()
	data, err := Encode(st, at(12, 1))
	require.NoError(t, err)
	require.NoError(t, f.mirror.Put(ctx, RecordKey("tech-1"), data))

	rec, err := f.p.Load(ctx, today, false)
	require.NoError(t, err)
	require.Equal(t, SourceMirror, rec.Source)
	require.True(t, session.Equivalent(st, rec.State))

	records, err := f.events.Day(ctx, today)
	require.NoError(t, err)
	require.Len(t, records, len(st.Events))
}

func TestLoadIgnoresUnreadableMirror(t *testing.T) {
	f := newFixture(t)
	f.mirror.failGet = errUnavailable

	rec, err := f.p.Load(t.Context(), today, false)
	require.NoError(t, err)
	require.Equal(t, SourceFresh, rec.Source)
}

func TestLoadRejectsFutureLocalRecord(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	require.NoError(t, f.local.Put(ctx, RecordKey("tech-1"), []byte(`{"schemaVersion":9,"dayKey":"2026-03-02"}`)))

	rec, err := f.p.Load(ctx, today, false)
	require.NoError(t, err)
	require.Equal(t, SourceFresh, rec.Source)
}

func TestMirrorFailureNeverFailsSave(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.mirror.failPut = errUnavailable

	require.NoError(t, f.p.Save(ctx, pausedState(), at(12, 1)))
	f.p.Wait()
	require.Equal(t, 1, f.mirror.puts)

	_, err := f.local.Get(ctx, RecordKey("tech-1"))
	require.NoError(t, err)
}

func TestLocalFailureIsClassified(t *testing.T) {
	local := newMemStore()
	local.failPut = errors.PersistenceError("disk full").Build()
	p := NewPersister(local, Options{})

	err := p.Save(t.Context(), pausedState(), at(12, 1))
	require.True(t, errors.HasCategory(err, errors.CategoryPersistence))
}

func TestMirrorWritesLandInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	st := session.NewState(today, false)
	st.Start(at(8, 0))
	for i := 0; i < 20; i++ {
		require.NoError(t, f.p.Save(ctx, st, at(8, i)))
	}
	last := st.Clone()
	last.Pause(at(9, 0))
	require.NoError(t, f.p.Save(ctx, last, at(9, 0)))
	f.p.Wait()

	data, err := f.mirror.Get(ctx, RecordKey("tech-1"))
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, session.StatusPaused, got.Status())
}
