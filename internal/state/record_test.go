package state

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worktime/internal/session"
	"git.home.luguber.info/inful/worktime/internal/statistics"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 3, 2, hh, mm, 0, 0, time.UTC)
}

func pausedState() session.State {
	st := session.NewState("2026-03-02", true)
	st.Start(at(8, 0))
	st.Pause(at(10, 0))
	st.Resume(at(10, 15))
	st.Pause(at(12, 0))
	return st
}

func TestRoundTripPreservesStatistics(t *testing.T) {
	st := pausedState()
	data, err := Encode(st, at(12, 5))
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	require.True(t, session.Equivalent(st, back))

	targets := statistics.Targets{Daily: 8*time.Hour + 30*time.Minute, WarningLead: 30 * time.Minute}
	now := at(12, 20)
	require.Equal(t,
		statistics.Compute(st, now, targets, time.UTC),
		statistics.Compute(back, now, targets, time.UTC))
}

func TestIdleRecordHasNullInstants(t *testing.T) {
	data, err := Encode(session.NewState("2026-03-02", false), at(7, 0))
	require.NoError(t, err)
	require.Contains(t, string(data), `"startedAt":null`)
	require.Contains(t, string(data), `"events":[]`)
	require.Contains(t, string(data), `"schemaVersion":1`)
}

func TestDecodeRejectsFutureSchema(t *testing.T) {
	_, err := Decode([]byte(`{"schemaVersion":2,"dayKey":"2026-03-02"}`))
	require.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":       `{`,
		"bad day key":    `{"schemaVersion":1,"dayKey":"yesterday"}`,
		"negative break": `{"schemaVersion":1,"dayKey":"2026-03-02","accumulatedBreakSeconds":-5}`,
		"paused no time": `{"schemaVersion":1,"dayKey":"2026-03-02","isPaused":true}`,
		"unknown kind":   `{"schemaVersion":1,"dayKey":"2026-03-02","events":[{"kind":"lunch","at":"2026-03-02T08:00:00Z"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			require.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestDecodeMigratesLegacyRecord(t *testing.T) {
	start := at(8, 0)
	legacy := `{
		"dayKey": "2026-03-02",
		"startedAt": ` + itoa(start.UnixMilli()+250) + `,
		"accumulatedWorkSeconds": 0,
		"accumulatedBreakSeconds": 0,
		"isPaused": false,
		"pauseStartedAt": null,
		"emergencyWeekFlag": true,
		"events": [{"kind": "start", "timestamp": ` + itoa(start.UnixMilli()) + `}]
	}`
	st, err := Decode([]byte(legacy))
	require.NoError(t, err)
	require.True(t, st.StartedAt.Equal(start))
	require.True(t, st.EmergencyWeek)
	require.Equal(t, session.StatusActive, st.Status())
	require.Len(t, st.Events, 1)
}

func TestRecordKeySanitizes(t *testing.T) {
	require.Equal(t, "session.default", RecordKey(""))
	require.Equal(t, "session.ola_nordmann_example_no", RecordKey("ola.nordmann@example.no"))
	require.Equal(t, "session.tech-17", RecordKey("tech-17"))
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
