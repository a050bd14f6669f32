package session

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testDay = DayKey("2026-03-02")

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 3, 2, hh, mm, ss, 0, time.UTC)
}

func TestStartThenReadAfterFiveSeconds(t *testing.T) {
	s := NewState(testDay, false)
	_, ok := s.Start(at(8, 0, 0))
	require.True(t, ok)

	r := s.Read(at(8, 0, 5))
	require.Equal(t, int64(5), r.NetWorkedSeconds)
	require.Equal(t, int64(5), r.ElapsedSeconds)
	require.Zero(t, r.BreakSeconds)
	require.Equal(t, StatusActive, s.Status())
}

func TestFullDayWithOneBreak(t *testing.T) {
	s := NewState(testDay, false)
	_, ok := s.Start(at(8, 0, 0))
	require.True(t, ok)
	_, ok = s.Pause(at(10, 0, 0))
	require.True(t, ok)
	_, ok = s.Resume(at(10, 15, 0))
	require.True(t, ok)
	tr, ok := s.Stop(at(16, 0, 0))
	require.True(t, ok)

	require.Equal(t, int64(900), s.AccumulatedBreakSeconds)
	require.Equal(t, int64(28800), s.AccumulatedWorkSeconds)
	require.Equal(t, int64(27900), s.Read(at(16, 0, 0)).NetWorkedSeconds)
	require.Equal(t, StatusIdle, s.Status())

	require.NotNil(t, tr.Interval)
	require.Equal(t, int64(28800), tr.Interval.GrossSeconds)
	require.Equal(t, int64(900), tr.Interval.BreakSeconds)
	require.Equal(t, int64(27900), tr.Interval.NetSeconds())
	require.Equal(t, []Kind{KindStart, KindPause, KindResume, KindStop}, kinds(s.Events))
}

func TestStopWhilePausedFoldsOpenBreak(t *testing.T) {
	s := NewState(testDay, false)
	s.Start(at(8, 0, 0))
	s.Pause(at(12, 0, 0))
	tr, ok := s.Stop(at(12, 30, 0))
	require.True(t, ok)

	require.Equal(t, int64(1800), s.AccumulatedBreakSeconds)
	require.Equal(t, int64(4*3600+1800), s.AccumulatedWorkSeconds)
	require.Equal(t, int64(1800), tr.Interval.BreakSeconds)
	require.False(t, s.IsPaused)
	require.True(t, s.PauseStartedAt.IsZero())
	require.Equal(t, []Kind{KindStart, KindPause, KindStop}, kinds(s.Events))
}

func TestIllegalTransitionsAreIgnored(t *testing.T) {
	s := NewState(testDay, true)
	before := s.Clone()

	for _, fn := range []func(time.Time) (Transition, bool){s.Pause, s.Resume, s.Stop} {
		_, ok := fn(at(9, 0, 0))
		require.False(t, ok)
	}
	require.True(t, Equivalent(before, s))

	s.Start(at(9, 0, 0))
	_, ok := s.Start(at(9, 1, 0))
	require.False(t, ok)
	_, ok = s.Resume(at(9, 1, 0))
	require.False(t, ok)
	require.Len(t, s.Events, 1)
}

func TestPauseTwiceEqualsPauseOnce(t *testing.T) {
	once := NewState(testDay, false)
	once.Start(at(8, 0, 0))
	once.Pause(at(9, 0, 0))

	twice := once.Clone()
	_, ok := twice.Pause(at(9, 5, 0))
	require.False(t, ok)
	require.True(t, Equivalent(once, twice))
}

func TestSecondsAreTruncated(t *testing.T) {
	s := NewState(testDay, false)
	s.Start(at(8, 0, 0).Add(900 * time.Millisecond))
	require.Equal(t, at(8, 0, 0), s.StartedAt)
	require.Equal(t, int64(1), s.Read(at(8, 0, 1).Add(999*time.Millisecond)).NetWorkedSeconds)
}

func TestClockSkewNeverRunsBackwards(t *testing.T) {
	s := NewState(testDay, false)
	s.Start(at(8, 0, 0))
	s.Pause(at(7, 59, 0))
	require.Equal(t, at(8, 0, 0), s.PauseStartedAt)
	s.Resume(at(7, 0, 0))
	require.Zero(t, s.AccumulatedBreakSeconds)
	require.Zero(t, s.Read(at(7, 0, 0)).NetWorkedSeconds)
}

func TestSecondIntervalBreaksAreScopedToInterval(t *testing.T) {
	s := NewState(testDay, false)
	s.Start(at(7, 0, 0))
	s.Pause(at(8, 0, 0))
	s.Resume(at(8, 30, 0))
	s.Stop(at(11, 0, 0))

	s.Start(at(12, 0, 0))
	s.Pause(at(13, 0, 0))
	s.Resume(at(13, 10, 0))
	tr, _ := s.Stop(at(15, 0, 0))

	require.Equal(t, int64(600), tr.Interval.BreakSeconds)
	require.Equal(t, int64(3*3600-600), tr.Interval.NetSeconds())
	require.Equal(t, int64(2400), s.AccumulatedBreakSeconds)
	require.Equal(t, int64(4*3600+3*3600-2400), s.Read(at(15, 0, 0)).NetWorkedSeconds)
}

func TestApplyUnknownKind(t *testing.T) {
	s := NewState(testDay, false)
	_, ok := s.Apply(Kind("lunch"), at(8, 0, 0))
	require.False(t, ok)
	_, err := ParseKind("lunch")
	require.Error(t, err)
	k, err := ParseKind("resume")
	require.NoError(t, err)
	require.Equal(t, KindResume, k)
}

// Random walks over all actions, including illegal ones, checking the clock
// contract at every second.
func TestRandomWalkInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for run := 0; run < 50; run++ {
		s := NewState(testDay, false)
		now := at(6, 0, 0)
		prev := s.Read(now)
		firstSession := true

		for step := 0; step < 200; step++ {
			status := s.Status()
			advance := time.Duration(rng.IntN(120)+1) * time.Second
			for i := time.Duration(0); i < advance; i += time.Second {
				now = now.Add(time.Second)
				r := s.Read(now)
				switch status {
				case StatusActive:
					require.GreaterOrEqual(t, r.NetWorkedSeconds, prev.NetWorkedSeconds)
				default:
					require.Equal(t, prev.NetWorkedSeconds, r.NetWorkedSeconds)
				}
				if !s.StartedAt.IsZero() {
					sinceStart := int64(now.Sub(s.StartedAt) / time.Second)
					require.LessOrEqual(t, s.AccumulatedBreakSeconds, s.AccumulatedWorkSeconds+sinceStart)
					if firstSession {
						require.LessOrEqual(t, s.AccumulatedBreakSeconds, sinceStart)
					}
				}
				prev = r
			}

			kind := Kinds[rng.IntN(len(Kinds))]
			tr, ok := s.Apply(kind, now)
			if ok && tr.Interval != nil {
				firstSession = false
			}
			r := s.Read(now)
			require.Equal(t, prev.NetWorkedSeconds, r.NetWorkedSeconds, "transitions must not jump net time")
			prev = r
		}

		folded, err := Fold(testDay, false, s.Events)
		require.NoError(t, err)
		require.True(t, Equivalent(s, folded))
	}
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
