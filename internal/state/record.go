package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// SchemaVersion is the record layout written by this build.
const SchemaVersion = 1

var (
	// ErrUnsupportedSchema is returned for records written by a newer build.
	ErrUnsupportedSchema = errors.PersistenceError("unsupported session record schema").Build()

	// ErrCorruptRecord is returned for records that cannot describe a valid state.
	ErrCorruptRecord = errors.PersistenceError("corrupt session record").Build()
)

// Record is the persisted form of a session state.
type Record struct {
	SchemaVersion           int             `json:"schemaVersion"`
	DayKey                  string          `json:"dayKey"`
	StartedAt               *time.Time      `json:"startedAt"`
	AccumulatedWorkSeconds  int64           `json:"accumulatedWorkSeconds"`
	AccumulatedBreakSeconds int64           `json:"accumulatedBreakSeconds"`
	IsPaused                bool            `json:"isPaused"`
	PauseStartedAt          *time.Time      `json:"pauseStartedAt"`
	EmergencyWeekFlag       bool            `json:"emergencyWeekFlag"`
	Events                  []session.Event `json:"events"`
	SavedAt                 time.Time       `json:"savedAt"`
}

// NewRecord captures st.
func NewRecord(st session.State, savedAt time.Time) Record {
	events := st.Events
	if events == nil {
		events = []session.Event{}
	}
	return Record{
		SchemaVersion:           SchemaVersion,
		DayKey:                  string(st.DayKey),
		StartedAt:               timePtr(st.StartedAt),
		AccumulatedWorkSeconds:  st.AccumulatedWorkSeconds,
		AccumulatedBreakSeconds: st.AccumulatedBreakSeconds,
		IsPaused:                st.IsPaused,
		PauseStartedAt:          timePtr(st.PauseStartedAt),
		EmergencyWeekFlag:       st.EmergencyWeek,
		Events:                  events,
		SavedAt:                 savedAt.UTC(),
	}
}

// State converts the record back, checking it is internally consistent.
func (r Record) State() (session.State, error) {
	st := session.State{
		DayKey:                  session.DayKey(r.DayKey),
		AccumulatedWorkSeconds:  r.AccumulatedWorkSeconds,
		AccumulatedBreakSeconds: r.AccumulatedBreakSeconds,
		IsPaused:                r.IsPaused,
		EmergencyWeek:           r.EmergencyWeekFlag,
	}
	if len(r.Events) > 0 {
		st.Events = append([]session.Event(nil), r.Events...)
	}
	if r.StartedAt != nil {
		st.StartedAt = *r.StartedAt
	}
	if r.PauseStartedAt != nil {
		st.PauseStartedAt = *r.PauseStartedAt
	}

	if _, err := time.Parse(session.DayKeyLayout, r.DayKey); err != nil {
		return session.State{}, corrupt("invalid day key %q", r.DayKey)
	}
	if st.AccumulatedWorkSeconds < 0 || st.AccumulatedBreakSeconds < 0 {
		return session.State{}, corrupt("negative accumulated seconds")
	}
	if st.IsPaused && (st.StartedAt.IsZero() || st.PauseStartedAt.IsZero()) {
		return session.State{}, corrupt("paused without start or pause time")
	}
	if err := session.Validate(st.Events); err != nil {
		return session.State{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return st, nil
}

// Encode serialises st as the current record version.
func Encode(st session.State, savedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(NewRecord(st, savedAt))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryPersistence, "failed to encode session record").Build()
	}
	return data, nil
}

// Decode parses a record of any supported version.
func Decode(data []byte) (session.State, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return session.State{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	switch {
	case probe.SchemaVersion == 0:
		return decodeLegacy(data)
	case probe.SchemaVersion > SchemaVersion:
		return session.State{}, ErrUnsupportedSchema.WithContext("schema_version", probe.SchemaVersion)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return session.State{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return r.State()
}

// legacyRecord is the unversioned layout, where instants were stored as
// epoch milliseconds and the event log as kind/timestamp pairs.
type legacyRecord struct {
	DayKey                  string        `json:"dayKey"`
	StartedAt               legacyInstant `json:"startedAt"`
	AccumulatedWorkSeconds  int64         `json:"accumulatedWorkSeconds"`
	AccumulatedBreakSeconds int64         `json:"accumulatedBreakSeconds"`
	IsPaused                bool          `json:"isPaused"`
	PauseStartedAt          legacyInstant `json:"pauseStartedAt"`
	EmergencyWeekFlag       bool          `json:"emergencyWeekFlag"`
	Events                  []struct {
		Kind      string        `json:"kind"`
		Timestamp legacyInstant `json:"timestamp"`
	} `json:"events"`
}

func decodeLegacy(data []byte) (session.State, error) {
	var lr legacyRecord
	if err := json.Unmarshal(data, &lr); err != nil {
		return session.State{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	r := Record{
		SchemaVersion:           SchemaVersion,
		DayKey:                  lr.DayKey,
		StartedAt:               timePtr(time.Time(lr.StartedAt)),
		AccumulatedWorkSeconds:  lr.AccumulatedWorkSeconds,
		AccumulatedBreakSeconds: lr.AccumulatedBreakSeconds,
		IsPaused:                lr.IsPaused,
		PauseStartedAt:          timePtr(time.Time(lr.PauseStartedAt)),
		EmergencyWeekFlag:       lr.EmergencyWeekFlag,
	}
	for _, ev := range lr.Events {
		r.Events = append(r.Events, session.Event{Kind: session.Kind(ev.Kind), At: time.Time(ev.Timestamp)})
	}
	return r.State()
}

// legacyInstant accepts null, RFC 3339 strings and epoch milliseconds.
type legacyInstant time.Time

func (li *legacyInstant) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*li = legacyInstant{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*li = legacyInstant(time.UnixMilli(ms).Truncate(time.Second))
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("cannot parse instant %s", s)
	}
	*li = legacyInstant(t)
	return nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruptRecord}, args...)...)
}
