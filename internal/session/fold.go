package session

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// ErrInvalidSequence reports an event log that is not a legal walk of the
// state machine.
var ErrInvalidSequence = errors.ValidationError("event log is not a valid session sequence").Build()

// Fold rebuilds the state of a day by replaying its event log. Events are
// ordered by timestamp with ties kept in append order.
func Fold(day DayKey, emergencyWeek bool, events []Event) (State, error) {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b Event) int { return a.At.Compare(b.At) })

	s := NewState(day, emergencyWeek)
	for i, ev := range ordered {
		if _, ok := s.Apply(ev.Kind, ev.At); !ok {
			return NewState(day, emergencyWeek), fmt.Errorf("%w: %s at index %d while %s", ErrInvalidSequence, ev.Kind, i, s.Status())
		}
	}
	return s, nil
}

// Equivalent reports whether two states describe the same session position,
// ignoring time zone representation.
func Equivalent(a, b State) bool {
	return a.DayKey == b.DayKey &&
		a.StartedAt.Equal(b.StartedAt) &&
		a.AccumulatedWorkSeconds == b.AccumulatedWorkSeconds &&
		a.AccumulatedBreakSeconds == b.AccumulatedBreakSeconds &&
		a.IsPaused == b.IsPaused &&
		a.PauseStartedAt.Equal(b.PauseStartedAt) &&
		a.EmergencyWeek == b.EmergencyWeek &&
		slices.EqualFunc(a.Events, b.Events, func(x, y Event) bool {
			return x.Kind == y.Kind && x.At.Equal(y.At)
		})
}

func (k Kind) valid() bool { return slices.Contains(Kinds, k) }

// Validate checks that every event has a known kind and a timestamp.
func Validate(events []Event) error {
	for i, ev := range events {
		if !ev.Kind.valid() || ev.At.IsZero() {
			return fmt.Errorf("%w: malformed event at index %d", ErrInvalidSequence, i)
		}
	}
	return nil
}
