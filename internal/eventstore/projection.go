package eventstore

import (
	"context"

	"git.home.luguber.info/inful/worktime/internal/session"
)

// Rebuild reconstructs a day's session by folding its stored events. The
// emergency flag is not part of the log, so the caller supplies it. An empty
// stream yields a fresh state for day.
func Rebuild(ctx context.Context, store Store, day session.DayKey, emergencyWeek bool) (session.State, error) {
	records, err := store.Day(ctx, day)
	if err != nil {
		return session.State{}, err
	}
	events := Events(records)
	if err := session.Validate(events); err != nil {
		return session.State{}, wrap(ErrProjectionRebuildFailed, err)
	}
	st, err := session.Fold(day, emergencyWeek, events)
	if err != nil {
		return session.State{}, wrap(ErrProjectionRebuildFailed, err)
	}
	return st, nil
}
