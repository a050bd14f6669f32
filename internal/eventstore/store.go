// Package eventstore keeps the append-only log of session lifecycle events,
// one stream per calendar day.
package eventstore

import (
	"context"

	"git.home.luguber.info/inful/worktime/internal/session"
)

// Record is a stored event with its row identity.
type Record struct {
	ID       int64
	DayKey   session.DayKey
	WorkerID string
	Event    session.Event
}

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds an event to the day's stream.
	Append(ctx context.Context, day session.DayKey, ev session.Event) error

	// Day returns the day's events in timestamp order, ties in append order.
	Day(ctx context.Context, day session.DayKey) ([]Record, error)

	// PurgeBefore deletes every stream older than day and reports the row count.
	PurgeBefore(ctx context.Context, day session.DayKey) (int64, error)

	// Purge deletes one day's stream.
	Purge(ctx context.Context, day session.DayKey) error

	// Close releases resources.
	Close() error
}
