// Package engine owns the live work session of one worker.
//
// An Engine serialises user actions and periodic ticks behind one mutex,
// appends every applied transition to the event log, persists the session
// record, recomputes statistics and publishes a Snapshot to subscribers.
// Completed intervals are handed to the commit adapter outside the lock.
//
// Ticks run on a gocron scheduler driven by an injected clockwork clock:
//
//	refresh   (1s)   republish the live display while Active
//	persist   (30s)  save while Active or after a failed write
//	day-check (60s)  reset the session when the calendar day changes
//	drain     (poll) redeliver queued time entries when the outbox is enabled
package engine
