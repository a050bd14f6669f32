// Package state persists the session record.
//
// One versioned JSON record per worker is written to the local SQLite store,
// which is authoritative, and copied fire-and-forget to a NATS JetStream
// key/value bucket. On load the Persister falls back from the local record
// to the day's event log and finally to the mirror.
package state
