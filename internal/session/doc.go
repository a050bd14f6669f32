// Package session holds the work-time state machine for a single worker and
// calendar day.
//
// A State is a fold over the day's ordered event log. Transitions are guarded:
// an action that is not legal in the current status reports applied=false and
// leaves the state untouched. Gross interval time is accumulated on Stop and
// break time is subtracted only when net figures are derived (see Reading).
package session
