package session

import (
	"fmt"
	"time"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	KindStart  Kind = "start"
	KindPause  Kind = "pause"
	KindResume Kind = "resume"
	KindStop   Kind = "stop"
)

// Kinds lists every event kind in lifecycle order.
var Kinds = []Kind{KindStart, KindPause, KindResume, KindStop}

// ParseKind accepts the lower-case kind names used on the wire and CLI.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown session action %q", s)
}

// Event is one entry of the append-only event log.
type Event struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`
}
