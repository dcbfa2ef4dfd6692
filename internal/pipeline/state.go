package pipeline

import "time"

// State is an externally observable pipeline state.
type State string

const (
	StatePending     State = "pending"
	StateResolving   State = "resolving"
	StateRedirecting State = "redirecting"
	StateTranscoding State = "transcoding"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Event is one state transition of one run.
type Event struct {
	RunID   string
	TrackID string
	State   State
	At      time.Time
}

// Observer receives transitions synchronously on the run's goroutine.
type Observer func(Event)
