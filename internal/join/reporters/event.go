// Package reporters collects join.Reporter implementations that fan
// reaction-site events out to a transport, a structured logger, or a
// metrics backend. None of them are required by internal/join itself;
// a Site defaults to join.NoOpReporter when none is configured.
package reporters

import "time"

// Event is the JSON-friendly shape every reporter implementation in this
// package turns a join.Reporter callback into, modeled on the teacher's
// achem.NotificationEvent.
type Event struct {
	Kind      string    `json:"kind"`
	Site      string    `json:"site"`
	Reaction  string    `json:"reaction,omitempty"`
	Molecule  string    `json:"molecule,omitempty"`
	ReactionB string    `json:"reaction_b,omitempty"`
	Error     string    `json:"error,omitempty"`
	Retried   bool      `json:"retried,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	KindSchedulerAssigned        = "scheduler_assigned"
	KindReactionScheduled        = "reaction_scheduled"
	KindReactionStarted          = "reaction_started"
	KindReactionFinished         = "reaction_finished"
	KindReactionException        = "reaction_exception"
	KindReplyNeverSent           = "reply_never_sent"
	KindPipelinedEmissionRefused = "pipelined_emission_refused"
	KindLivelockDetected         = "livelock_detected"
)
