// ABOUTME: Engine lifecycle events emitted during run execution.
// ABOUTME: Events are both appended to the run record and forwarded to an optional callback.
package loom

import "time"

// EventType identifies the kind of engine lifecycle event.
type EventType string

const (
	EventRunStarted          EventType = "run.started"
	EventRunCompleted        EventType = "run.completed"
	EventRunFailed           EventType = "run.failed"
	EventStepStarted         EventType = "step.started"
	EventStepCompleted       EventType = "step.completed"
	EventStepFailed          EventType = "step.failed"
	EventStepRetrying        EventType = "step.retrying"
	EventCheckpointSuspended EventType = "checkpoint.suspended"
	EventCheckpointSkipped   EventType = "checkpoint.skipped"
	EventCheckpointResumed   EventType = "checkpoint.resumed"
	EventRevisionRequested   EventType = "revision.requested"
	EventRevisionEscalated   EventType = "revision.escalated"
	EventRollbackApplied     EventType = "rollback.applied"
)

// Event is one engine lifecycle event.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Step      StepID         `json:"step,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
