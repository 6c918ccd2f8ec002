// ABOUTME: Run record: lifecycle status, state snapshot, event log, and current suspension payload.
// ABOUTME: Declares the RunStore persistence port implemented by the store package.
package loom

import "time"

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSuspended RunStatus = "suspended"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run is the persisted record of one pipeline run. The state snapshot plus
// the status and payload are everything needed to resume after an
// arbitrary suspension.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	State     State     `json:"state"`
	Payload   *Payload  `json:"payload,omitempty"` // set while suspended
	Events    []Event   `json:"events"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta is the lightweight metadata persisted alongside the snapshot:
// enough to list and route a run without loading its full state.
type Meta struct {
	ID        string               `json:"id"`
	Status    RunStatus            `json:"status"`
	Phase     Phase                `json:"phase"`
	Awaiting  ApprovalType         `json:"awaiting_approval,omitempty"`
	Revisions map[ArtifactKind]int `json:"revisions,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Meta derives the run's metadata from its current snapshot.
func (r *Run) Meta() Meta {
	return Meta{
		ID:        r.ID,
		Status:    r.Status,
		Phase:     r.State.Phase,
		Awaiting:  r.State.AwaitingApproval,
		Revisions: r.State.Revisions,
		UpdatedAt: r.UpdatedAt,
	}
}

// RunStore is the persistence port for run records.
type RunStore interface {
	Create(run *Run) error
	Get(id string) (*Run, error)
	Update(run *Run) error
	List() ([]Meta, error)
	AppendEvent(id string, event Event) error
}
