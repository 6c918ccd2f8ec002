// ABOUTME: Sentinel errors for contract violations and the structured error-record constructor.
// ABOUTME: Contract violations fail fast and never enter the run's error log.
package loom

import (
	"errors"
	"time"
)

// Contract violations. These represent programming or caller errors, fail
// fast, and are never absorbed into a run's error log.
var (
	ErrUnknownField         = errors.New("unknown state field")
	ErrUnknownRollbackPoint = errors.New("unknown rollback point")
	ErrUnknownApproval      = errors.New("unknown approval type")
	ErrUnknownStep          = errors.New("no node registered for step")
	ErrRunNotFound          = errors.New("run not found")
	ErrNotSuspended         = errors.New("run is not suspended")
	ErrApprovalMismatch     = errors.New("decision approval type does not match pending checkpoint")
	ErrInvalidDecision      = errors.New("invalid decision object")
)

// Error-record kinds for the run's error log.
const (
	ErrKindNode    = "node_failure"
	ErrKindSubStep = "sub_step_failure"
)

// NewErrorRecord builds a structured error-log entry for the given phase.
func NewErrorRecord(kind string, phase Phase, err error) ErrorRecord {
	return ErrorRecord{
		Kind:      kind,
		Message:   err.Error(),
		Phase:     phase,
		Timestamp: time.Now(),
	}
}
