// ABOUTME: Checkpoint definitions: skip predicates and read-only payload projections per approval type.
// ABOUTME: Checkpoints never write state; suspension bookkeeping and decision merging happen in the engine.
package loom

// CheckpointStatus is the tri-state lifecycle of one checkpoint passage.
type CheckpointStatus string

const (
	CheckpointPending   CheckpointStatus = "pending"
	CheckpointSuspended CheckpointStatus = "suspended"
	CheckpointResumed   CheckpointStatus = "resumed"
)

// Payload is the immutable projection of state handed to the review surface
// when a checkpoint suspends. Fields is a plain serializable mapping keyed
// by declared field names.
type Payload struct {
	Approval  ApprovalType   `json:"approval_type"`
	Phase     Phase          `json:"phase"`
	Fields    map[string]any `json:"fields"`
	Issues    []string       `json:"issues,omitempty"`
	Guidance  string         `json:"guidance,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Revisions int            `json:"revisions,omitempty"`
	Escalated bool           `json:"escalated,omitempty"`
}

// Checkpoint declares one human gate. Skip reports whether the required
// input already exists so a re-entrant passage is a no-op; BuildPayload
// projects the state fields the reviewer needs. Neither touches state.
type Checkpoint struct {
	Approval     ApprovalType
	Step         StepID
	Skip         func(State) bool
	BuildPayload func(State) Payload
}

// DefaultCheckpoints returns the built-in checkpoint table keyed by gate step.
func DefaultCheckpoints() map[StepID]Checkpoint {
	return map[StepID]Checkpoint{
		StepArcGate: {
			Approval: ApprovalArcSelection,
			Step:     StepArcGate,
			Skip: func(s State) bool {
				return len(s.SelectedArcs) > 0
			},
			BuildPayload: func(s State) Payload {
				return Payload{
					Approval: ApprovalArcSelection,
					Phase:    s.Phase,
					Fields: map[string]any{
						"candidate_arcs": s.CandidateArcs,
						"evidence":       s.Evidence,
					},
				}
			},
		},
		StepOutlineGate: {
			Approval: ApprovalOutlineReview,
			Step:     StepOutlineGate,
			Skip: func(s State) bool {
				return s.Granted(ApprovalOutlineReview)
			},
			BuildPayload: func(s State) Payload {
				return artifactPayload(s, ApprovalOutlineReview, KindOutline, map[string]any{
					"outline":       s.Outline,
					"selected_arcs": s.SelectedArcs,
				})
			},
		},
		StepArticleGate: {
			Approval: ApprovalArticleReview,
			Step:     StepArticleGate,
			Skip: func(s State) bool {
				return s.Granted(ApprovalArticleReview)
			},
			BuildPayload: func(s State) Payload {
				return artifactPayload(s, ApprovalArticleReview, KindArticle, map[string]any{
					"draft":   s.Draft,
					"outline": s.Outline,
				})
			},
		},
	}
}

// artifactPayload builds the payload for an artifact-review gate, carrying
// the latest evaluation verdict and the escalated marker when the revision
// cap has been reached without a ready artifact.
func artifactPayload(s State, approval ApprovalType, kind ArtifactKind, fields map[string]any) Payload {
	p := Payload{
		Approval:  approval,
		Phase:     s.Phase,
		Fields:    fields,
		Revisions: s.Revisions[kind],
	}
	if ev, ok := s.Evaluations[kind]; ok {
		p.Issues = ev.Issues
		p.Guidance = ev.Guidance
		p.Attempt = ev.Attempt
		p.Escalated = !ev.Ready
		fields["evaluation"] = ev
	}
	return p
}
