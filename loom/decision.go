// ABOUTME: Decodes human-decision objects from the review surface into typed partial updates.
// ABOUTME: Unknown fields and malformed decisions are rejected before any state mutation.
package loom

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// decisionDoc is the accepted wire shape for a human decision. Fields not
// applicable to the pending approval type are rejected, not ignored.
type decisionDoc struct {
	Approved     *bool    `json:"approved"`
	SelectedArcs []string `json:"selected_arcs"`
	Feedback     string   `json:"feedback"`
	DecidedBy    string   `json:"decided_by"`
}

var decisionFields = map[ApprovalType]map[string]bool{
	ApprovalArcSelection: {
		"selected_arcs": true,
		"feedback":      true,
		"decided_by":    true,
	},
	ApprovalOutlineReview: {
		"approved":   true,
		"feedback":   true,
		"decided_by": true,
	},
	ApprovalArticleReview: {
		"approved":   true,
		"feedback":   true,
		"decided_by": true,
	},
}

// DecodeDecision parses a raw human-decision object for the given pending
// approval and returns the partial update that resuming merges into state.
// The update always clears AwaitingApproval. A rejected artifact decision
// carries the reviewer's feedback and a one-shot route override back to the
// producing step; rejection without feedback is invalid.
func DecodeDecision(approval ApprovalType, raw json.RawMessage) (Update, error) {
	allowed, ok := decisionFields[approval]
	if !ok {
		return Update{}, fmt.Errorf("%w: %q", ErrUnknownApproval, approval)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	for k := range keys {
		if !allowed[k] {
			return Update{}, fmt.Errorf("%w: %q not accepted for %s", ErrUnknownField, k, approval)
		}
	}

	var doc decisionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}

	cleared := ApprovalType("")
	u := Update{AwaitingApproval: &cleared}

	switch approval {
	case ApprovalArcSelection:
		if len(doc.SelectedArcs) == 0 {
			return Update{}, fmt.Errorf("%w: selected_arcs must not be empty", ErrInvalidDecision)
		}
		arcs := make([]string, len(doc.SelectedArcs))
		copy(arcs, doc.SelectedArcs)
		u.SelectedArcs = &arcs
		u.Approvals = map[ApprovalType]Decision{
			approval: {Granted: true, Feedback: doc.Feedback, DecidedBy: doc.DecidedBy, DecidedAt: time.Now()},
		}
		return u, nil

	case ApprovalOutlineReview, ApprovalArticleReview:
		if doc.Approved == nil {
			return Update{}, fmt.Errorf("%w: approved is required", ErrInvalidDecision)
		}
		if *doc.Approved {
			u.Approvals = map[ApprovalType]Decision{
				approval: {Granted: true, Feedback: doc.Feedback, DecidedBy: doc.DecidedBy, DecidedAt: time.Now()},
			}
			return u, nil
		}
		if strings.TrimSpace(doc.Feedback) == "" {
			return Update{}, fmt.Errorf("%w: rejecting requires feedback", ErrInvalidDecision)
		}
		u.HumanFeedback = map[ApprovalType]string{approval: doc.Feedback}
		override := regenStepFor(approval)
		u.RouteOverride = &override
		return u, nil
	}

	return Update{}, fmt.Errorf("%w: %q", ErrInvalidDecision, approval)
}

// regenStepFor maps an artifact-review approval to its regeneration step.
func regenStepFor(approval ApprovalType) StepID {
	if approval == ApprovalArticleReview {
		return StepDraft
	}
	return StepOutline
}
