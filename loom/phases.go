// ABOUTME: Phase, ApprovalType, ArtifactKind, and StepID identifiers for the content pipeline.
// ABOUTME: Maps approval types to their gate steps, producing steps, and terminal phase checks.
package loom

// Phase names the pipeline stage a run is currently in. Phases are
// informational; routing is driven by the shape of the state, not the phase.
type Phase string

const (
	PhaseCurate       Phase = "curate"
	PhaseArcSelection Phase = "arc_selection"
	PhaseThemes       Phase = "themes"
	PhaseOutline      Phase = "outline"
	PhaseDraft        Phase = "draft"
	PhaseAssemble     Phase = "assemble"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// ApprovalType names which kind of human decision a checkpoint requests.
// Every approval type is also a valid rollback point.
type ApprovalType string

const (
	ApprovalArcSelection  ApprovalType = "arc_selection"
	ApprovalOutlineReview ApprovalType = "outline_review"
	ApprovalArticleReview ApprovalType = "article_review"
)

// ApprovalTypes lists all approval types in pipeline order.
func ApprovalTypes() []ApprovalType {
	return []ApprovalType{ApprovalArcSelection, ApprovalOutlineReview, ApprovalArticleReview}
}

// ArtifactKind names a revisable artifact tracked by a revision counter.
type ArtifactKind string

const (
	KindOutline ArtifactKind = "outline"
	KindArticle ArtifactKind = "article"
)

// StepID identifies a routable step: a node, a checkpoint gate, or the
// terminal marker StepDone.
type StepID string

const (
	StepCurate          StepID = "curate"
	StepArcGate         StepID = "arc_gate"
	StepThemes          StepID = "themes"
	StepOutline         StepID = "generate_outline"
	StepEvaluateOutline StepID = "evaluate_outline"
	StepOutlineDecision StepID = "outline_decision"
	StepOutlineGate     StepID = "outline_gate"
	StepDraft           StepID = "generate_draft"
	StepEvaluateDraft   StepID = "evaluate_draft"
	StepDraftDecision   StepID = "draft_decision"
	StepArticleGate     StepID = "article_gate"
	StepAssemble        StepID = "assemble"
	StepDone            StepID = "done"
)

// GateStepFor returns the checkpoint gate step for an approval type.
func GateStepFor(approval ApprovalType) StepID {
	switch approval {
	case ApprovalArcSelection:
		return StepArcGate
	case ApprovalOutlineReview:
		return StepOutlineGate
	case ApprovalArticleReview:
		return StepArticleGate
	}
	return StepDone
}

// ProducingStepFor returns the step that produces the artifact associated
// with a rollback point. Rolling back to the point re-enters the loop at
// exactly this step.
func ProducingStepFor(point ApprovalType) StepID {
	switch point {
	case ApprovalArcSelection:
		return StepArcGate
	case ApprovalOutlineReview:
		return StepOutline
	case ApprovalArticleReview:
		return StepDraft
	}
	return StepDone
}

// DefaultCaps returns the default auto-revision caps per artifact kind.
// Earlier, cheaper-to-redo artifacts escalate sooner.
func DefaultCaps() map[ArtifactKind]int {
	return map[ArtifactKind]int{
		KindOutline: 2,
		KindArticle: 3,
	}
}
