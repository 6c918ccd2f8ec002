// ABOUTME: Pure, data-driven phase router: inspects state shape and returns the next step to run.
// ABOUTME: Routing keys off artifact presence and staleness, never a resume cursor, so a reload re-routes itself.
package loom

// Route computes the next step for the given state. It is a pure function:
// repeated calls with the same state return the same step. The decision is
// driven by the presence and staleness of data so a persisted run can be
// re-routed after a restart without a separate resume cursor. A non-empty
// RouteOverride short-circuits the data-driven decision for one step; a
// pending approval routes to its gate ahead of everything else.
func Route(s State) StepID {
	if s.Phase.Terminal() {
		return StepDone
	}
	if s.RouteOverride != "" {
		return s.RouteOverride
	}
	if s.AwaitingApproval != "" {
		return GateStepFor(s.AwaitingApproval)
	}

	if len(s.Evidence) == 0 || len(s.CandidateArcs) == 0 {
		return StepCurate
	}
	if len(s.SelectedArcs) == 0 {
		return StepArcGate
	}
	if len(s.ThemeAnalyses) == 0 {
		return StepThemes
	}

	if s.Outline == nil {
		return StepOutline
	}
	if !s.Granted(ApprovalOutlineReview) {
		if evaluationStale(s, KindOutline, s.Outline.Attempt) {
			return StepEvaluateOutline
		}
		return StepOutlineDecision
	}

	if s.Draft == nil {
		return StepDraft
	}
	if !s.Granted(ApprovalArticleReview) {
		if evaluationStale(s, KindArticle, s.Draft.Attempt) {
			return StepEvaluateDraft
		}
		return StepDraftDecision
	}

	if s.Bundle == nil {
		return StepAssemble
	}
	return StepDone
}

// evaluationStale reports whether the recorded evaluation for kind is
// missing or scored a different attempt than the current artifact.
func evaluationStale(s State, kind ArtifactKind, attempt int) bool {
	ev, ok := s.Evaluations[kind]
	return !ok || ev.Attempt != attempt
}
