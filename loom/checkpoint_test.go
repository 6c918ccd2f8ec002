// ABOUTME: Tests for checkpoint skip predicates and review payload projections.
// ABOUTME: Payloads are read-only projections; building one never changes the state.
package loom

import "testing"

func TestArcGateSkipsWhenArcsSelected(t *testing.T) {
	cp := DefaultCheckpoints()[StepArcGate]

	if cp.Skip(stateAt(t, withCuration())) {
		t.Error("expected arc gate to suspend with no arcs selected")
	}
	if !cp.Skip(stateAt(t, withCuration(), withArcSelection())) {
		t.Error("expected arc gate to skip once arcs are selected")
	}
}

func TestArtifactGatesSkipWhenGranted(t *testing.T) {
	outlineGate := DefaultCheckpoints()[StepOutlineGate]
	articleGate := DefaultCheckpoints()[StepArticleGate]

	s := stateAt(t, withCuration(), withArcSelection(), withThemes(), withOutline(1))
	if outlineGate.Skip(s) {
		t.Error("expected outline gate to suspend before approval")
	}
	if !outlineGate.Skip(Apply(s, withApproval(ApprovalOutlineReview))) {
		t.Error("expected outline gate to skip once granted")
	}
	if articleGate.Skip(s) {
		t.Error("article gate must not skip off the outline approval")
	}
}

func TestArcGatePayloadFields(t *testing.T) {
	cp := DefaultCheckpoints()[StepArcGate]
	s := stateAt(t, withCuration())

	p := cp.BuildPayload(s)

	if p.Approval != ApprovalArcSelection {
		t.Errorf("expected approval %q, got %q", ApprovalArcSelection, p.Approval)
	}
	arcs, ok := p.Fields["candidate_arcs"].([]Arc)
	if !ok || len(arcs) != 2 {
		t.Errorf("expected candidate arcs projected, got %+v", p.Fields["candidate_arcs"])
	}
	if _, ok := p.Fields["evidence"]; !ok {
		t.Error("expected evidence projected for the reviewer")
	}
}

func TestArtifactPayloadCarriesVerdict(t *testing.T) {
	cp := DefaultCheckpoints()[StepOutlineGate]
	s := stateAt(t, withCuration(), withArcSelection(), withThemes(), withOutline(2),
		Update{
			Evaluations: map[ArtifactKind]Evaluation{KindOutline: {
				Kind: KindOutline, Attempt: 2, Ready: true,
				Issues: []string{"thin conclusion"}, Guidance: "expand the close",
			}},
			Revisions: map[ArtifactKind]int{KindOutline: 1},
		})

	p := cp.BuildPayload(s)

	if p.Attempt != 2 || p.Revisions != 1 {
		t.Errorf("expected attempt 2 and 1 revision, got attempt=%d revisions=%d", p.Attempt, p.Revisions)
	}
	if p.Escalated {
		t.Error("a ready verdict must not be marked escalated")
	}
	if len(p.Issues) != 1 || p.Guidance == "" {
		t.Errorf("expected verdict issues and guidance projected, got %+v", p)
	}
}

func TestArtifactPayloadMarksEscalation(t *testing.T) {
	cp := DefaultCheckpoints()[StepArticleGate]
	s := stateAt(t, withCuration(), withArcSelection(), withThemes(),
		withOutline(1), withApproval(ApprovalOutlineReview), withDraft(4),
		withEvaluation(KindArticle, 4, false),
		Update{Revisions: map[ArtifactKind]int{KindArticle: 3}})

	p := cp.BuildPayload(s)

	if !p.Escalated {
		t.Error("expected a non-ready verdict at the gate to be marked escalated")
	}
	if p.Revisions != 3 {
		t.Errorf("expected 3 revisions reported, got %d", p.Revisions)
	}
}

func TestBuildPayloadDoesNotTouchState(t *testing.T) {
	s := stateAt(t, withCuration(), withArcSelection(), withThemes(), withOutline(1),
		withEvaluation(KindOutline, 1, true))
	before := mustJSON(t, s)

	for _, cp := range DefaultCheckpoints() {
		cp.BuildPayload(s)
	}

	if got := mustJSON(t, s); got != before {
		t.Error("payload projection mutated state")
	}
}
