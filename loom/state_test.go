// ABOUTME: Tests for the state container and the per-field reducer semantics of Apply.
// ABOUTME: Covers purity, no-update sentinels, append monotonicity, merge-object, and error log accumulation.
package loom

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestNewStateMaterializesAllFields(t *testing.T) {
	s := NewState()

	if s.Phase != PhaseCurate {
		t.Errorf("expected initial phase %q, got %q", PhaseCurate, s.Phase)
	}
	if s.SourceDocs == nil || s.Evidence == nil || s.CandidateArcs == nil || s.SelectedArcs == nil {
		t.Error("expected all slice fields to be non-nil")
	}
	if s.ThemeAnalyses == nil || s.Evaluations == nil || s.Revisions == nil ||
		s.Approvals == nil || s.HumanFeedback == nil {
		t.Error("expected all map fields to be non-nil")
	}
	if s.Errors == nil || s.Notes == nil {
		t.Error("expected error log and notes to be non-nil")
	}
	if s.Outline != nil || s.Draft != nil || s.Bundle != nil {
		t.Error("expected artifact pointers to be nil on a fresh state")
	}
}

func TestApplyDoesNotMutateInputs(t *testing.T) {
	s := NewState()
	s = Apply(s, Update{
		Evidence:      &[]Evidence{{ID: "e1", Summary: "first"}},
		CandidateArcs: &[]Arc{{ID: "a1", Title: "Arc One"}},
	})

	before := mustJSON(t, s)
	phase := PhaseOutline
	note := "a note"
	u := Update{
		Phase:       &phase,
		Note:        &note,
		Evaluations: map[ArtifactKind]Evaluation{KindOutline: {Attempt: 1, Ready: true}},
		Errors:      []ErrorRecord{{Kind: ErrKindNode, Message: "boom"}},
	}

	out := Apply(s, u)

	if got := mustJSON(t, s); got != before {
		t.Fatalf("Apply mutated its input state:\nbefore: %s\nafter:  %s", before, got)
	}
	if out.Phase != PhaseOutline {
		t.Errorf("expected phase %q, got %q", PhaseOutline, out.Phase)
	}
	if len(s.Notes) != 0 || len(out.Notes) != 1 {
		t.Errorf("expected note appended to output only, got input=%d output=%d", len(s.Notes), len(out.Notes))
	}
}

func TestApplyNilPointerMeansNoUpdate(t *testing.T) {
	s := NewState()
	s = Apply(s, Update{Outline: &Outline{Attempt: 1, Title: "kept"}})

	out := Apply(s, Update{Draft: &Draft{Attempt: 1, Markdown: "text"}})

	if out.Outline == nil || out.Outline.Title != "kept" {
		t.Error("expected untouched outline to survive an unrelated update")
	}
	if out.Draft == nil {
		t.Error("expected draft to be written")
	}
}

func TestApplyReplaceCopiesArtifact(t *testing.T) {
	o := &Outline{Attempt: 1, Title: "original"}
	s := Apply(NewState(), Update{Outline: o})

	o.Title = "mutated after apply"

	if s.Outline.Title != "original" {
		t.Error("expected Apply to copy the artifact, not share the caller's pointer")
	}
}

func TestApplyAppendListIsMonotonic(t *testing.T) {
	s := NewState()

	s = Apply(s, Update{Errors: []ErrorRecord{{Kind: ErrKindSubStep, Message: "arc-2 analysis failed"}}})
	s = Apply(s, Update{Errors: []ErrorRecord{{Kind: ErrKindNode, Message: "draft generation failed"}}})

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 error records, got %d", len(s.Errors))
	}
	if s.Errors[0].Message != "arc-2 analysis failed" || s.Errors[1].Message != "draft generation failed" {
		t.Errorf("expected errors in append order, got %+v", s.Errors)
	}
}

func TestApplyMergeObjectOverwritesPerKey(t *testing.T) {
	s := NewState()
	s = Apply(s, Update{ThemeAnalyses: map[string]ThemeAnalysis{
		"arc-1": {Arc: "arc-1", Summary: "first"},
		"arc-2": {Arc: "arc-2", Err: "timeout"},
	}})

	s = Apply(s, Update{ThemeAnalyses: map[string]ThemeAnalysis{
		"arc-2": {Arc: "arc-2", Summary: "retried"},
	}})

	if len(s.ThemeAnalyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(s.ThemeAnalyses))
	}
	if s.ThemeAnalyses["arc-1"].Summary != "first" {
		t.Error("expected unrelated key to survive the merge")
	}
	if s.ThemeAnalyses["arc-2"].Summary != "retried" || s.ThemeAnalyses["arc-2"].Err != "" {
		t.Errorf("expected arc-2 overwritten wholesale, got %+v", s.ThemeAnalyses["arc-2"])
	}
}

func TestApplyClearsFlagsViaPointerToEmpty(t *testing.T) {
	awaiting := ApprovalOutlineReview
	override := StepOutline
	s := Apply(NewState(), Update{AwaitingApproval: &awaiting, RouteOverride: &override})

	if s.AwaitingApproval != ApprovalOutlineReview || s.RouteOverride != StepOutline {
		t.Fatal("expected flags to be set")
	}

	clearedA := ApprovalType("")
	clearedR := StepID("")
	s = Apply(s, Update{AwaitingApproval: &clearedA, RouteOverride: &clearedR})

	if s.AwaitingApproval != "" || s.RouteOverride != "" {
		t.Errorf("expected flags cleared, got awaiting=%q override=%q", s.AwaitingApproval, s.RouteOverride)
	}
}

func TestUpdateEmpty(t *testing.T) {
	if !(Update{}).Empty() {
		t.Error("zero update should be empty")
	}
	note := "n"
	if (Update{Note: &note}).Empty() {
		t.Error("update with a note should not be empty")
	}
	if (Update{Revisions: map[ArtifactKind]int{KindOutline: 1}}).Empty() {
		t.Error("update with a revision write should not be empty")
	}
}

func TestGranted(t *testing.T) {
	s := NewState()
	if s.Granted(ApprovalArcSelection) {
		t.Error("fresh state should have no granted approvals")
	}

	s = Apply(s, Update{Approvals: map[ApprovalType]Decision{
		ApprovalArcSelection: {Granted: true, DecidedBy: "editor"},
	}})

	if !s.Granted(ApprovalArcSelection) {
		t.Error("expected arc selection granted")
	}
	if s.Granted(ApprovalOutlineReview) {
		t.Error("unrelated approval should stay ungranted")
	}
}

func TestFieldSpecsCoverStateJSONTags(t *testing.T) {
	tags := make(map[string]bool)
	st := reflect.TypeOf(State{})
	for i := 0; i < st.NumField(); i++ {
		tag := st.Field(i).Tag.Get("json")
		if idx := indexByte(tag, ','); idx >= 0 {
			tag = tag[:idx]
		}
		tags[tag] = true
	}

	for _, f := range Fields() {
		if !tags[f.Name] {
			t.Errorf("field spec %q has no matching State json tag", f.Name)
		}
	}
	if len(Fields()) != st.NumField() {
		t.Errorf("expected %d field specs, got %d", st.NumField(), len(Fields()))
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
