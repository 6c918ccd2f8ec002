// ABOUTME: Tests for revision context assembly and the feedback priority rule.
// ABOUTME: Human feedback leads the block; the section disappears entirely when no feedback exists.
package loom

import (
	"strings"
	"testing"
)

func TestRevisionContextFeedbackOutranksGuidance(t *testing.T) {
	prior := &Evaluation{
		Kind:     KindOutline,
		Attempt:  1,
		Issues:   []string{"section three is unsupported"},
		Guidance: "cut section three or find evidence for it",
	}

	rc := BuildRevisionContext(KindOutline, 2, prior, "the old outline", "lead with the merger story instead")

	feedbackAt := strings.Index(rc.ContextBlock, "lead with the merger story")
	guidanceAt := strings.Index(rc.ContextBlock, "cut section three")
	if feedbackAt < 0 || guidanceAt < 0 {
		t.Fatalf("expected both feedback and guidance present:\n%s", rc.ContextBlock)
	}
	if feedbackAt > guidanceAt {
		t.Error("expected human feedback before evaluator guidance")
	}
	if !strings.Contains(rc.ContextBlock, "highest priority") {
		t.Error("expected feedback marked highest priority")
	}
}

func TestRevisionContextOmitsFeedbackSectionWhenAbsent(t *testing.T) {
	prior := &Evaluation{Kind: KindArticle, Attempt: 1, Guidance: "tighten the intro"}

	rc := BuildRevisionContext(KindArticle, 2, prior, "old draft", "")

	if strings.Contains(rc.ContextBlock, "Reviewer feedback") {
		t.Errorf("expected no feedback section, got:\n%s", rc.ContextBlock)
	}
	if !strings.Contains(rc.ContextBlock, "tighten the intro") {
		t.Error("expected evaluator guidance present")
	}
}

func TestRevisionContextStatesAttemptAndCarriesPriorOutput(t *testing.T) {
	rc := BuildRevisionContext(KindArticle, 3, nil, "verbatim prior draft", "")

	if !strings.Contains(rc.ContextBlock, "attempt 3") {
		t.Errorf("expected attempt number stated:\n%s", rc.ContextBlock)
	}
	if rc.PriorOutputBlock != "verbatim prior draft" {
		t.Errorf("expected prior output carried verbatim, got %q", rc.PriorOutputBlock)
	}
}

func TestRevisionContextListsIssues(t *testing.T) {
	prior := &Evaluation{
		Kind:    KindOutline,
		Attempt: 1,
		Issues:  []string{"no conclusion section", "arc-2 never appears"},
	}

	rc := BuildRevisionContext(KindOutline, 2, prior, "x", "")

	for _, issue := range prior.Issues {
		if !strings.Contains(rc.ContextBlock, issue) {
			t.Errorf("expected issue %q in context block", issue)
		}
	}
}
