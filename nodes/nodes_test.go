// ABOUTME: Tests for the generation nodes against a scripted fake generator.
// ABOUTME: Covers attempt tagging, revision context wiring, sub-step failure recording, and assembly.
package nodes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/2389-research/inkwell/loom"
)

// fakeGenerator returns canned output per task kind and records requests.
type fakeGenerator struct {
	mu       sync.Mutex
	outputs  map[loom.TaskKind]string
	errs     map[loom.TaskKind]error
	requests []loom.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req loom.GenerateRequest) (*loom.GenerateResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := f.errs[req.Task]; err != nil {
		return nil, err
	}
	return &loom.GenerateResult{Text: f.outputs[req.Task]}, nil
}

func (f *fakeGenerator) lastRequest(t *testing.T) loom.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no generate requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func curatedState() loom.State {
	arcs := []string{"arc-1", "arc-2"}
	return loom.Apply(loom.NewState(), loom.Update{
		SourceDocs:    []loom.Document{{ID: "doc-1", Title: "Notes", Body: "raw"}},
		Evidence:      &[]loom.Evidence{{ID: "e1", Source: "doc-1", Summary: "a finding"}},
		CandidateArcs: &[]loom.Arc{{ID: "arc-1", Title: "Rise", Premise: "growth"}, {ID: "arc-2", Title: "Fall"}},
		SelectedArcs:  &arcs,
	})
}

// --- Curate ---

func TestCurateNode(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskCurate: `{"evidence": [{"id": "e1", "source": "doc-1", "summary": "finding"}],
			"candidate_arcs": [{"id": "arc-1", "title": "Rise", "premise": "growth"}]}`,
	}}
	s := loom.Apply(loom.NewState(), loom.Update{
		SourceDocs: []loom.Document{{ID: "doc-1", Title: "Notes", Body: "raw"}},
	})

	u, err := (&CurateNode{}).Run(context.Background(), s, loom.RunConfig{Generator: gen})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if u.Evidence == nil || len(*u.Evidence) != 1 {
		t.Errorf("expected 1 evidence item, got %+v", u.Evidence)
	}
	if u.CandidateArcs == nil || len(*u.CandidateArcs) != 1 {
		t.Errorf("expected 1 candidate arc, got %+v", u.CandidateArcs)
	}
	if u.Phase == nil || *u.Phase != loom.PhaseArcSelection {
		t.Errorf("expected phase advance to %q", loom.PhaseArcSelection)
	}
	if req := gen.lastRequest(t); !strings.Contains(req.Input, "doc-1") {
		t.Error("expected source documents rendered into the input")
	}
}

func TestCurateNodeEmptyOutputFails(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskCurate: `{"evidence": [], "candidate_arcs": []}`,
	}}
	s := loom.Apply(loom.NewState(), loom.Update{
		SourceDocs: []loom.Document{{ID: "doc-1"}},
	})

	if _, err := (&CurateNode{}).Run(context.Background(), s, loom.RunConfig{Generator: gen}); err == nil {
		t.Error("expected an error for empty curation output")
	}
}

// --- Themes ---

func TestThemesNodeScattersPerArc(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskThemeAnalysis: `{"themes": ["ambition"], "summary": "well supported"}`,
	}}

	u, err := (&ThemesNode{}).Run(context.Background(), curatedState(), loom.RunConfig{Generator: gen, MaxParallel: 2})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(u.ThemeAnalyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(u.ThemeAnalyses))
	}
	for _, arc := range []string{"arc-1", "arc-2"} {
		ta := u.ThemeAnalyses[arc]
		if ta.Err != "" || len(ta.Themes) == 0 {
			t.Errorf("arc %s: expected a healthy analysis, got %+v", arc, ta)
		}
	}
	if len(u.Errors) != 0 {
		t.Errorf("expected no sub-step errors, got %+v", u.Errors)
	}
}

func TestThemesNodePartialFailureRecorded(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	gen := &scriptedGenerator{fn: func(req loom.GenerateRequest) (*loom.GenerateResult, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("upstream timeout")
		}
		return &loom.GenerateResult{Text: `{"themes": ["t"], "summary": "s"}`}, nil
	}}

	u, err := (&ThemesNode{}).Run(context.Background(), curatedState(), loom.RunConfig{Generator: gen, MaxParallel: 1})
	if err != nil {
		t.Fatalf("a partial failure must not fail the node: %v", err)
	}

	failed, healthy := 0, 0
	for _, ta := range u.ThemeAnalyses {
		if ta.Err != "" {
			failed++
		} else {
			healthy++
		}
	}
	if failed != 1 || healthy != 1 {
		t.Errorf("expected 1 failed and 1 healthy analysis, got failed=%d healthy=%d", failed, healthy)
	}
	if len(u.Errors) != 1 || u.Errors[0].Kind != loom.ErrKindSubStep {
		t.Errorf("expected one sub_step_failure record, got %+v", u.Errors)
	}
}

func TestThemesNodeTotalFailureFails(t *testing.T) {
	gen := &fakeGenerator{
		outputs: map[loom.TaskKind]string{},
		errs:    map[loom.TaskKind]error{loom.TaskThemeAnalysis: errors.New("down")},
	}

	if _, err := (&ThemesNode{}).Run(context.Background(), curatedState(), loom.RunConfig{Generator: gen}); err == nil {
		t.Error("expected an error when every arc analysis fails")
	}
}

// scriptedGenerator delegates to a function.
type scriptedGenerator struct {
	fn func(loom.GenerateRequest) (*loom.GenerateResult, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, req loom.GenerateRequest) (*loom.GenerateResult, error) {
	return g.fn(req)
}

// --- Outline ---

func TestOutlineNodeFirstAttempt(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskOutline: `{"title": "The Piece", "sections": [{"heading": "Intro", "beats": ["hook"]}]}`,
	}}
	s := loom.Apply(curatedState(), loom.Update{
		ThemeAnalyses: map[string]loom.ThemeAnalysis{"arc-1": {Arc: "arc-1", Themes: []string{"t"}}},
	})

	u, err := (&OutlineNode{}).Run(context.Background(), s, loom.RunConfig{Generator: gen})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if u.Outline == nil || u.Outline.Attempt != 1 {
		t.Fatalf("expected outline attempt 1, got %+v", u.Outline)
	}
	if req := gen.lastRequest(t); req.Revision != nil {
		t.Error("first attempt must not carry a revision context")
	}
}

func TestOutlineNodeRegenerationCarriesRevisionContext(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskOutline: `{"title": "The Piece", "sections": [{"heading": "Reworked"}]}`,
	}}
	s := loom.Apply(curatedState(), loom.Update{
		ThemeAnalyses: map[string]loom.ThemeAnalysis{"arc-1": {Arc: "arc-1"}},
		Outline:       &loom.Outline{Attempt: 1, Title: "Old", Sections: []loom.OutlineSection{{Heading: "Intro"}}},
		Evaluations: map[loom.ArtifactKind]loom.Evaluation{
			loom.KindOutline: {Kind: loom.KindOutline, Attempt: 1, Issues: []string{"arc-2 missing"}},
		},
		HumanFeedback: map[loom.ApprovalType]string{loom.ApprovalOutlineReview: "lead with the merger"},
	})

	u, err := (&OutlineNode{}).Run(context.Background(), s, loom.RunConfig{Generator: gen})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if u.Outline.Attempt != 2 {
		t.Errorf("expected attempt 2, got %d", u.Outline.Attempt)
	}
	req := gen.lastRequest(t)
	if req.Revision == nil {
		t.Fatal("expected a revision context on regeneration")
	}
	if !strings.Contains(req.Revision.ContextBlock, "lead with the merger") {
		t.Error("expected human feedback in the revision context")
	}
	if !strings.Contains(req.Revision.ContextBlock, "arc-2 missing") {
		t.Error("expected evaluator issues in the revision context")
	}
	if !strings.Contains(req.Revision.PriorOutputBlock, "Old") {
		t.Error("expected the prior outline carried verbatim")
	}
}

// --- Draft ---

func TestDraftNode(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{
		loom.TaskDraft: "# The Piece\n\nOpening paragraph with five words here.",
	}}
	s := loom.Apply(curatedState(), loom.Update{
		Outline: &loom.Outline{Attempt: 1, Title: "The Piece", Sections: []loom.OutlineSection{{Heading: "Intro"}}},
	})

	u, err := (&DraftNode{}).Run(context.Background(), s, loom.RunConfig{Generator: gen})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if u.Draft == nil || u.Draft.Attempt != 1 {
		t.Fatalf("expected draft attempt 1, got %+v", u.Draft)
	}
	if u.Draft.Title != "The Piece" {
		t.Errorf("expected title from outline, got %q", u.Draft.Title)
	}
	if u.Draft.WordCount == 0 {
		t.Error("expected a word count")
	}
}

func TestDraftNodeRequiresOutline(t *testing.T) {
	gen := &fakeGenerator{outputs: map[loom.TaskKind]string{loom.TaskDraft: "# x"}}
	if _, err := (&DraftNode{}).Run(context.Background(), curatedState(), loom.RunConfig{Generator: gen}); err == nil {
		t.Error("expected an error without an outline")
	}
}

// --- Assemble ---

func TestAssembleNodeRendersHTML(t *testing.T) {
	s := loom.Apply(curatedState(), loom.Update{
		Draft: &loom.Draft{Attempt: 1, Title: "The Piece", Markdown: "# The Piece\n\nBody text."},
	})

	u, err := NewAssembleNode().Run(context.Background(), s, loom.RunConfig{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if u.Bundle == nil {
		t.Fatal("expected a bundle")
	}
	if !strings.Contains(u.Bundle.HTML, "<h1") {
		t.Errorf("expected rendered heading, got %q", u.Bundle.HTML)
	}
	if u.Phase == nil || *u.Phase != loom.PhaseComplete {
		t.Error("expected assembly to close out the run")
	}
	if u.Bundle.AssembledAt.IsZero() {
		t.Error("expected an assembly timestamp")
	}
}

func TestRegisterCoversAllGenerationSteps(t *testing.T) {
	reg := loom.NewNodeRegistry()
	Register(reg)

	for _, step := range []loom.StepID{
		loom.StepCurate, loom.StepThemes, loom.StepOutline, loom.StepDraft, loom.StepAssemble,
	} {
		if reg.Get(step) == nil {
			t.Errorf("no node registered for %q", step)
		}
	}
}
