// ABOUTME: Outline generation node: produces the article outline from arcs, themes, and evidence.
// ABOUTME: Regeneration attempts carry the assembled revision context with reviewer feedback first.
package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/inkwell/loom"
)

// OutlineNode generates or regenerates the article outline.
type OutlineNode struct{}

func (n *OutlineNode) Step() loom.StepID { return loom.StepOutline }

func (n *OutlineNode) Run(ctx context.Context, s loom.State, rc loom.RunConfig) (loom.Update, error) {
	if rc.Generator == nil {
		return loom.Update{}, fmt.Errorf("outline: no generator configured")
	}

	attempt := 1
	var revision *loom.RevisionContext
	if s.Outline != nil {
		attempt = s.Outline.Attempt + 1
		prior := priorEvaluation(s, loom.KindOutline)
		rctx := loom.BuildRevisionContext(loom.KindOutline, attempt, prior,
			renderOutline(s.Outline), s.HumanFeedback[loom.ApprovalOutlineReview])
		revision = &rctx
	}

	var input strings.Builder
	fmt.Fprintf(&input, "Selected arcs: %s\n\n", strings.Join(s.SelectedArcs, ", "))
	input.WriteString(renderThemes(s.ThemeAnalyses, s.SelectedArcs))
	input.WriteString("\n")
	input.WriteString(renderEvidence(s.Evidence))

	result, err := rc.Generator.Generate(ctx, loom.GenerateRequest{
		Task:         loom.TaskOutline,
		Instructions: outlineInstructions,
		Input:        input.String(),
		Revision:     revision,
	})
	if err != nil {
		return loom.Update{}, fmt.Errorf("outline attempt %d: %w", attempt, err)
	}

	var out struct {
		Title    string                `json:"title"`
		Sections []loom.OutlineSection `json:"sections"`
	}
	if err := decodeInto(result.Text, &out); err != nil {
		return loom.Update{}, fmt.Errorf("outline attempt %d: %w", attempt, err)
	}
	if out.Title == "" || len(out.Sections) == 0 {
		return loom.Update{}, fmt.Errorf("outline attempt %d: missing title or sections", attempt)
	}

	phase := loom.PhaseOutline
	return loom.Update{
		Phase:   &phase,
		Outline: &loom.Outline{Attempt: attempt, Title: out.Title, Sections: out.Sections},
	}, nil
}

// priorEvaluation returns the recorded evaluation for a kind, or nil.
func priorEvaluation(s loom.State, kind loom.ArtifactKind) *loom.Evaluation {
	if ev, ok := s.Evaluations[kind]; ok {
		return &ev
	}
	return nil
}
