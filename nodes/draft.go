// ABOUTME: Draft generation node: writes the article Markdown from the approved outline.
// ABOUTME: Regeneration attempts carry the prior draft and the assembled revision context.
package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/inkwell/loom"
)

// DraftNode generates or regenerates the article draft.
type DraftNode struct{}

func (n *DraftNode) Step() loom.StepID { return loom.StepDraft }

func (n *DraftNode) Run(ctx context.Context, s loom.State, rc loom.RunConfig) (loom.Update, error) {
	if rc.Generator == nil {
		return loom.Update{}, fmt.Errorf("draft: no generator configured")
	}
	if s.Outline == nil {
		return loom.Update{}, fmt.Errorf("draft: no approved outline in state")
	}

	attempt := 1
	var revision *loom.RevisionContext
	if s.Draft != nil {
		attempt = s.Draft.Attempt + 1
		prior := priorEvaluation(s, loom.KindArticle)
		rctx := loom.BuildRevisionContext(loom.KindArticle, attempt, prior,
			s.Draft.Markdown, s.HumanFeedback[loom.ApprovalArticleReview])
		revision = &rctx
	}

	var input strings.Builder
	input.WriteString(renderOutline(s.Outline))
	input.WriteString("\n")
	input.WriteString(renderEvidence(s.Evidence))

	result, err := rc.Generator.Generate(ctx, loom.GenerateRequest{
		Task:         loom.TaskDraft,
		Instructions: draftInstructions,
		Input:        input.String(),
		Revision:     revision,
	})
	if err != nil {
		return loom.Update{}, fmt.Errorf("draft attempt %d: %w", attempt, err)
	}

	markdown := strings.TrimSpace(result.Text)
	if markdown == "" {
		return loom.Update{}, fmt.Errorf("draft attempt %d: empty output", attempt)
	}

	phase := loom.PhaseDraft
	return loom.Update{
		Phase: &phase,
		Draft: &loom.Draft{
			Attempt:   attempt,
			Title:     s.Outline.Title,
			Markdown:  markdown,
			WordCount: len(strings.Fields(markdown)),
		},
	}, nil
}
