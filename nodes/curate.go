// ABOUTME: Curation node: extracts evidence items and candidate narrative arcs from the source documents.
// ABOUTME: Empty curation output is a node failure, not a silent empty stage.
package nodes

import (
	"context"
	"fmt"

	"github.com/2389-research/inkwell/loom"
)

// CurateNode runs the curation stage against the generation service.
type CurateNode struct{}

func (n *CurateNode) Step() loom.StepID { return loom.StepCurate }

func (n *CurateNode) Run(ctx context.Context, s loom.State, rc loom.RunConfig) (loom.Update, error) {
	if rc.Generator == nil {
		return loom.Update{}, fmt.Errorf("curate: no generator configured")
	}
	if len(s.SourceDocs) == 0 {
		return loom.Update{}, fmt.Errorf("curate: no source documents")
	}

	result, err := rc.Generator.Generate(ctx, loom.GenerateRequest{
		Task:         loom.TaskCurate,
		Instructions: curateInstructions,
		Input:        renderDocs(s.SourceDocs),
	})
	if err != nil {
		return loom.Update{}, fmt.Errorf("curate: %w", err)
	}

	var out struct {
		Evidence      []loom.Evidence `json:"evidence"`
		CandidateArcs []loom.Arc      `json:"candidate_arcs"`
	}
	if err := decodeInto(result.Text, &out); err != nil {
		return loom.Update{}, fmt.Errorf("curate: %w", err)
	}
	if len(out.Evidence) == 0 || len(out.CandidateArcs) == 0 {
		return loom.Update{}, fmt.Errorf("curate: produced %d evidence items and %d arcs, need at least one of each",
			len(out.Evidence), len(out.CandidateArcs))
	}

	phase := loom.PhaseArcSelection
	return loom.Update{
		Phase:         &phase,
		Evidence:      &out.Evidence,
		CandidateArcs: &out.CandidateArcs,
	}, nil
}
