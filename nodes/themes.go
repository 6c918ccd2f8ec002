// ABOUTME: Theme analysis node: scatter-gathers one analysis per selected arc under the parallelism bound.
// ABOUTME: Individual arc failures are recorded as sub-step errors; only a total failure fails the node.
package nodes

import (
	"context"
	"fmt"

	"github.com/2389-research/inkwell/loom"
)

// ThemesNode analyzes every selected arc concurrently.
type ThemesNode struct{}

func (n *ThemesNode) Step() loom.StepID { return loom.StepThemes }

func (n *ThemesNode) Run(ctx context.Context, s loom.State, rc loom.RunConfig) (loom.Update, error) {
	if rc.Generator == nil {
		return loom.Update{}, fmt.Errorf("themes: no generator configured")
	}
	if len(s.SelectedArcs) == 0 {
		return loom.Update{}, fmt.Errorf("themes: no arcs selected")
	}

	evidence := renderEvidence(s.Evidence)
	tasks := make([]loom.SubTask[loom.ThemeAnalysis], len(s.SelectedArcs))
	for i, arcID := range s.SelectedArcs {
		arc := arcID
		premise := arcPremise(s.CandidateArcs, arc)
		tasks[i] = loom.SubTask[loom.ThemeAnalysis]{
			Key: arc,
			Run: func(ctx context.Context) (loom.ThemeAnalysis, error) {
				return analyzeArc(ctx, rc.Generator, arc, premise, evidence)
			},
		}
	}

	results := loom.Scatter(ctx, tasks, rc.MaxParallel)

	analyses := make(map[string]loom.ThemeAnalysis, len(results))
	var errRecords []loom.ErrorRecord
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			analyses[r.Key] = loom.ThemeAnalysis{Arc: r.Key, Err: r.Err.Error()}
			errRecords = append(errRecords, loom.NewErrorRecord(loom.ErrKindSubStep, s.Phase,
				fmt.Errorf("theme analysis for %s: %w", r.Key, r.Err)))
			continue
		}
		analyses[r.Key] = r.Value
	}

	if failed == len(results) {
		return loom.Update{}, fmt.Errorf("themes: all %d arc analyses failed", len(results))
	}

	phase := loom.PhaseThemes
	return loom.Update{
		Phase:         &phase,
		ThemeAnalyses: analyses,
		Errors:        errRecords,
	}, nil
}

// analyzeArc runs one theme-analysis sub-step.
func analyzeArc(ctx context.Context, gen loom.Generator, arc, premise, evidence string) (loom.ThemeAnalysis, error) {
	input := fmt.Sprintf("Arc: %s\nPremise: %s\n\n%s", arc, premise, evidence)
	result, err := gen.Generate(ctx, loom.GenerateRequest{
		Task:         loom.TaskThemeAnalysis,
		Instructions: themeInstructions,
		Input:        input,
	})
	if err != nil {
		return loom.ThemeAnalysis{}, err
	}

	var out struct {
		Themes  []string `json:"themes"`
		Summary string   `json:"summary"`
	}
	if err := decodeInto(result.Text, &out); err != nil {
		return loom.ThemeAnalysis{}, err
	}
	return loom.ThemeAnalysis{Arc: arc, Themes: out.Themes, Summary: out.Summary}, nil
}

// arcPremise looks up the premise of a selected arc among the candidates.
func arcPremise(candidates []loom.Arc, id string) string {
	for _, c := range candidates {
		if c.ID == id {
			return c.Premise
		}
	}
	return ""
}
