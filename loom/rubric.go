// ABOUTME: Weighted evaluation rubrics with structural gating for revisable artifacts.
// ABOUTME: Structural criteria must individually clear the threshold; advisory criteria only shape the overall score.
package loom

import (
	"fmt"
	"math"
)

// DefaultStructuralThreshold is the score every structural criterion must
// clear for an artifact to be ready.
const DefaultStructuralThreshold = 0.8

// Criterion is one rubric entry. Structural criteria gate readiness;
// advisory criteria contribute to the overall score only.
type Criterion struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Structural  bool    `json:"structural"`
}

// Rubric is the fixed weighted rubric for one artifact kind.
type Rubric struct {
	Kind                ArtifactKind `json:"kind"`
	StructuralThreshold float64      `json:"structural_threshold"`
	Criteria            []Criterion  `json:"criteria"`
}

// Evaluation is the verdict for one scored artifact attempt. It reports
// quality only; counters and approval flags are the decision step's job.
type Evaluation struct {
	Kind         ArtifactKind       `json:"kind"`
	Attempt      int                `json:"attempt"`
	Ready        bool               `json:"ready"`
	OverallScore float64            `json:"overall_score"`
	Scores       map[string]float64 `json:"scores"`
	Issues       []string           `json:"issues,omitempty"`
	Guidance     string             `json:"guidance,omitempty"`
}

// Validate checks that the rubric's weights sum to 1.0 and the threshold is
// in (0, 1].
func (r Rubric) Validate() error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("rubric %q has no criteria", r.Kind)
	}
	if r.StructuralThreshold <= 0 || r.StructuralThreshold > 1 {
		return fmt.Errorf("rubric %q threshold %v out of range (0, 1]", r.Kind, r.StructuralThreshold)
	}
	sum := 0.0
	for _, c := range r.Criteria {
		if c.Weight < 0 {
			return fmt.Errorf("rubric %q criterion %q has negative weight", r.Kind, c.Name)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("rubric %q weights sum to %v, want 1.0", r.Kind, sum)
	}
	return nil
}

// Evaluate applies the rubric gate to a set of per-criterion scores.
// A missing score counts as 0, so a scorer that omits a criterion produces a
// structural failure rather than a raised error. The overall score is the
// weighted sum across all criteria regardless of the gate.
func (r Rubric) Evaluate(attempt int, scores map[string]float64, issues []string, guidance string) Evaluation {
	ready := true
	overall := 0.0
	recorded := make(map[string]float64, len(r.Criteria))

	for _, c := range r.Criteria {
		score := clampScore(scores[c.Name])
		recorded[c.Name] = score
		overall += c.Weight * score
		if c.Structural && score < r.StructuralThreshold {
			ready = false
		}
	}

	return Evaluation{
		Kind:         r.Kind,
		Attempt:      attempt,
		Ready:        ready,
		OverallScore: overall,
		Scores:       recorded,
		Issues:       issues,
		Guidance:     guidance,
	}
}

// clampScore bounds a raw score into [0, 1].
func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DefaultRubrics returns the built-in rubrics per artifact kind.
func DefaultRubrics() map[ArtifactKind]Rubric {
	return map[ArtifactKind]Rubric{
		KindOutline: {
			Kind:                KindOutline,
			StructuralThreshold: DefaultStructuralThreshold,
			Criteria: []Criterion{
				{Name: "arc_coverage", Description: "Every selected arc has at least one section carrying it", Weight: 0.30, Structural: true},
				{Name: "evidence_grounding", Description: "Sections reference curated evidence rather than invented material", Weight: 0.30, Structural: true},
				{Name: "progression", Description: "Sections build on each other toward a conclusion", Weight: 0.25, Structural: false},
				{Name: "proportion", Description: "Section scope is balanced against available evidence", Weight: 0.15, Structural: false},
			},
		},
		KindArticle: {
			Kind:                KindArticle,
			StructuralThreshold: DefaultStructuralThreshold,
			Criteria: []Criterion{
				{Name: "outline_fidelity", Description: "The draft follows the approved outline", Weight: 0.25, Structural: true},
				{Name: "factual_grounding", Description: "Claims trace back to curated evidence", Weight: 0.30, Structural: true},
				{Name: "completeness", Description: "No outline section is missing or stubbed", Weight: 0.20, Structural: true},
				{Name: "voice", Description: "Consistent register and readable prose", Weight: 0.15, Structural: false},
				{Name: "tightness", Description: "No padding or repetition", Weight: 0.10, Structural: false},
			},
		},
	}
}
