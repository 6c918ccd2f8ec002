// ABOUTME: Collaborator contracts for external generation and scoring services, plus RunConfig injection.
// ABOUTME: Nodes receive these through RunConfig so the engine runs unchanged against fakes in tests.
package loom

import (
	"context"
	"time"
)

// TaskKind identifies which generation task a node is requesting.
type TaskKind string

const (
	TaskCurate        TaskKind = "curate"
	TaskThemeAnalysis TaskKind = "theme_analysis"
	TaskOutline       TaskKind = "outline"
	TaskDraft         TaskKind = "draft"
)

// GenerateRequest is a single generation call. Instructions carries the
// task framing, Input the material to work from, and Revision the assembled
// revision context for regeneration attempts (nil on first attempts).
type GenerateRequest struct {
	Task         TaskKind
	Instructions string
	Input        string
	Revision     *RevisionContext
}

// GenerateResult is the raw text produced by the generation service.
type GenerateResult struct {
	Text string
}

// Generator is the external content-generation service. Implementations may
// block on network calls; cancellation flows through ctx.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// ScoreRequest asks the scoring service to score one artifact against a
// rubric's criteria.
type ScoreRequest struct {
	Kind     ArtifactKind
	Artifact string
	Criteria []Criterion
}

// ScoreResult carries per-criterion scores in [0, 1] plus the scorer's
// issue list and revision guidance. Missing criteria score as zero at the
// rubric gate rather than raising.
type ScoreResult struct {
	Scores   map[string]float64
	Issues   []string
	Guidance string
}

// Scorer is the external artifact-scoring service.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
}

// RunConfig carries the injectable dependencies and tuning a node may use.
type RunConfig struct {
	Generator   Generator
	Scorer      Scorer
	Rubrics     map[ArtifactKind]Rubric
	Caps        map[ArtifactKind]int
	MaxParallel int              // scatter-gather concurrency bound
	Now         func() time.Time // nil = time.Now
}

// Clock returns the configured clock, defaulting to time.Now.
func (rc RunConfig) Clock() func() time.Time {
	if rc.Now == nil {
		return time.Now
	}
	return rc.Now
}

// Cap returns the revision cap for a kind, falling back to the defaults.
func (rc RunConfig) Cap(kind ArtifactKind) int {
	if cap, ok := rc.Caps[kind]; ok {
		return cap
	}
	return DefaultCaps()[kind]
}

// Rubric returns the rubric for a kind, falling back to the defaults.
func (rc RunConfig) Rubric(kind ArtifactKind) Rubric {
	if r, ok := rc.Rubrics[kind]; ok {
		return r
	}
	return DefaultRubrics()[kind]
}
