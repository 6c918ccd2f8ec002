// ABOUTME: Node contract and registry, plus the built-in evaluator and decision nodes.
// ABOUTME: Evaluator nodes report verdicts only; decision nodes own counters, overrides, and escalation.
package loom

import (
	"context"
	"encoding/json"
	"fmt"
)

// Node is a unit of work: it reads the state snapshot, may call external
// collaborators through RunConfig, and returns a partial update. Nodes
// never mutate state directly.
type Node interface {
	// Step returns the step ID the node is registered under.
	Step() StepID

	// Run executes the node against an immutable state snapshot.
	Run(ctx context.Context, s State, rc RunConfig) (Update, error)
}

// NodeRegistry maps step IDs to node implementations.
type NodeRegistry struct {
	nodes map[StepID]Node
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[StepID]Node)}
}

// Register adds a node, replacing any previous node for the same step.
func (r *NodeRegistry) Register(n Node) {
	r.nodes[n.Step()] = n
}

// Get returns the node for a step, or nil.
func (r *NodeRegistry) Get(step StepID) Node {
	return r.nodes[step]
}

// CoreNodes returns the engine's built-in nodes: one evaluator and one
// decision node per revisable artifact kind.
func CoreNodes() []Node {
	return []Node{
		&EvaluateNode{At: StepEvaluateOutline, Kind: KindOutline},
		&EvaluateNode{At: StepEvaluateDraft, Kind: KindArticle},
		&DecisionNode{At: StepOutlineDecision, Kind: KindOutline, Approval: ApprovalOutlineReview, Regen: StepOutline},
		&DecisionNode{At: StepDraftDecision, Kind: KindArticle, Approval: ApprovalArticleReview, Regen: StepDraft},
	}
}

// EvaluateNode scores the current artifact of its kind against the rubric
// and records the verdict. It never touches counters or approval flags.
type EvaluateNode struct {
	At   StepID
	Kind ArtifactKind
}

// Step returns the node's step ID.
func (n *EvaluateNode) Step() StepID { return n.At }

// Run scores the artifact through the external scorer and applies the
// rubric gate. Scorer output that omits criteria fails the gate rather
// than raising.
func (n *EvaluateNode) Run(ctx context.Context, s State, rc RunConfig) (Update, error) {
	if rc.Scorer == nil {
		return Update{}, fmt.Errorf("evaluate %s: no scorer configured", n.Kind)
	}

	artifact, attempt, err := artifactText(s, n.Kind)
	if err != nil {
		return Update{}, err
	}

	rubric := rc.Rubric(n.Kind)
	result, err := rc.Scorer.Score(ctx, ScoreRequest{
		Kind:     n.Kind,
		Artifact: artifact,
		Criteria: rubric.Criteria,
	})
	if err != nil {
		return Update{}, fmt.Errorf("score %s attempt %d: %w", n.Kind, attempt, err)
	}

	ev := rubric.Evaluate(attempt, result.Scores, result.Issues, result.Guidance)
	return Update{Evaluations: map[ArtifactKind]Evaluation{n.Kind: ev}}, nil
}

// artifactText renders the current artifact of a kind for scoring and
// returns the attempt it carries.
func artifactText(s State, kind ArtifactKind) (string, int, error) {
	switch kind {
	case KindOutline:
		if s.Outline == nil {
			return "", 0, fmt.Errorf("evaluate outline: no outline in state")
		}
		data, err := json.MarshalIndent(s.Outline, "", "  ")
		if err != nil {
			return "", 0, fmt.Errorf("marshal outline: %w", err)
		}
		return string(data), s.Outline.Attempt, nil
	case KindArticle:
		if s.Draft == nil {
			return "", 0, fmt.Errorf("evaluate article: no draft in state")
		}
		return s.Draft.Markdown, s.Draft.Attempt, nil
	}
	return "", 0, fmt.Errorf("artifact text: unknown kind %q", kind)
}

// DecisionNode is the control step that runs after an evaluation. A ready
// verdict requests the review checkpoint; a non-ready verdict under the cap
// increments the revision counter and forces one regeneration; at the cap
// it escalates to the checkpoint instead of looping.
type DecisionNode struct {
	At       StepID
	Kind     ArtifactKind
	Approval ApprovalType
	Regen    StepID
}

// Step returns the node's step ID.
func (n *DecisionNode) Step() StepID { return n.At }

// Run inspects the recorded evaluation and routes accordingly. It is pure
// control flow: no external calls.
func (n *DecisionNode) Run(ctx context.Context, s State, rc RunConfig) (Update, error) {
	ev, ok := s.Evaluations[n.Kind]
	if !ok {
		return Update{}, fmt.Errorf("decision %s: no evaluation in state", n.Kind)
	}

	if ev.Ready {
		approval := n.Approval
		return Update{AwaitingApproval: &approval}, nil
	}

	if s.Revisions[n.Kind] >= rc.Cap(n.Kind) {
		approval := n.Approval
		note := fmt.Sprintf("%s revision cap reached after attempt %d, escalating to %s", n.Kind, ev.Attempt, n.Approval)
		return Update{AwaitingApproval: &approval, Note: &note}, nil
	}

	regen := n.Regen
	return Update{
		Revisions:     map[ArtifactKind]int{n.Kind: s.Revisions[n.Kind] + 1},
		RouteOverride: &regen,
	}, nil
}
