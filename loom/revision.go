// ABOUTME: Revision context assembly for regeneration attempts.
// ABOUTME: Human feedback outranks evaluator guidance; the feedback section vanishes entirely when absent.
package loom

import (
	"fmt"
	"strings"
)

// RevisionContext is the assembled context handed to a regeneration node.
// ContextBlock carries the instructions; PriorOutputBlock carries the prior
// output verbatim for reference.
type RevisionContext struct {
	ContextBlock     string
	PriorOutputBlock string
}

// BuildRevisionContext assembles the revision context for a regeneration
// attempt. Priority order is fixed: explicit human feedback (when present
// and non-empty) is surfaced first as the highest-priority instruction,
// ahead of automated evaluator guidance. The attempt number is always
// stated, and the prior output is always included verbatim.
func BuildRevisionContext(kind ArtifactKind, attempt int, prior *Evaluation, priorOutput, humanFeedback string) RevisionContext {
	var b strings.Builder

	fmt.Fprintf(&b, "This is revision attempt %d for the %s.\n", attempt, kind)

	if strings.TrimSpace(humanFeedback) != "" {
		b.WriteString("\nReviewer feedback (highest priority, address this first):\n")
		b.WriteString(strings.TrimSpace(humanFeedback))
		b.WriteString("\n")
	}

	if prior != nil {
		if len(prior.Issues) > 0 {
			b.WriteString("\nIssues found by evaluation:\n")
			for _, issue := range prior.Issues {
				fmt.Fprintf(&b, "- %s\n", issue)
			}
		}
		if strings.TrimSpace(prior.Guidance) != "" {
			b.WriteString("\nEvaluator guidance:\n")
			b.WriteString(strings.TrimSpace(prior.Guidance))
			b.WriteString("\n")
		}
	}

	return RevisionContext{
		ContextBlock:     b.String(),
		PriorOutputBlock: priorOutput,
	}
}
