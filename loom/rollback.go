// ABOUTME: Rollback table and the Rollback operation: clears downstream fields and resets revision counters.
// ABOUTME: Clear sets grow monotonically toward earlier points; upstream approved decisions are never touched.
package loom

import (
	"fmt"
)

// RollbackSpec declares what rolling back to one point clears. Whole fields
// in ClearFields are reset to their zero value; keyed entries in the
// evaluation, approval, and feedback maps are removed per key so upstream
// decisions survive.
type RollbackSpec struct {
	Point            ApprovalType
	Phase            Phase // phase the run re-enters
	ClearFields      []string
	ClearEvaluations []ArtifactKind
	ClearApprovals   []ApprovalType
	ResetCounters    []ArtifactKind
}

// rollbackTable is the static rollback table in pipeline order. The clear
// set of an earlier point is a strict superset of every later point's.
var rollbackTable = map[ApprovalType]RollbackSpec{
	ApprovalArcSelection: {
		Point:            ApprovalArcSelection,
		Phase:            PhaseArcSelection,
		ClearFields:      []string{"selected_arcs", "theme_analyses", "outline", "draft", "content_bundle"},
		ClearEvaluations: []ArtifactKind{KindOutline, KindArticle},
		ClearApprovals:   []ApprovalType{ApprovalArcSelection, ApprovalOutlineReview, ApprovalArticleReview},
		ResetCounters:    []ArtifactKind{KindOutline, KindArticle},
	},
	ApprovalOutlineReview: {
		Point:            ApprovalOutlineReview,
		Phase:            PhaseOutline,
		ClearFields:      []string{"outline", "draft", "content_bundle"},
		ClearEvaluations: []ArtifactKind{KindOutline, KindArticle},
		ClearApprovals:   []ApprovalType{ApprovalOutlineReview, ApprovalArticleReview},
		ResetCounters:    []ArtifactKind{KindOutline, KindArticle},
	},
	ApprovalArticleReview: {
		Point:            ApprovalArticleReview,
		Phase:            PhaseDraft,
		ClearFields:      []string{"draft", "content_bundle"},
		ClearEvaluations: []ArtifactKind{KindArticle},
		ClearApprovals:   []ApprovalType{ApprovalArticleReview},
		ResetCounters:    []ArtifactKind{KindArticle},
	},
}

// RollbackPoints returns the valid rollback points in pipeline order.
func RollbackPoints() []ApprovalType {
	return ApprovalTypes()
}

// RollbackSpecFor returns the spec for a rollback point.
func RollbackSpecFor(point ApprovalType) (RollbackSpec, error) {
	spec, ok := rollbackTable[point]
	if !ok {
		return RollbackSpec{}, fmt.Errorf("%w: %q", ErrUnknownRollbackPoint, point)
	}
	return spec, nil
}

// ClearSet returns the full set of cleared identifiers for a point, for
// whole fields and keyed entries alike. Used to check the superset
// invariant across points.
func ClearSet(point ApprovalType) (map[string]bool, error) {
	spec, err := RollbackSpecFor(point)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range spec.ClearFields {
		set[f] = true
	}
	for _, k := range spec.ClearEvaluations {
		set["evaluations."+string(k)] = true
	}
	for _, a := range spec.ClearApprovals {
		set["approvals."+string(a)] = true
	}
	return set, nil
}

// Rollback rewinds state to just before the given point: downstream
// artifacts are cleared, the associated revision counters reset to zero,
// and any pending suspension or route override is dropped. Every other
// field, including upstream approved decisions, is left untouched. The
// target is validated before anything is mutated.
func Rollback(s State, point ApprovalType) (State, error) {
	spec, err := RollbackSpecFor(point)
	if err != nil {
		return State{}, err
	}

	out := s
	out.Phase = spec.Phase
	out.AwaitingApproval = ""
	out.RouteOverride = ""

	for _, field := range spec.ClearFields {
		switch field {
		case "selected_arcs":
			out.SelectedArcs = []string{}
		case "theme_analyses":
			out.ThemeAnalyses = map[string]ThemeAnalysis{}
		case "outline":
			out.Outline = nil
		case "draft":
			out.Draft = nil
		case "content_bundle":
			out.Bundle = nil
		default:
			return State{}, fmt.Errorf("%w: rollback table references %q", ErrUnknownField, field)
		}
	}

	out.Evaluations = withoutKeys(s.Evaluations, spec.ClearEvaluations)
	out.Approvals = withoutKeys(s.Approvals, spec.ClearApprovals)
	out.HumanFeedback = withoutKeys(s.HumanFeedback, spec.ClearApprovals)

	revisions := make(map[ArtifactKind]int, len(s.Revisions))
	for k, v := range s.Revisions {
		revisions[k] = v
	}
	for _, k := range spec.ResetCounters {
		revisions[k] = 0
	}
	out.Revisions = revisions

	return out, nil
}

// withoutKeys copies a map, dropping the listed keys.
func withoutKeys[K comparable, V any](in map[K]V, drop []K) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, k := range drop {
		delete(out, k)
	}
	return out
}
