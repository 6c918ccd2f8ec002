// ABOUTME: WorkflowState container with per-field reducers: replace, append-list, append-single, merge-object.
// ABOUTME: Apply folds a node's partial Update into a new State without mutating either input.
package loom

import (
	"time"
)

// Document is an input source document for a run.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Evidence is one curated evidence item extracted from the source documents.
type Evidence struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Summary string   `json:"summary"`
	Arcs    []string `json:"arcs,omitempty"`
}

// Arc is a candidate narrative arc proposed during curation.
type Arc struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Premise string `json:"premise"`
}

// ThemeAnalysis is the analysis result for one selected arc. A non-empty Err
// marks a failed sub-step; the gather step records it instead of failing the run.
type ThemeAnalysis struct {
	Arc     string   `json:"arc"`
	Themes  []string `json:"themes,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Err     string   `json:"err,omitempty"`
}

// OutlineSection is one section of the article outline.
type OutlineSection struct {
	Heading string   `json:"heading"`
	Beats   []string `json:"beats,omitempty"`
}

// Outline is the article outline artifact. Attempt tags the generation
// attempt so evaluations can be matched against the artifact they scored.
type Outline struct {
	Attempt  int              `json:"attempt"`
	Title    string           `json:"title"`
	Sections []OutlineSection `json:"sections"`
}

// Draft is the article draft artifact.
type Draft struct {
	Attempt   int    `json:"attempt"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	WordCount int    `json:"word_count"`
}

// Bundle is the final assembled content bundle.
type Bundle struct {
	Title       string    `json:"title"`
	Markdown    string    `json:"markdown"`
	HTML        string    `json:"html"`
	AssembledAt time.Time `json:"assembled_at"`
}

// Decision records a human approval decision for one approval type.
type Decision struct {
	Granted   bool      `json:"granted"`
	Feedback  string    `json:"feedback,omitempty"`
	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ErrorRecord is a structured entry in the run's error log.
type ErrorRecord struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the single source of truth for a run. Every field is materialized
// by NewState, so downstream code never needs a nil guard for "not yet set".
// State values are only ever produced by NewState, Apply, and Rollback.
type State struct {
	Phase            Phase                         `json:"phase"`
	AwaitingApproval ApprovalType                  `json:"awaiting_approval"`
	RouteOverride    StepID                        `json:"route_override"`
	SourceDocs       []Document                    `json:"source_docs"`
	Evidence         []Evidence                    `json:"evidence"`
	CandidateArcs    []Arc                         `json:"candidate_arcs"`
	SelectedArcs     []string                      `json:"selected_arcs"`
	ThemeAnalyses    map[string]ThemeAnalysis      `json:"theme_analyses"`
	Outline          *Outline                      `json:"outline"`
	Draft            *Draft                        `json:"draft"`
	Bundle           *Bundle                       `json:"content_bundle"`
	Evaluations      map[ArtifactKind]Evaluation   `json:"evaluations"`
	Revisions        map[ArtifactKind]int          `json:"revisions"`
	Approvals        map[ApprovalType]Decision     `json:"approvals"`
	HumanFeedback    map[ApprovalType]string       `json:"human_feedback"`
	Errors           []ErrorRecord                 `json:"errors"`
	Notes            []string                      `json:"notes"`
}

// NewState returns the fully-materialized default state for a fresh run.
func NewState() State {
	return State{
		Phase:         PhaseCurate,
		SourceDocs:    []Document{},
		Evidence:      []Evidence{},
		CandidateArcs: []Arc{},
		SelectedArcs:  []string{},
		ThemeAnalyses: map[string]ThemeAnalysis{},
		Evaluations:   map[ArtifactKind]Evaluation{},
		Revisions:     map[ArtifactKind]int{},
		Approvals:     map[ApprovalType]Decision{},
		HumanFeedback: map[ApprovalType]string{},
		Errors:        []ErrorRecord{},
		Notes:         []string{},
	}
}

// Granted reports whether the given approval has been granted.
func (s State) Granted(approval ApprovalType) bool {
	return s.Approvals[approval].Granted
}

// Update is a node's partial state update. Nil pointers and empty
// slices/maps mean "no update" for their field; Apply leaves those fields
// untouched. Replace fields cannot express an explicit clear: clearing is
// the rollback subsystem's exclusive job.
type Update struct {
	Phase            *Phase
	AwaitingApproval *ApprovalType // pointer-to-empty clears the flag
	RouteOverride    *StepID       // pointer-to-empty consumes the override
	SourceDocs       []Document    // append-list
	Evidence         *[]Evidence   // replace
	CandidateArcs    *[]Arc        // replace
	SelectedArcs     *[]string     // replace
	ThemeAnalyses    map[string]ThemeAnalysis // merge-object
	Outline          *Outline      // replace
	Draft            *Draft        // replace
	Bundle           *Bundle       // replace
	Evaluations      map[ArtifactKind]Evaluation // merge-object
	Revisions        map[ArtifactKind]int        // merge-object
	Approvals        map[ApprovalType]Decision   // merge-object
	HumanFeedback    map[ApprovalType]string     // merge-object
	Errors           []ErrorRecord // append-list
	Note             *string       // append-single onto Notes
}

// Empty reports whether the update carries no field writes at all.
func (u Update) Empty() bool {
	return u.Phase == nil && u.AwaitingApproval == nil && u.RouteOverride == nil &&
		len(u.SourceDocs) == 0 && u.Evidence == nil && u.CandidateArcs == nil &&
		u.SelectedArcs == nil && len(u.ThemeAnalyses) == 0 && u.Outline == nil &&
		u.Draft == nil && u.Bundle == nil && len(u.Evaluations) == 0 &&
		len(u.Revisions) == 0 && len(u.Approvals) == 0 && len(u.HumanFeedback) == 0 &&
		len(u.Errors) == 0 && u.Note == nil
}

// Apply folds a partial update into the state and returns the new state.
// Neither input is mutated; every written slice, map, and pointer field in
// the result is a fresh copy.
func Apply(s State, u Update) State {
	out := s

	if u.Phase != nil {
		out.Phase = *u.Phase
	}
	if u.AwaitingApproval != nil {
		out.AwaitingApproval = *u.AwaitingApproval
	}
	if u.RouteOverride != nil {
		out.RouteOverride = *u.RouteOverride
	}
	if len(u.SourceDocs) > 0 {
		out.SourceDocs = appendList(s.SourceDocs, u.SourceDocs)
	}
	if u.Evidence != nil {
		out.Evidence = copyList(*u.Evidence)
	}
	if u.CandidateArcs != nil {
		out.CandidateArcs = copyList(*u.CandidateArcs)
	}
	if u.SelectedArcs != nil {
		out.SelectedArcs = copyList(*u.SelectedArcs)
	}
	if len(u.ThemeAnalyses) > 0 {
		out.ThemeAnalyses = mergeObject(s.ThemeAnalyses, u.ThemeAnalyses)
	}
	if u.Outline != nil {
		o := *u.Outline
		out.Outline = &o
	}
	if u.Draft != nil {
		d := *u.Draft
		out.Draft = &d
	}
	if u.Bundle != nil {
		b := *u.Bundle
		out.Bundle = &b
	}
	if len(u.Evaluations) > 0 {
		out.Evaluations = mergeObject(s.Evaluations, u.Evaluations)
	}
	if len(u.Revisions) > 0 {
		out.Revisions = mergeObject(s.Revisions, u.Revisions)
	}
	if len(u.Approvals) > 0 {
		out.Approvals = mergeObject(s.Approvals, u.Approvals)
	}
	if len(u.HumanFeedback) > 0 {
		out.HumanFeedback = mergeObject(s.HumanFeedback, u.HumanFeedback)
	}
	if len(u.Errors) > 0 {
		out.Errors = appendList(s.Errors, u.Errors)
	}
	if u.Note != nil {
		out.Notes = appendList(s.Notes, []string{*u.Note})
	}

	return out
}

// appendList concatenates add onto old into a fresh slice.
func appendList[T any](old, add []T) []T {
	out := make([]T, 0, len(old)+len(add))
	out = append(out, old...)
	out = append(out, add...)
	return out
}

// copyList returns a fresh copy of the slice.
func copyList[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// mergeObject shallow-merges add into a fresh copy of old, overwriting on
// key collision.
func mergeObject[K comparable, V any](old, add map[K]V) map[K]V {
	out := make(map[K]V, len(old)+len(add))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range add {
		out[k] = v
	}
	return out
}
