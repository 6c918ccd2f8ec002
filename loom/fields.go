// ABOUTME: Field registry declaring every state field name and its reducer kind.
// ABOUTME: Drives rollback clear sets, payload projections, and unknown-field rejection for external input.
package loom

// ReducerKind names the merge rule declared for a state field.
type ReducerKind string

const (
	ReduceReplace      ReducerKind = "replace"
	ReduceAppendList   ReducerKind = "append_list"
	ReduceAppendSingle ReducerKind = "append_single"
	ReduceMergeObject  ReducerKind = "merge_object"
)

// FieldSpec declares one state field.
type FieldSpec struct {
	Name    string
	Reducer ReducerKind
}

// fieldSpecs is the authoritative field table. Names match the JSON tags on
// State so persisted snapshots and external references agree.
var fieldSpecs = []FieldSpec{
	{Name: "phase", Reducer: ReduceReplace},
	{Name: "awaiting_approval", Reducer: ReduceReplace},
	{Name: "route_override", Reducer: ReduceReplace},
	{Name: "source_docs", Reducer: ReduceAppendList},
	{Name: "evidence", Reducer: ReduceReplace},
	{Name: "candidate_arcs", Reducer: ReduceReplace},
	{Name: "selected_arcs", Reducer: ReduceReplace},
	{Name: "theme_analyses", Reducer: ReduceMergeObject},
	{Name: "outline", Reducer: ReduceReplace},
	{Name: "draft", Reducer: ReduceReplace},
	{Name: "content_bundle", Reducer: ReduceReplace},
	{Name: "evaluations", Reducer: ReduceMergeObject},
	{Name: "revisions", Reducer: ReduceMergeObject},
	{Name: "approvals", Reducer: ReduceMergeObject},
	{Name: "human_feedback", Reducer: ReduceMergeObject},
	{Name: "errors", Reducer: ReduceAppendList},
	{Name: "notes", Reducer: ReduceAppendSingle},
}

// Fields returns the declared field table in order.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(fieldSpecs))
	copy(out, fieldSpecs)
	return out
}

// KnownField reports whether name is a declared state field.
func KnownField(name string) bool {
	for _, f := range fieldSpecs {
		if f.Name == name {
			return true
		}
	}
	return false
}
