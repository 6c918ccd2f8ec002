// ABOUTME: Instruction templates and input rendering for the generation nodes.
// ABOUTME: Each task gets a fixed instruction block; state is rendered into the input separately.
package nodes

import (
	"fmt"
	"strings"

	"github.com/2389-research/inkwell/loom"
)

const curateInstructions = `You are curating source material for an article.
Read the source documents and produce:
1. Evidence items: discrete, verifiable findings with the document they came from.
2. Candidate narrative arcs: distinct angles the article could take, each grounded in the evidence.

Respond with a JSON object:
{"evidence": [{"id": "...", "source": "...", "summary": "...", "arcs": ["arc-id"]}],
 "candidate_arcs": [{"id": "...", "title": "...", "premise": "..."}]}`

const themeInstructions = `You are analyzing one narrative arc of a planned article.
Identify the themes the arc carries and summarize how the curated evidence supports it.

Respond with a JSON object:
{"themes": ["..."], "summary": "..."}`

const outlineInstructions = `You are outlining an article from selected narrative arcs and their theme analyses.
Every selected arc must be carried by at least one section. Ground every section in the curated evidence.

Respond with a JSON object:
{"title": "...", "sections": [{"heading": "...", "beats": ["..."]}]}`

const draftInstructions = `You are drafting an article from an approved outline.
Follow the outline section by section. Every claim must trace back to the curated evidence.
Write in Markdown, starting with a level-1 title heading.

Respond with the complete Markdown document only.`

// renderDocs formats the source documents for the curation input.
func renderDocs(docs []loom.Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "=== %s (%s) ===\n%s\n\n", d.Title, d.ID, d.Body)
	}
	return b.String()
}

// renderEvidence formats the curated evidence for downstream inputs.
func renderEvidence(items []loom.Evidence) string {
	var b strings.Builder
	b.WriteString("Curated evidence:\n")
	for _, e := range items {
		fmt.Fprintf(&b, "- [%s] %s (source: %s)\n", e.ID, e.Summary, e.Source)
	}
	return b.String()
}

// renderThemes formats the theme analyses for the outline input, skipping
// failed sub-steps.
func renderThemes(analyses map[string]loom.ThemeAnalysis, arcs []string) string {
	var b strings.Builder
	b.WriteString("Theme analyses:\n")
	for _, arc := range arcs {
		ta, ok := analyses[arc]
		if !ok || ta.Err != "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: themes %s; %s\n", arc, strings.Join(ta.Themes, ", "), ta.Summary)
	}
	return b.String()
}

// renderOutline formats the approved outline for the draft input.
func renderOutline(o *loom.Outline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outline: %s\n", o.Title)
	for i, sec := range o.Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sec.Heading)
		for _, beat := range sec.Beats {
			fmt.Fprintf(&b, "   - %s\n", beat)
		}
	}
	return b.String()
}
