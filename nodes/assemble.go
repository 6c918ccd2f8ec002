// ABOUTME: Assembly node: renders the approved draft to HTML and finalizes the content bundle.
// ABOUTME: Pure local work; no generation service involved.
package nodes

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/2389-research/inkwell/loom"
)

// AssembleNode renders the final bundle and closes out the run.
type AssembleNode struct {
	md goldmark.Markdown
}

// NewAssembleNode creates the assembly node with its Markdown renderer.
func NewAssembleNode() *AssembleNode {
	return &AssembleNode{md: goldmark.New()}
}

func (n *AssembleNode) Step() loom.StepID { return loom.StepAssemble }

func (n *AssembleNode) Run(ctx context.Context, s loom.State, rc loom.RunConfig) (loom.Update, error) {
	if s.Draft == nil {
		return loom.Update{}, fmt.Errorf("assemble: no approved draft in state")
	}

	var html bytes.Buffer
	if err := n.md.Convert([]byte(s.Draft.Markdown), &html); err != nil {
		return loom.Update{}, fmt.Errorf("assemble: render html: %w", err)
	}

	phase := loom.PhaseComplete
	return loom.Update{
		Phase: &phase,
		Bundle: &loom.Bundle{
			Title:       s.Draft.Title,
			Markdown:    s.Draft.Markdown,
			HTML:        html.String(),
			AssembledAt: rc.Clock()(),
		},
	}, nil
}
