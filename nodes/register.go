// ABOUTME: Registers the generation nodes for every non-core pipeline step.
package nodes

import "github.com/2389-research/inkwell/loom"

// Register adds all generation nodes to the registry. The engine's built-in
// evaluator and decision nodes cover the remaining steps.
func Register(reg *loom.NodeRegistry) {
	reg.Register(&CurateNode{})
	reg.Register(&ThemesNode{})
	reg.Register(&OutlineNode{})
	reg.Register(&DraftNode{})
	reg.Register(NewAssembleNode())
}
