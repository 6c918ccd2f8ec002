// ABOUTME: GateModel renders a suspended run's approval payload and collects the reviewer's decision.
// ABOUTME: Parses text input into the decision JSON for arc selection and artifact review gates.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/inkwell/loom"
)

// GateModel renders a styled dialog with text input while a run is suspended
// at an approval checkpoint. The decision typed by the reviewer is parsed
// into the JSON shape the engine's Resume expects.
type GateModel struct {
	textInput textinput.Model
	payload   *loom.Payload
	active    bool
	hint      string // last parse error, shown until the next submit
}

// NewGateModel creates a GateModel with an initialized text input.
func NewGateModel() GateModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your decision..."

	return GateModel{textInput: ti}
}

// SetActive activates the gate dialog for the given suspension payload.
func (m *GateModel) SetActive(p *loom.Payload) {
	m.payload = p
	m.active = true
	m.hint = ""
	m.textInput.Focus()
}

// Deactivate hides the dialog and clears the input.
func (m *GateModel) Deactivate() {
	m.active = false
	m.payload = nil
	m.hint = ""
	m.textInput.Reset()
	m.textInput.Blur()
}

// IsActive returns whether the gate dialog is currently visible.
func (m GateModel) IsActive() bool {
	return m.active
}

// Approval returns the approval type of the active payload, or "" when inactive.
func (m GateModel) Approval() loom.ApprovalType {
	if m.payload == nil {
		return ""
	}
	return m.payload.Approval
}

// SetHint records a message shown under the input, used for parse errors.
func (m *GateModel) SetHint(hint string) {
	m.hint = hint
}

// Decision parses the current input into the decision JSON for the active
// gate. Arc selection takes a comma-separated list of arc IDs. Review gates
// take "approve", or "reject <feedback>" to send the artifact back.
func (m GateModel) Decision() (json.RawMessage, error) {
	if m.payload == nil {
		return nil, fmt.Errorf("no active gate")
	}
	input := strings.TrimSpace(m.textInput.Value())
	if input == "" {
		return nil, fmt.Errorf("empty decision")
	}

	if m.payload.Approval == loom.ApprovalArcSelection {
		var arcs []string
		for _, part := range strings.Split(input, ",") {
			if arc := strings.TrimSpace(part); arc != "" {
				arcs = append(arcs, arc)
			}
		}
		if len(arcs) == 0 {
			return nil, fmt.Errorf("no arc IDs given")
		}
		return json.Marshal(arcDecision{SelectedArcs: arcs, DecidedBy: "tui"})
	}

	word, rest, _ := strings.Cut(input, " ")
	switch strings.ToLower(word) {
	case "approve", "a":
		return json.Marshal(reviewDecision{Approved: true, DecidedBy: "tui"})
	case "reject", "r":
		feedback := strings.TrimSpace(rest)
		if feedback == "" {
			return nil, fmt.Errorf("rejection needs feedback: reject <what to change>")
		}
		return json.Marshal(reviewDecision{Approved: false, Feedback: feedback, DecidedBy: "tui"})
	default:
		return nil, fmt.Errorf("expected approve or reject <feedback>, got %q", word)
	}
}

// arcDecision is the wire shape the engine accepts for the arc selection gate.
type arcDecision struct {
	SelectedArcs []string `json:"selected_arcs"`
	DecidedBy    string   `json:"decided_by,omitempty"`
}

// reviewDecision is the wire shape the engine accepts for artifact review gates.
type reviewDecision struct {
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback,omitempty"`
	DecidedBy string `json:"decided_by,omitempty"`
}

// Update handles incoming tea.Msg events. Key events are forwarded to the
// embedded textinput. Returns the updated model.
func (m GateModel) Update(msg tea.Msg) GateModel {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	_ = cmd // textinput cmds (cursor blink) are ignored in sub-model updates
	return m
}

// View renders the gate dialog. Returns an empty string when inactive.
func (m GateModel) View() string {
	if !m.active {
		return ""
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("[?] Approval required: %s\n", m.payload.Approval))

	if m.payload.Attempt > 0 {
		b.WriteString(LabelStyle.Render("Attempt") + ValueStyle.Render(fmt.Sprintf("%d", m.payload.Attempt)) + "\n")
	}
	if m.payload.Revisions > 0 {
		b.WriteString(LabelStyle.Render("Revisions") + ValueStyle.Render(fmt.Sprintf("%d", m.payload.Revisions)) + "\n")
	}
	if m.payload.Escalated {
		b.WriteString(FailedStyle.Render("Revision cap reached: escalated for human review") + "\n")
	}
	for _, issue := range m.payload.Issues {
		b.WriteString(LabelStyle.Render("Issue") + ValueStyle.Render(issue) + "\n")
	}
	if m.payload.Guidance != "" {
		b.WriteString(LabelStyle.Render("Guidance") + ValueStyle.Render(m.payload.Guidance) + "\n")
	}

	if m.payload.Approval == loom.ApprovalArcSelection {
		b.WriteString("\nEnter arc IDs, comma-separated:\n")
	} else {
		b.WriteString("\nEnter approve, or reject <feedback>:\n")
	}

	b.WriteString(m.textInput.View())

	if m.hint != "" {
		b.WriteString("\n" + LogErrorStyle.Render(m.hint))
	}

	return GateStyle.Render(b.String())
}
