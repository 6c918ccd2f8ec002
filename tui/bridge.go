// ABOUTME: Bridge connecting the loom engine to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for event injection, and tea.Cmd factories for starting, resuming, and ticking.
package tui

import (
	"context"
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/inkwell/loom"
)

// EventBridge wraps a tea.Program's Send method for injecting engine events
// into the Bubble Tea message loop.
type EventBridge struct {
	send func(msg tea.Msg)
}

// NewEventBridge creates an EventBridge that sends messages via the given function.
// Typically called with program.Send as the argument.
func NewEventBridge(send func(msg tea.Msg)) *EventBridge {
	return &EventBridge{send: send}
}

// HandleEvent implements the loom.EngineConfig.EventHandler signature.
// It wraps the event in an EngineEventMsg and sends it to the TUI.
func (b *EventBridge) HandleEvent(ev loom.Event) {
	b.send(EngineEventMsg{Event: ev})
}

// StartRunCmd returns a tea.Cmd that starts a new run with the given source
// documents and drives it to its first stop. The context allows cancellation
// when the user quits the TUI.
func StartRunCmd(ctx context.Context, engine *loom.Engine, docs []loom.Document) tea.Cmd {
	return func() tea.Msg {
		run, err := engine.Start(ctx, docs)
		return RunResultMsg{Run: run, Err: err}
	}
}

// WatchRunCmd returns a tea.Cmd that drives an existing run to its next stop.
// Used to attach the TUI to a run created elsewhere.
func WatchRunCmd(ctx context.Context, engine *loom.Engine, runID string) tea.Cmd {
	return func() tea.Msg {
		run, err := engine.Drive(ctx, runID)
		return RunResultMsg{Run: run, Err: err}
	}
}

// ResumeCmd returns a tea.Cmd that applies an approval decision to a
// suspended run and drives it to its next stop.
func ResumeCmd(ctx context.Context, engine *loom.Engine, runID string, approval loom.ApprovalType, decision json.RawMessage) tea.Cmd {
	return func() tea.Msg {
		run, err := engine.Resume(ctx, runID, approval, decision)
		return RunResultMsg{Run: run, Err: err}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for spinner animation and periodic UI refreshes.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}
