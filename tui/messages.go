// ABOUTME: Bubble Tea message types used in the watch TUI message loop.
// ABOUTME: Each type wraps domain events for the tea.Msg interface (which is interface{}).
package tui

import (
	"time"

	"github.com/2389-research/inkwell/loom"
)

// EngineEventMsg wraps a loom.Event for the Bubble Tea message loop.
type EngineEventMsg struct {
	Event loom.Event
}

// RunResultMsg signals that a drive has finished: the run completed, failed,
// or suspended at an approval gate.
type RunResultMsg struct {
	Run *loom.Run
	Err error
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}
