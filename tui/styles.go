// ABOUTME: Defines lipgloss style constants for the watch TUI panels, run status colors, and log formatting.
// ABOUTME: Provides StyleForRunStatus to map run statuses to their corresponding display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/inkwell/loom"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Run status colors
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	SuspendedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	CancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogRetryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	LogGateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Approval gate prompt
	GateStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)

	// Gate payload labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// SpinnerFrames contains the Braille-dot animation frames shown while the
// pipeline is generating.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StyleForRunStatus returns the appropriate lipgloss style for a run status.
func StyleForRunStatus(status loom.RunStatus) lipgloss.Style {
	switch status {
	case loom.RunRunning:
		return RunningStyle
	case loom.RunSuspended:
		return SuspendedStyle
	case loom.RunCompleted:
		return CompletedStyle
	case loom.RunFailed:
		return FailedStyle
	case loom.RunCancelled:
		return CancelledStyle
	default:
		return RunningStyle
	}
}

// eventStyle returns the style for an engine event type.
func eventStyle(t loom.EventType) lipgloss.Style {
	switch t {
	case loom.EventRunCompleted, loom.EventStepCompleted:
		return LogSuccessStyle
	case loom.EventRunFailed, loom.EventStepFailed:
		return LogErrorStyle
	case loom.EventStepRetrying, loom.EventRevisionRequested, loom.EventRevisionEscalated:
		return LogRetryStyle
	case loom.EventCheckpointSuspended, loom.EventCheckpointResumed, loom.EventCheckpointSkipped:
		return LogGateStyle
	default:
		return LogEventStyle
	}
}
