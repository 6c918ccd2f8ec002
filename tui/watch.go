// ABOUTME: Top-level Bubble Tea WatchModel that drives a pipeline run and renders its progress.
// ABOUTME: Implements tea.Model (Init, Update, View) routing messages to the event log and approval gate.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/inkwell/loom"
)

// WatchModel is the top-level Bubble Tea model. It starts (or attaches to) a
// run, streams engine events into the log, and prompts for decisions when the
// run suspends at an approval gate.
type WatchModel struct {
	log  EventLogModel
	gate GateModel

	engine *loom.Engine
	docs   []loom.Document // source documents for a new run
	runID  string          // set when attaching to an existing run
	ctx    context.Context // cancellation context for engine execution

	status     loom.RunStatus
	phase      loom.Phase
	activeStep loom.StepID
	runErr     string

	startTime    time.Time
	spinnerIndex int
	done         bool  // run reached a terminal status
	err          error // fatal engine error (if any)
	width        int
	height       int
}

// NewWatchModel creates a WatchModel that starts a fresh run from the given
// source documents.
func NewWatchModel(ctx context.Context, engine *loom.Engine, docs []loom.Document) WatchModel {
	return WatchModel{
		log:    NewEventLogModel(200),
		gate:   NewGateModel(),
		engine: engine,
		docs:   docs,
		ctx:    ctx,
		status: loom.RunRunning,
	}
}

// NewAttachModel creates a WatchModel that attaches to an existing run and
// drives it forward.
func NewAttachModel(ctx context.Context, engine *loom.Engine, runID string) WatchModel {
	m := NewWatchModel(ctx, engine, nil)
	m.runID = runID
	return m
}

// Init implements tea.Model. Starts the run and the tick loop.
func (m WatchModel) Init() tea.Cmd {
	drive := StartRunCmd(m.ctx, m.engine, m.docs)
	if m.runID != "" {
		drive = WatchRunCmd(m.ctx, m.engine, m.runID)
	}
	return tea.Batch(drive, TickCmd(100*time.Millisecond))
}

// Update implements tea.Model. Routes incoming messages to the appropriate
// sub-model and returns the updated model with any follow-up commands.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := m.height - 2 // title and status bar
		if m.gate.IsActive() {
			logHeight -= gateHeight
		}
		m.log.SetSize(m.width, logHeight)
		return m, nil

	case EngineEventMsg:
		return m.handleEngineEvent(msg.Event), nil

	case RunResultMsg:
		return m.handleRunResult(msg)

	case TickMsg:
		m.spinnerIndex++
		if m.done {
			return m, nil
		}
		return m, TickCmd(100 * time.Millisecond)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// gateHeight is the vertical space reserved for the gate dialog when active.
const gateHeight = 12

// handleEngineEvent appends the event to the log and updates the tracked
// run position.
func (m WatchModel) handleEngineEvent(ev loom.Event) WatchModel {
	m.log.Append(ev)

	switch ev.Type {
	case loom.EventRunStarted:
		if m.runID == "" {
			m.runID = ev.RunID
		}
		if m.startTime.IsZero() {
			m.startTime = time.Now()
		}
	case loom.EventStepStarted:
		m.activeStep = ev.Step
	case loom.EventStepCompleted, loom.EventStepFailed:
		if m.activeStep == ev.Step {
			m.activeStep = ""
		}
	}
	return m
}

// handleRunResult records the outcome of a drive: terminal status, fatal
// error, or suspension at an approval gate.
func (m WatchModel) handleRunResult(msg RunResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.err = msg.Err
		m.done = true
		m.activeStep = ""
		return m, nil
	}

	run := msg.Run
	m.runID = run.ID
	m.status = run.Status
	m.phase = run.State.Phase
	m.runErr = run.Error
	m.activeStep = ""

	switch run.Status {
	case loom.RunSuspended:
		m.gate.SetActive(run.Payload)
		m.log.SetSize(m.width, m.height-2-gateHeight)
	case loom.RunCompleted, loom.RunFailed, loom.RunCancelled:
		m.done = true
	}
	return m, nil
}

// handleKeyMsg routes key events: the gate consumes input while active,
// otherwise q quits.
func (m WatchModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.gate.IsActive() {
		if msg.Type == tea.KeyEnter {
			return m.submitGate()
		}
		m.gate = m.gate.Update(msg)
		return m, nil
	}

	if msg.String() == "q" {
		return m, tea.Quit
	}
	return m, nil
}

// submitGate parses the typed decision and resumes the run. Parse failures
// are shown as a hint under the input without consuming the text.
func (m WatchModel) submitGate() (tea.Model, tea.Cmd) {
	decision, err := m.gate.Decision()
	if err != nil {
		m.gate.SetHint(err.Error())
		return m, nil
	}

	approval := m.gate.Approval()
	m.gate.Deactivate()
	m.status = loom.RunRunning
	m.log.SetSize(m.width, m.height-2)
	return m, ResumeCmd(m.ctx, m.engine, m.runID, approval, decision)
}

// View implements tea.Model. Renders the title, event log, gate dialog, and
// status bar.
func (m WatchModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, TitleStyle.Render("inkwell")+" "+LogTimestampStyle.Render(m.runID))
	sections = append(sections, m.log.View())
	if m.gate.IsActive() {
		sections = append(sections, m.gate.View())
	}
	sections = append(sections, m.statusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// statusBar renders the single-line run summary at the bottom of the screen.
func (m WatchModel) statusBar() string {
	status := StyleForRunStatus(m.status).Render(string(m.status))

	parts := []string{fmt.Sprintf("Status: %s", status)}
	if m.phase != "" {
		parts = append(parts, fmt.Sprintf("Phase: %s", m.phase))
	}
	parts = append(parts, fmt.Sprintf("Elapsed: %s", formatElapsed(m.elapsed())))

	switch {
	case m.err != nil:
		parts = append(parts, LogErrorStyle.Render(m.err.Error()))
	case m.runErr != "":
		parts = append(parts, LogErrorStyle.Render(m.runErr))
	case m.activeStep != "":
		frame := SpinnerFrames[m.spinnerIndex%len(SpinnerFrames)]
		parts = append(parts, fmt.Sprintf("%s %s", frame, m.activeStep))
	}

	if m.done {
		parts = append(parts, "press q to quit")
	}

	content := strings.Join(parts, " | ")
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, StatusBarStyle.Width(m.width).Render(content))
}

// elapsed returns the time since the run started, or zero if not started.
func (m WatchModel) elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
