// ABOUTME: Implements a scrollable engine event log using the bubbles viewport component.
// ABOUTME: Displays loom events with color-coded formatting based on event type.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/2389-research/inkwell/loom"
)

// EventLogModel is a scrollable log of engine events.
type EventLogModel struct {
	entries  []loom.Event
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewEventLogModel creates a new event log with a maximum number of entries.
// If maxEntries is <= 0, it defaults to 200.
func NewEventLogModel(maxEntries int) EventLogModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	vp := viewport.New(80, 10)
	return EventLogModel{
		entries:  make([]loom.Event, 0, maxEntries),
		max:      maxEntries,
		viewport: vp,
	}
}

// Append adds an event to the log, evicting the oldest entry if at capacity.
func (m *EventLogModel) Append(ev loom.Event) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, ev)
	m.syncViewport()
}

// Len returns the number of entries in the log.
func (m EventLogModel) Len() int {
	return len(m.entries)
}

// SetSize sets the available dimensions and updates the viewport.
func (m *EventLogModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Reserve space for the border (2 lines top/bottom) and title (1 line)
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// View renders the event log panel.
func (m EventLogModel) View() string {
	var content string
	if len(m.entries) == 0 {
		content = "No events yet"
	} else {
		content = m.viewport.View()
	}

	rendered := TitleStyle.Render("EVENTS") + "\n" + content

	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

// syncViewport rebuilds the viewport content from entries and scrolls to the bottom.
func (m *EventLogModel) syncViewport() {
	if len(m.entries) == 0 {
		m.viewport.SetContent("")
		return
	}
	var lines []string
	for _, ev := range m.entries {
		lines = append(lines, formatEntry(ev))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// formatEntry formats a single engine event as a log line.
func formatEntry(ev loom.Event) string {
	ts := LogTimestampStyle.Render(ev.Timestamp.Format("15:04:05"))
	evType := eventStyle(ev.Type).Render(string(ev.Type))

	parts := []string{ts, evType}

	if ev.Step != "" {
		parts = append(parts, fmt.Sprintf("[%s]", ev.Step))
	}

	if len(ev.Data) > 0 {
		parts = append(parts, formatData(ev.Data))
	}

	return strings.Join(parts, " ")
}

// formatData formats event data as compact sorted key=value pairs.
func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(pairs, " ")
}
