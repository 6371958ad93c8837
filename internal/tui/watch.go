// Package tui renders a live view of a pipeline run from executor events.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/executor"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))
)

// hookState tracks one hook's progress in the view.
type hookState struct {
	id       string
	stage    int
	status   string // running, done, failed, rolled_back
	message  string
	duration time.Duration
}

// eventMsg wraps an executor event for the bubbletea loop.
type eventMsg executor.Event

// closedMsg indicates the event channel was closed.
type closedMsg struct{}

// WatchModel is the bubbletea model for `vespera run --watch`.
type WatchModel struct {
	events  <-chan executor.Event
	spinner spinner.Model

	executionID string
	stage       int
	hooks       []*hookState
	byID        map[string]*hookState
	checkpoints []string
	finished    bool
	failed      bool
	finalMsg    string
}

// NewWatchModel creates a watch model over an executor event stream.
func NewWatchModel(events <-chan executor.Event) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return WatchModel{
		events:  events,
		spinner: sp,
		byID:    make(map[string]*hookState),
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent reads the next executor event as a tea.Cmd.
func (m WatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case closedMsg:
		m.finished = true
		return m, tea.Quit

	case eventMsg:
		m.apply(executor.Event(msg))
		if m.finished {
			return m, tea.Quit
		}
		return m, m.waitForEvent()
	}

	return m, nil
}

// apply folds one executor event into the view state.
func (m *WatchModel) apply(ev executor.Event) {
	if m.executionID == "" && ev.ExecutionID != "" {
		m.executionID = ev.ExecutionID
	}

	switch ev.Type {
	case executor.EventStageStarted:
		m.stage = ev.StageIndex
	case executor.EventHookStarted:
		hs := &hookState{id: ev.HookID, stage: m.stage, status: "running"}
		m.hooks = append(m.hooks, hs)
		m.byID[ev.HookID] = hs
	case executor.EventHookCompleted:
		if hs := m.byID[ev.HookID]; hs != nil {
			hs.status = "done"
			hs.message = ev.Message
			hs.duration = ev.Duration
		}
	case executor.EventHookFailed:
		if hs := m.byID[ev.HookID]; hs != nil {
			hs.status = "failed"
			hs.message = ev.Message
		}
	case executor.EventCheckpointCreated:
		m.checkpoints = append(m.checkpoints, ev.Message)
	case executor.EventHookRolledBack:
		if hs := m.byID[ev.HookID]; hs != nil {
			hs.status = "rolled_back"
		}
	case executor.EventRunCompleted:
		m.finished = true
		m.finalMsg = ev.Message
	case executor.EventRunFailed:
		m.finished = true
		m.failed = true
		m.finalMsg = ev.Message
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("vespera run %s", m.executionID)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  stage %d", m.stage)))
	b.WriteString("\n\n")

	for _, hs := range m.hooks {
		switch hs.status {
		case "running":
			fmt.Fprintf(&b, "  %s %s\n", m.spinner.View(), runningStyle.Render(hs.id))
		case "done":
			fmt.Fprintf(&b, "  %s %s %s\n", okStyle.Render("✓"), hs.id,
				dimStyle.Render(hs.duration.Round(time.Millisecond).String()))
		case "failed":
			fmt.Fprintf(&b, "  %s %s %s\n", failStyle.Render("✗"), hs.id, dimStyle.Render(hs.message))
		case "rolled_back":
			fmt.Fprintf(&b, "  %s %s %s\n", dimStyle.Render("↩"), hs.id, dimStyle.Render("rolled back"))
		}
	}

	if len(m.checkpoints) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  checkpoints: %s", strings.Join(m.checkpoints, ", "))))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString("\n")
		if m.failed {
			b.WriteString(failStyle.Render("  run failed: " + m.finalMsg))
		} else {
			b.WriteString(okStyle.Render("  run completed: " + m.finalMsg))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  q to quit"))
		b.WriteString("\n")
	}

	return b.String()
}
