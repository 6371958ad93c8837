package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/executor"
)

func TestApplyFoldsEvents(t *testing.T) {
	events := make(chan executor.Event)
	m := NewWatchModel(events)

	m.apply(executor.Event{Type: executor.EventStageStarted, ExecutionID: "exec-1", StageIndex: 0})
	m.apply(executor.Event{Type: executor.EventHookStarted, HookID: "setup"})
	m.apply(executor.Event{Type: executor.EventHookCompleted, HookID: "setup", Message: "ok", Duration: 40 * time.Millisecond})
	m.apply(executor.Event{Type: executor.EventCheckpointCreated, Message: "mid"})
	m.apply(executor.Event{Type: executor.EventHookStarted, HookID: "deploy"})
	m.apply(executor.Event{Type: executor.EventHookFailed, HookID: "deploy", Message: "rejected"})
	m.apply(executor.Event{Type: executor.EventHookRolledBack, HookID: "setup"})
	m.apply(executor.Event{Type: executor.EventRunFailed, Message: "aborted"})

	if m.executionID != "exec-1" {
		t.Errorf("executionID = %s, want exec-1", m.executionID)
	}
	if !m.finished || !m.failed {
		t.Errorf("finished=%v failed=%v, want both true", m.finished, m.failed)
	}
	if m.byID["setup"].status != "rolled_back" {
		t.Errorf("setup status = %s, want rolled_back", m.byID["setup"].status)
	}
	if m.byID["deploy"].status != "failed" {
		t.Errorf("deploy status = %s, want failed", m.byID["deploy"].status)
	}
	if len(m.checkpoints) != 1 || m.checkpoints[0] != "mid" {
		t.Errorf("checkpoints = %v, want [mid]", m.checkpoints)
	}
}

func TestViewShowsOutcome(t *testing.T) {
	events := make(chan executor.Event)
	m := NewWatchModel(events)

	m.apply(executor.Event{Type: executor.EventHookStarted, HookID: "setup"})
	m.apply(executor.Event{Type: executor.EventHookCompleted, HookID: "setup", Duration: 5 * time.Millisecond})
	m.apply(executor.Event{Type: executor.EventRunCompleted, Message: "2 hooks executed"})

	view := m.View()
	for _, fragment := range []string{"setup", "run completed", "2 hooks executed"} {
		if !strings.Contains(view, fragment) {
			t.Errorf("View() missing %q:\n%s", fragment, view)
		}
	}
}
