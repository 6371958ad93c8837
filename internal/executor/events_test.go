package executor

import (
	"testing"
	"time"
)

func TestEventEmitterDeliversInOrder(t *testing.T) {
	emitter := NewEventEmitter(10)

	emitter.Emit(Event{Type: EventStageStarted, StageIndex: 0})
	emitter.Emit(Event{Type: EventHookCompleted, HookID: "a"})
	emitter.Close()

	var got []EventType
	for ev := range emitter.Events() {
		got = append(got, ev.Type)
		if ev.Timestamp.IsZero() {
			t.Error("Emit() did not stamp a timestamp")
		}
	}
	if len(got) != 2 || got[0] != EventStageStarted || got[1] != EventHookCompleted {
		t.Errorf("events = %v, want [stage_started hook_completed]", got)
	}
}

func TestEventEmitterDropsWhenFull(t *testing.T) {
	emitter := NewEventEmitter(1)

	emitter.Emit(Event{Type: EventHookStarted})
	start := time.Now()
	emitter.Emit(Event{Type: EventHookStarted}) // no reader: dropped after the grace window

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second Emit() returned after %s, want a drain window before dropping", elapsed)
	}
	if emitter.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", emitter.DroppedCount())
	}
}
