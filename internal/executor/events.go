package executor

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType represents the type of executor event.
type EventType string

const (
	// EventStageStarted indicates a plan stage has begun.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted indicates a plan stage finished successfully.
	EventStageCompleted EventType = "stage_completed"
	// EventHookStarted indicates a hook has begun executing.
	EventHookStarted EventType = "hook_started"
	// EventHookCompleted indicates a hook completed successfully.
	EventHookCompleted EventType = "hook_completed"
	// EventHookFailed indicates a hook failed.
	EventHookFailed EventType = "hook_failed"
	// EventCheckpointCreated indicates a checkpoint was persisted.
	EventCheckpointCreated EventType = "checkpoint_created"
	// EventRollbackStarted indicates failure handling has begun rolling back.
	EventRollbackStarted EventType = "rollback_started"
	// EventHookRolledBack indicates one hook's rollback completed.
	EventHookRolledBack EventType = "hook_rolled_back"
	// EventRollbackFailed indicates one hook's rollback failed (best-effort,
	// rollback of remaining hooks continues).
	EventRollbackFailed EventType = "rollback_failed"
	// EventRunCompleted indicates the whole plan ran to completion.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed indicates the run aborted.
	EventRunFailed EventType = "run_failed"
)

// Event represents an event emitted by the executor. These events are used
// to update the watch TUI and the CLI progress output.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// ExecutionID identifies the run.
	ExecutionID string
	// StageIndex is the plan stage index, if applicable.
	StageIndex int
	// HookID is the related hook, if applicable.
	HookID string
	// Message provides additional context.
	Message string
	// Error contains failure details for failure events.
	Error error
	// Duration is the elapsed time for completion events.
	Duration time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter provides a thread-safe way to emit events to subscribers.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a short window to drain before dropping.
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[executor] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call when the run is finished.
func (e *EventEmitter) Close() {
	close(e.events)
}
