// Package hooks defines the hook contract and the registry that catalogues
// hook implementations by trigger, tag, and priority.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Hook is the unit-of-work contract. Implementations declare their identity
// and dependencies up front and are immutable after registration; the
// executor looks them up by ID and never mutates them during a run.
type Hook interface {
	// ID returns the hook's unique identifier within a run.
	ID() string
	// Description returns a human-readable summary of what the hook does.
	Description() string
	// Dependencies returns the IDs of hooks that must complete first.
	Dependencies() []string
	// SupportsRollback reports whether the hook can revert its side effects.
	SupportsRollback() bool
	// Execute performs the hook's work. It receives the execution context as
	// a scoped view and returns its changes as deltas on the result; it must
	// not retain the context beyond this invocation.
	Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error)
	// Rollback reverts the hook's side effects. Only called if
	// SupportsRollback is true and the hook previously succeeded.
	Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error)
}

// Validator is implemented by hooks that have context preconditions.
// A validation failure short-circuits the hook with a failed result
// without invoking Execute.
type Validator interface {
	Validate(ec *models.ExecutionContext) error
}

// NonCritical is implemented by notification-style hooks whose failures
// should be logged but not abort the stage.
type NonCritical interface {
	NonCritical() bool
}

// DurationTracker maintains a rolling average execution-time estimate per
// hook, used for planning and progress reporting.
type DurationTracker struct {
	mu      sync.RWMutex
	samples map[string]durationSample
}

type durationSample struct {
	avg   time.Duration
	count int
}

// NewDurationTracker creates an empty tracker.
func NewDurationTracker() *DurationTracker {
	return &DurationTracker{samples: make(map[string]durationSample)}
}

// Record folds an observed duration into the hook's rolling average.
func (t *DurationTracker) Record(hookID string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.samples[hookID]
	// Incremental mean: avg += (d - avg) / (n + 1)
	s.avg += (d - s.avg) / time.Duration(s.count+1)
	s.count++
	t.samples[hookID] = s
}

// Estimate returns the rolling average for a hook, or 0 if never observed.
func (t *DurationTracker) Estimate(hookID string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.samples[hookID].avg
}

// Observations returns how many durations have been recorded for a hook.
func (t *DurationTracker) Observations(hookID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.samples[hookID].count
}
