package executor

import (
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Defaults for executor behavior. Tunable via options or configuration;
// the values themselves are empirical, not load-bearing.
const (
	DefaultMaxParallel        = 3
	DefaultCheckpointInterval = 2 * time.Minute
	DefaultHookTimeout        = 10 * time.Minute
)

// Checkpointer persists point-in-time context snapshots. Implemented by
// checkpoint.Manager; nil disables checkpointing.
type Checkpointer interface {
	Checkpoint(ec *models.ExecutionContext, name string, stageIndex, totalStages int, completedHooks []string) (*models.Checkpoint, error)
}

// ActivitySource reports the time of the most recent externally observed
// activity (e.g. workspace file events). The executor consults it at stage
// boundaries so recovery-confidence estimates reflect real progress.
type ActivitySource interface {
	LastEvent() time.Time
}

// Option configures an Executor. Use With* functions to create Options.
type Option func(*executorOptions)

type executorOptions struct {
	maxParallel        int
	checkpointInterval time.Duration
	hookTimeout        time.Duration
	checkpointer       Checkpointer
	tracker            *hooks.DurationTracker
	emitter            *EventEmitter
	logger             *DebugLogger
	activity           ActivitySource
}

// WithMaxParallel sets the bounded concurrency limit for parallel stages.
func WithMaxParallel(n int) Option {
	return func(o *executorOptions) { o.maxParallel = n }
}

// WithCheckpointInterval sets how often the executor checkpoints at stage
// boundaries. Zero or negative disables interval checkpointing (hooks can
// still request named checkpoints).
func WithCheckpointInterval(d time.Duration) Option {
	return func(o *executorOptions) { o.checkpointInterval = d }
}

// WithHookTimeout sets the per-hook execution deadline. A timed-out hook is
// treated as a failed result. Zero disables the deadline.
func WithHookTimeout(d time.Duration) Option {
	return func(o *executorOptions) { o.hookTimeout = d }
}

// WithCheckpointer sets the checkpoint manager.
func WithCheckpointer(c Checkpointer) Option {
	return func(o *executorOptions) { o.checkpointer = c }
}

// WithDurationTracker sets the tracker that maintains per-hook rolling
// average durations.
func WithDurationTracker(t *hooks.DurationTracker) Option {
	return func(o *executorOptions) { o.tracker = t }
}

// WithEventEmitter sets the emitter for progress events.
func WithEventEmitter(e *EventEmitter) Option {
	return func(o *executorOptions) { o.emitter = e }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *executorOptions) { o.logger = l }
}

// WithActivitySource sets the external activity source.
func WithActivitySource(a ActivitySource) Option {
	return func(o *executorOptions) { o.activity = a }
}
