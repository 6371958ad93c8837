package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/graph"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Executor consumes an execution plan and a context: it runs each stage
// (sequential, or parallel under a bounded semaphore), folds every result
// into the context on the coordinating goroutine, checkpoints periodically,
// and on any stage failure rolls back prior successes in reverse order.
//
// One run is driven by a single coordinating goroutine; parallel stages fan
// out to workers and join before the next stage begins. Stages are never
// interleaved.
type Executor struct {
	maxParallel        int
	checkpointInterval time.Duration
	hookTimeout        time.Duration
	checkpointer       Checkpointer
	tracker            *hooks.DurationTracker
	emitter            *EventEmitter
	logger             *DebugLogger
	activity           ActivitySource
}

// New creates an Executor with the given options.
func New(opts ...Option) *Executor {
	o := &executorOptions{
		maxParallel:        DefaultMaxParallel,
		checkpointInterval: DefaultCheckpointInterval,
		hookTimeout:        DefaultHookTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxParallel <= 0 {
		o.maxParallel = DefaultMaxParallel
	}
	if o.tracker == nil {
		o.tracker = hooks.NewDurationTracker()
	}

	e := &Executor{
		maxParallel:        o.maxParallel,
		checkpointInterval: o.checkpointInterval,
		hookTimeout:        o.hookTimeout,
		checkpointer:       o.checkpointer,
		tracker:            o.tracker,
		emitter:            o.emitter,
		logger:             o.logger,
		activity:           o.activity,
	}
	if e.logger != nil {
		setPackageLogger(e.logger)
	}
	return e
}

// Tracker returns the duration tracker used by this executor.
func (e *Executor) Tracker() *hooks.DurationTracker { return e.tracker }

// Index builds a hook lookup table keyed by ID.
func Index(hookSet []hooks.Hook) map[string]hooks.Hook {
	index := make(map[string]hooks.Hook, len(hookSet))
	for _, h := range hookSet {
		index[h.ID()] = h
	}
	return index
}

// Run executes the whole plan against the context and returns the ordered
// sequence of hook results. On failure it returns an *ExecutionError with
// the partial results and the rollback outcome.
func (e *Executor) Run(ctx context.Context, plan *graph.ExecutionPlan, index map[string]hooks.Hook, ec *models.ExecutionContext) ([]*models.HookResult, error) {
	return e.RunFrom(ctx, plan, index, ec, 0, nil)
}

// RunFrom executes the plan starting at startStage. Hooks listed in
// alreadyCompleted are treated as committed by a previous run (recovery
// never re-executes completed hooks); they are excluded from this run's
// rollback set.
func (e *Executor) RunFrom(ctx context.Context, plan *graph.ExecutionPlan, index map[string]hooks.Hook, ec *models.ExecutionContext, startStage int, alreadyCompleted []string) ([]*models.HookResult, error) {
	// Configuration check: every planned hook must be resolvable.
	for _, id := range plan.HookIDs() {
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("plan references unknown hook %s", id)
		}
	}
	if startStage < 0 || startStage > len(plan.Stages) {
		return nil, fmt.Errorf("start stage %d out of range (plan has %d stages)", startStage, len(plan.Stages))
	}

	debugLog("[executor] run %s: %d stages, starting at stage %d, maxParallel=%d",
		ec.ExecutionID, len(plan.Stages), startStage, e.maxParallel)

	var allResults []*models.HookResult
	// completed tracks hooks that succeeded in THIS run, in completion
	// order; this is the rollback set on failure.
	var completed []hooks.Hook
	committedIDs := append([]string{}, alreadyCompleted...)
	// Committed hooks are never dispatched again, even when the recorded
	// checkpoint falls mid-stage.
	skip := make(map[string]bool, len(alreadyCompleted))
	for _, id := range alreadyCompleted {
		skip[id] = true
	}
	lastCheckpoint := time.Now()

	for stageIdx := startStage; stageIdx < len(plan.Stages); stageIdx++ {
		stage := pendingStage(plan.Stages[stageIdx], skip)
		if len(stage.Hooks) == 0 {
			debugLog("[executor] stage %d: all hooks already committed, skipping", stageIdx)
			continue
		}

		// Carry externally observed activity (workspace file events) into
		// the context at the stage boundary, on the coordinating goroutine.
		if e.activity != nil {
			if last := e.activity.LastEvent(); last.After(ec.LastActivity) {
				ec.LastActivity = last
			}
		}

		// Interval checkpointing at stage boundaries.
		if e.checkpointer != nil && e.checkpointInterval > 0 && time.Since(lastCheckpoint) >= e.checkpointInterval {
			name := fmt.Sprintf("auto-stage-%d", stageIdx)
			if err := e.takeCheckpoint(ec, name, stageIdx, len(plan.Stages), committedIDs); err != nil {
				debugLog("[executor] interval checkpoint failed: %v", err)
			} else {
				lastCheckpoint = time.Now()
			}
		}

		e.emit(Event{Type: EventStageStarted, ExecutionID: ec.ExecutionID, StageIndex: stageIdx,
			Message: fmt.Sprintf("%d hooks, parallel=%v", len(stage.Hooks), stage.Parallel)})
		debugLog("[executor] stage %d: hooks=%v parallel=%v", stageIdx, stage.Hooks, stage.Parallel)

		var stageResults []*models.HookResult
		if stage.Parallel {
			stageResults = e.runParallelStage(ctx, stage, index, ec)
		} else {
			stageResults = e.runSequentialStage(ctx, stage, index, ec)
		}

		// Fold results into the context on the coordinating goroutine, in
		// dispatch order, so merges are never concurrent even though hook
		// bodies were.
		var failedIDs []string
		for _, res := range stageResults {
			h := index[res.HookID]
			ec.Fold(res)
			allResults = append(allResults, res)
			e.tracker.Record(res.HookID, res.Duration)

			if res.Success {
				completed = append(completed, h)
				committedIDs = append(committedIDs, res.HookID)
				e.emit(Event{Type: EventHookCompleted, ExecutionID: ec.ExecutionID, StageIndex: stageIdx,
					HookID: res.HookID, Message: res.Message, Duration: res.Duration})
			} else if isNonCritical(h) {
				debugLog("[executor] non-critical hook %s failed, continuing: %s", res.HookID, res.Error)
				e.emit(Event{Type: EventHookFailed, ExecutionID: ec.ExecutionID, StageIndex: stageIdx,
					HookID: res.HookID, Message: "non-critical failure: " + res.Error})
			} else {
				failedIDs = append(failedIDs, res.HookID)
				e.emit(Event{Type: EventHookFailed, ExecutionID: ec.ExecutionID, StageIndex: stageIdx,
					HookID: res.HookID, Message: res.Error, Error: errors.New(res.Error)})
			}

			// Hook-requested named checkpoint, taken after the fold.
			if res.Success && res.CheckpointName != "" && e.checkpointer != nil {
				if err := e.takeCheckpoint(ec, res.CheckpointName, stageIdx, len(plan.Stages), committedIDs); err != nil {
					debugLog("[executor] requested checkpoint %q failed: %v", res.CheckpointName, err)
				} else {
					lastCheckpoint = time.Now()
				}
			}

			// A failed hook may still have left partial state to revert.
			if !res.Success && res.RollbackRequired && h.SupportsRollback() {
				completed = append(completed, h)
			}
		}

		if len(failedIDs) > 0 {
			debugLog("[executor] stage %d failed: %v, aborting and rolling back", stageIdx, failedIDs)
			rolledBack, rollbackErrs := e.rollback(ctx, completed, ec)

			execErr := &ExecutionError{
				ExecutionID:    ec.ExecutionID,
				StageIndex:     stageIdx,
				FailedHookIDs:  failedIDs,
				Results:        allResults,
				RolledBack:     rolledBack,
				RollbackErrors: rollbackErrs,
			}
			e.emit(Event{Type: EventRunFailed, ExecutionID: ec.ExecutionID, StageIndex: stageIdx,
				Message: execErr.Error(), Error: execErr})
			return allResults, execErr
		}

		e.emit(Event{Type: EventStageCompleted, ExecutionID: ec.ExecutionID, StageIndex: stageIdx})
	}

	debugLog("[executor] run %s completed: %d results", ec.ExecutionID, len(allResults))
	finalStage := len(plan.Stages) - 1
	if finalStage < startStage {
		finalStage = startStage
	}
	e.emit(Event{Type: EventRunCompleted, ExecutionID: ec.ExecutionID, StageIndex: finalStage,
		Message: fmt.Sprintf("%d hooks executed", len(allResults))})
	return allResults, nil
}

// pendingStage removes hooks committed by a previous run from a stage, so a
// recovered run can resume mid-stage without re-executing them. A stage left
// with a single hook runs sequentially.
func pendingStage(stage graph.Stage, skip map[string]bool) graph.Stage {
	if len(skip) == 0 {
		return stage
	}
	pending := make([]string, 0, len(stage.Hooks))
	for _, id := range stage.Hooks {
		if !skip[id] {
			pending = append(pending, id)
		}
	}
	return graph.Stage{Hooks: pending, Parallel: stage.Parallel && len(pending) > 1}
}

// runSequentialStage invokes hooks one at a time in list order, stopping at
// the first critical failure. Subsequent hooks in the stage are not invoked.
func (e *Executor) runSequentialStage(ctx context.Context, stage graph.Stage, index map[string]hooks.Hook, ec *models.ExecutionContext) []*models.HookResult {
	var results []*models.HookResult
	for _, id := range stage.Hooks {
		h := index[id]
		res := e.executeOne(ctx, h, ec)
		results = append(results, res)
		if !res.Success && !isNonCritical(h) {
			break
		}
	}
	return results
}

// runParallelStage invokes all hooks concurrently under the bounded
// semaphore and collects every result, even if some fail. Results are
// returned in dispatch order regardless of completion order.
func (e *Executor) runParallelStage(ctx context.Context, stage graph.Stage, index map[string]hooks.Hook, ec *models.ExecutionContext) []*models.HookResult {
	sem := semaphore.NewWeighted(int64(e.maxParallel))
	results := make([]*models.HookResult, len(stage.Hooks))
	var wg sync.WaitGroup

	for i, id := range stage.Hooks {
		h := index[id]
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled at the join point: record the remaining hooks
			// as failed rather than leaving gaps.
			results[i] = models.Failed(id, models.ErrorKindExecution, err, 0)
			continue
		}

		wg.Add(1)
		go func(i int, h hooks.Hook) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.executeOne(ctx, h, ec)
		}(i, h)
	}

	// Join barrier: the coordinator suspends until all dispatched hooks
	// return or fail.
	wg.Wait()
	return results
}

// executeOne runs a single hook: precondition validation, deadline
// enforcement, and normalization of the result. It always returns a
// non-nil result.
func (e *Executor) executeOne(ctx context.Context, h hooks.Hook, ec *models.ExecutionContext) *models.HookResult {
	e.emit(Event{Type: EventHookStarted, ExecutionID: ec.ExecutionID, HookID: h.ID()})

	// Precondition check short-circuits the hook without invoking it.
	if v, ok := h.(hooks.Validator); ok {
		if err := v.Validate(ec); err != nil {
			debugLog("[executor] hook %s validation failed: %v", h.ID(), err)
			return models.Failed(h.ID(), models.ErrorKindValidation, err, 0)
		}
	}

	hctx := ctx
	var cancel context.CancelFunc
	if e.hookTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, e.hookTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := h.Execute(hctx, ec)
	elapsed := time.Since(start)

	if err != nil {
		kind := models.ErrorKindExecution
		// Timeout is modeled as a failure kind, not a separate channel.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(hctx.Err(), context.DeadlineExceeded) {
			kind = models.ErrorKindTimeout
		}
		debugLog("[executor] hook %s failed after %s: %v", h.ID(), elapsed, err)
		failed := models.Failed(h.ID(), kind, err, elapsed)
		if res != nil {
			// Preserve deltas and the rollback-required flag from a partial result.
			failed.Metadata = res.Metadata
			failed.RollbackRequired = res.RollbackRequired
		}
		return failed
	}

	if res == nil {
		res = &models.HookResult{HookID: h.ID(), Success: true}
	}
	if res.HookID == "" {
		res.HookID = h.ID()
	}
	if res.Duration == 0 {
		res.Duration = elapsed
	}
	return res
}

// takeCheckpoint snapshots the context and records the checkpoint in it.
func (e *Executor) takeCheckpoint(ec *models.ExecutionContext, name string, stageIdx, totalStages int, committed []string) error {
	cp, err := e.checkpointer.Checkpoint(ec, name, stageIdx, totalStages, committed)
	if err != nil {
		return err
	}
	ec.RecordCheckpoint(models.CheckpointRecord{
		ID:         cp.ID,
		Name:       cp.Name,
		StageIndex: cp.StageIndex,
		CreatedAt:  cp.CreatedAt,
	})
	debugLog("[executor] checkpoint %q created at stage %d (%d hooks committed)", name, stageIdx, len(committed))
	e.emit(Event{Type: EventCheckpointCreated, ExecutionID: ec.ExecutionID, StageIndex: stageIdx, Message: name})
	return nil
}

func (e *Executor) emit(ev Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

func isNonCritical(h hooks.Hook) bool {
	nc, ok := h.(hooks.NonCritical)
	return ok && nc.NonCritical()
}
