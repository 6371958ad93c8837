// Package pipeline ties the registry, dependency graph, and executor
// together: it assembles the hook set for a trigger, resolves the plan,
// and drives execution against a fresh or recovered context.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/activity"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/checkpoint"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/executor"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/graph"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Report is the outcome of one pipeline run.
type Report struct {
	// ExecutionID identifies the run.
	ExecutionID string
	// Plan is the resolved execution plan.
	Plan *graph.ExecutionPlan
	// Results is the ordered sequence of hook results.
	Results []*models.HookResult
	// Context is the enriched execution context after the run.
	Context *models.ExecutionContext
}

// Coordinator assembles and runs pipelines. It owns no global state; the
// registry and checkpoint manager are injected.
type Coordinator struct {
	registry *hooks.Registry
	ckpts    *checkpoint.Manager
	cfg      *config.Config
	tracker  *hooks.DurationTracker
	emitter  *executor.EventEmitter
	logger   *executor.DebugLogger
	// watchWorkspace enables the fsnotify activity watcher for runs.
	watchWorkspace bool
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(registry *hooks.Registry, ckpts *checkpoint.Manager, cfg *config.Config) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Coordinator{
		registry: registry,
		ckpts:    ckpts,
		cfg:      cfg,
		tracker:  hooks.NewDurationTracker(),
	}
}

// SetEventEmitter wires an emitter for progress events (watch TUI, CLI).
func (c *Coordinator) SetEventEmitter(e *executor.EventEmitter) { c.emitter = e }

// SetLogger wires a debug logger.
func (c *Coordinator) SetLogger(l *executor.DebugLogger) { c.logger = l }

// SetWorkspaceWatch enables the workspace activity watcher.
func (c *Coordinator) SetWorkspaceWatch(enabled bool) { c.watchWorkspace = enabled }

// Tracker returns the duration tracker shared across runs.
func (c *Coordinator) Tracker() *hooks.DurationTracker { return c.tracker }

// Run executes the pipeline described by def against a fresh context.
func (c *Coordinator) Run(ctx context.Context, def *Definition, workspace string) (*Report, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if workspace == "" {
		workspace = def.Workspace
	}
	if workspace == "" {
		return nil, fmt.Errorf("pipeline %s: no workspace given", def.Name)
	}

	execID := uuid.New().String()[:8]
	ec := models.NewExecutionContext(execID, workspace)
	ec.Metadata["pipeline.name"] = def.Name
	ec.Metadata["pipeline.trigger"] = def.Trigger

	plan, index, err := c.resolve(def)
	if err != nil {
		return nil, err
	}

	results, runErr := c.execute(ctx, def, plan, index, ec, 0, nil)

	report := &Report{ExecutionID: execID, Plan: plan, Results: results, Context: ec}
	if runErr != nil {
		return report, runErr
	}

	// Terminal checkpoint so status listings show the run as completed.
	if c.ckpts != nil {
		committed := make([]string, 0, len(results))
		for _, r := range results {
			if r.Success {
				committed = append(committed, r.HookID)
			}
		}
		if _, err := c.ckpts.Checkpoint(ec, "completed", len(plan.Stages), len(plan.Stages), committed); err != nil {
			return report, fmt.Errorf("final checkpoint: %w", err)
		}
	}
	return report, nil
}

// Resume recovers the context for an interrupted execution and continues
// the pipeline from the recorded stage index. Completed hooks are never
// re-executed.
func (c *Coordinator) Resume(ctx context.Context, def *Definition, executionID, checkpointName string) (*Report, *models.RecoveryGuidance, error) {
	if c.ckpts == nil {
		return nil, nil, fmt.Errorf("resume requires a checkpoint manager")
	}

	ec, guidance, err := c.ckpts.Recover(executionID, checkpointName)
	if err != nil {
		return nil, nil, err
	}

	// Resolution is deterministic, so re-resolving the definition yields
	// the same staging the original run used.
	plan, index, err := c.resolve(def)
	if err != nil {
		return nil, guidance, err
	}

	results, runErr := c.execute(ctx, def, plan, index, ec, guidance.ResumeStageIndex, guidance.CompletedHooks)

	report := &Report{ExecutionID: ec.ExecutionID, Plan: plan, Results: results, Context: ec}
	return report, guidance, runErr
}

// resolve assembles the hook set for the definition and produces the plan.
func (c *Coordinator) resolve(def *Definition) (*graph.ExecutionPlan, map[string]hooks.Hook, error) {
	hookSet := c.registry.SelectFor(def.TriggerValue(), def.Profile())
	if len(hookSet) == 0 {
		return nil, nil, fmt.Errorf("pipeline %s: no hooks registered for trigger %s", def.Name, def.Trigger)
	}

	nodes := make([]graph.Node, len(hookSet))
	for i, h := range hookSet {
		nodes[i] = h
	}

	g := graph.New()
	if err := g.Build(nodes); err != nil {
		return nil, nil, fmt.Errorf("pipeline %s: %w", def.Name, err)
	}

	threshold := c.cfg.Executor.OverwhelmThreshold
	if def.OverwhelmThreshold > 0 {
		threshold = def.OverwhelmThreshold
	}
	plan, err := graph.Resolve(g, threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline %s: %w", def.Name, err)
	}
	return plan, executor.Index(hookSet), nil
}

// execute builds an executor for the definition and runs the plan.
func (c *Coordinator) execute(ctx context.Context, def *Definition, plan *graph.ExecutionPlan, index map[string]hooks.Hook, ec *models.ExecutionContext, startStage int, completed []string) ([]*models.HookResult, error) {
	opts := []executor.Option{
		executor.WithMaxParallel(pick(def.MaxParallel, c.cfg.Executor.MaxParallel)),
		executor.WithCheckpointInterval(pickDuration(def.CheckpointInterval.Std(), c.cfg.Executor.CheckpointInterval)),
		executor.WithHookTimeout(pickDuration(def.HookTimeout.Std(), c.cfg.Executor.HookTimeout)),
		executor.WithDurationTracker(c.tracker),
	}
	if c.ckpts != nil {
		opts = append(opts, executor.WithCheckpointer(c.ckpts))
	}
	if c.emitter != nil {
		opts = append(opts, executor.WithEventEmitter(c.emitter))
	}
	if c.logger != nil {
		opts = append(opts, executor.WithLogger(c.logger))
	}

	if c.watchWorkspace {
		if watcher, err := activity.NewWatcher(ec.WorkspacePath); err == nil {
			watcher.Start()
			defer watcher.Stop()
			opts = append(opts, executor.WithActivitySource(watcher))
		}
	}

	exec := executor.New(opts...)
	return exec.RunFrom(ctx, plan, index, ec, startStage, completed)
}

func pick(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}

func pickDuration(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}
