package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Built-in hooks operate only on the execution context and the workspace
// directory. Side-effect-heavy concerns (version control, agent process
// spawning) are external collaborators registered by the embedding
// application, not implemented here.

// WorkspaceSetupHook ensures the run's workspace directory exists.
// It supports rollback: a directory it created is removed again.
type WorkspaceSetupHook struct {
	// Deps lists hook IDs that must complete before setup.
	Deps []string
}

// ID implements Hook.
func (h *WorkspaceSetupHook) ID() string { return "workspace_setup" }

// Description implements Hook.
func (h *WorkspaceSetupHook) Description() string {
	return "Creates the pipeline workspace directory"
}

// Dependencies implements Hook.
func (h *WorkspaceSetupHook) Dependencies() []string { return h.Deps }

// SupportsRollback implements Hook.
func (h *WorkspaceSetupHook) SupportsRollback() bool { return true }

// Validate implements Validator.
func (h *WorkspaceSetupHook) Validate(ec *models.ExecutionContext) error {
	if ec.WorkspacePath == "" {
		return fmt.Errorf("workspace path is empty")
	}
	return nil
}

// Execute implements Hook.
func (h *WorkspaceSetupHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()

	created := false
	if _, err := os.Stat(ec.WorkspacePath); os.IsNotExist(err) {
		created = true
	}
	if err := os.MkdirAll(ec.WorkspacePath, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &models.HookResult{
		HookID:   h.ID(),
		Success:  true,
		Message:  fmt.Sprintf("workspace ready at %s", ec.WorkspacePath),
		Duration: time.Since(start),
		Metadata: map[string]any{
			"workspace.ready":   true,
			"workspace.created": created,
		},
	}, nil
}

// Rollback implements Hook. It removes the workspace only if Execute
// created it; pre-existing directories are left alone.
func (h *WorkspaceSetupHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()

	if created, _ := ec.Metadata["workspace.created"].(bool); !created {
		return &models.HookResult{
			HookID:   h.ID(),
			Success:  true,
			Message:  "workspace pre-existed, nothing to remove",
			Duration: time.Since(start),
		}, nil
	}

	if err := os.RemoveAll(ec.WorkspacePath); err != nil {
		return nil, fmt.Errorf("remove workspace: %w", err)
	}
	return &models.HookResult{
		HookID:   h.ID(),
		Success:  true,
		Message:  fmt.Sprintf("removed workspace %s", ec.WorkspacePath),
		Duration: time.Since(start),
	}, nil
}

// MetadataStampHook writes a fixed set of metadata keys into the context.
type MetadataStampHook struct {
	// HookID is the stamp's identity; pipelines may register several stamps.
	HookID string
	// Deps lists hook IDs that must complete first.
	Deps []string
	// Values are the metadata entries to stamp.
	Values map[string]any
}

// ID implements Hook.
func (h *MetadataStampHook) ID() string {
	if h.HookID == "" {
		return "metadata_stamp"
	}
	return h.HookID
}

// Description implements Hook.
func (h *MetadataStampHook) Description() string { return "Stamps metadata into the context" }

// Dependencies implements Hook.
func (h *MetadataStampHook) Dependencies() []string { return h.Deps }

// SupportsRollback implements Hook.
func (h *MetadataStampHook) SupportsRollback() bool { return false }

// Execute implements Hook.
func (h *MetadataStampHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()
	md := make(map[string]any, len(h.Values))
	for k, v := range h.Values {
		md[k] = v
	}
	return &models.HookResult{
		HookID:   h.ID(),
		Success:  true,
		Message:  fmt.Sprintf("stamped %d metadata keys", len(md)),
		Duration: time.Since(start),
		Metadata: md,
	}, nil
}

// Rollback implements Hook. Never called; SupportsRollback is false.
func (h *MetadataStampHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	return nil, fmt.Errorf("metadata stamp does not support rollback")
}

// CheckpointRequestHook asks the executor to snapshot the context after
// this hook's result is folded in.
type CheckpointRequestHook struct {
	// Name is the checkpoint name to create.
	Name string
	// Deps lists hook IDs that must complete first.
	Deps []string
}

// ID implements Hook.
func (h *CheckpointRequestHook) ID() string { return "checkpoint_request" }

// Description implements Hook.
func (h *CheckpointRequestHook) Description() string { return "Requests a named checkpoint" }

// Dependencies implements Hook.
func (h *CheckpointRequestHook) Dependencies() []string { return h.Deps }

// SupportsRollback implements Hook.
func (h *CheckpointRequestHook) SupportsRollback() bool { return false }

// Execute implements Hook.
func (h *CheckpointRequestHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()
	name := h.Name
	if name == "" {
		name = "requested"
	}
	return &models.HookResult{
		HookID:         h.ID(),
		Success:        true,
		Message:        fmt.Sprintf("requested checkpoint %q", name),
		Duration:       time.Since(start),
		CheckpointName: name,
	}, nil
}

// Rollback implements Hook. Never called; SupportsRollback is false.
func (h *CheckpointRequestHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	return nil, fmt.Errorf("checkpoint request does not support rollback")
}

// HealthCheckHook probes that the workspace is present and writable.
type HealthCheckHook struct {
	Deps []string
}

// ID implements Hook.
func (h *HealthCheckHook) ID() string { return "health_check" }

// Description implements Hook.
func (h *HealthCheckHook) Description() string { return "Verifies the workspace is writable" }

// Dependencies implements Hook.
func (h *HealthCheckHook) Dependencies() []string { return h.Deps }

// SupportsRollback implements Hook.
func (h *HealthCheckHook) SupportsRollback() bool { return false }

// Validate implements Validator.
func (h *HealthCheckHook) Validate(ec *models.ExecutionContext) error {
	if ec.WorkspacePath == "" {
		return fmt.Errorf("workspace path is empty")
	}
	return nil
}

// Execute implements Hook.
func (h *HealthCheckHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()

	probe := filepath.Join(ec.WorkspacePath, ".vespera-health")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return nil, fmt.Errorf("workspace not writable: %w", err)
	}
	os.Remove(probe)

	return &models.HookResult{
		HookID:   h.ID(),
		Success:  true,
		Message:  "workspace healthy",
		Duration: time.Since(start),
		Metadata: map[string]any{"health.ok": true, "health.checked_at": time.Now().UTC().Format(time.RFC3339)},
	}, nil
}

// Rollback implements Hook. Never called; SupportsRollback is false.
func (h *HealthCheckHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	return nil, fmt.Errorf("health check does not support rollback")
}

// NotifyHook appends a notification line to the workspace notification log.
// It is non-critical: a failure is recorded but does not abort the stage.
type NotifyHook struct {
	// Message is the notification text.
	Message string
	// Deps lists hook IDs that must complete first.
	Deps []string
}

// ID implements Hook.
func (h *NotifyHook) ID() string { return "notify" }

// Description implements Hook.
func (h *NotifyHook) Description() string { return "Writes a notification to the workspace log" }

// Dependencies implements Hook.
func (h *NotifyHook) Dependencies() []string { return h.Deps }

// SupportsRollback implements Hook.
func (h *NotifyHook) SupportsRollback() bool { return false }

// NonCritical implements NonCritical.
func (h *NotifyHook) NonCritical() bool { return true }

// Execute implements Hook.
func (h *NotifyHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	start := time.Now()

	logDir := filepath.Join(ec.WorkspacePath, ".vespera")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create notification dir: %w", err)
	}
	logPath := filepath.Join(logDir, "notifications.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open notification log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), h.Message)
	if _, err := f.WriteString(line); err != nil {
		return nil, fmt.Errorf("write notification: %w", err)
	}

	return &models.HookResult{
		HookID:   h.ID(),
		Success:  true,
		Message:  "notification written",
		Duration: time.Since(start),
	}, nil
}

// Rollback implements Hook. Never called; SupportsRollback is false.
func (h *NotifyHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	return nil, fmt.Errorf("notify does not support rollback")
}

// RegisterBuiltins registers the built-in hook set with sensible triggers,
// tags, and priorities.
func RegisterBuiltins(r *Registry) error {
	regs := []struct {
		hook     Hook
		triggers []Trigger
		tags     []string
		priority int
	}{
		{&WorkspaceSetupHook{}, []Trigger{TriggerPhaseInit, TriggerBeforeTaskCreate}, []string{"workspace", "lightweight"}, 100},
		{&MetadataStampHook{}, []Trigger{TriggerPhaseInit, TriggerPhaseTransition}, []string{"metadata", "lightweight"}, 50},
		{&CheckpointRequestHook{}, []Trigger{TriggerPhaseTransition, TriggerPostExecution}, []string{"checkpoint", "lightweight"}, 40},
		{&HealthCheckHook{}, []Trigger{TriggerSystemHealthCheck, TriggerPhaseInit}, []string{"health", "lightweight"}, 90},
		{&NotifyHook{Message: "pipeline event"}, []Trigger{TriggerPostExecution, TriggerPhaseTransition}, []string{"notification"}, 10},
	}

	for _, reg := range regs {
		if err := r.Register(reg.hook, reg.triggers, reg.tags, reg.priority); err != nil {
			return err
		}
	}
	return nil
}
