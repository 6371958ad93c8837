package models

import "time"

// ErrorKind classifies why a hook failed.
type ErrorKind string

const (
	// ErrorKindValidation indicates the context failed the hook's preconditions.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindExecution indicates the hook body returned an error.
	ErrorKindExecution ErrorKind = "execution"
	// ErrorKindTimeout indicates the hook exceeded its execution deadline.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindRollback indicates a failure during rollback of a prior success.
	ErrorKindRollback ErrorKind = "rollback"
)

// Valid returns true if the kind is a known value.
func (k ErrorKind) Valid() bool {
	switch k {
	case ErrorKindValidation, ErrorKindExecution, ErrorKindTimeout, ErrorKindRollback:
		return true
	default:
		return false
	}
}

// Artifact is a reference to something a hook produced.
type Artifact struct {
	// Name is a short label for the artifact.
	Name string `json:"name"`
	// Path is the filesystem location, if the artifact lives on disk.
	Path string `json:"path,omitempty"`
	// Kind describes what the artifact is (file, branch, report, ...).
	Kind string `json:"kind,omitempty"`
	// HookID is the hook that produced this artifact.
	HookID string `json:"hook_id,omitempty"`
	// CreatedAt is when the artifact was produced.
	CreatedAt time.Time `json:"created_at"`
}

// AgentHandle identifies a spawned agent and its workspace.
type AgentHandle struct {
	// ID is the unique identifier for the agent.
	ID string `json:"id"`
	// WorkspacePath is the agent's isolated working directory.
	WorkspacePath string `json:"workspace_path,omitempty"`
	// SpawnedAt is when the agent was started.
	SpawnedAt time.Time `json:"spawned_at"`
}

// HookResult is the outcome of one hook execution or rollback.
// It is an immutable value consumed once by the executor, which folds
// the deltas (metadata, artifacts, agents) into the execution context.
type HookResult struct {
	// HookID is the hook that produced this result.
	HookID string `json:"hook_id"`
	// Success indicates whether the hook completed without error.
	Success bool `json:"success"`
	// Message is a human-readable summary of what happened.
	Message string `json:"message,omitempty"`
	// Duration is how long the hook ran.
	Duration time.Duration `json:"duration"`
	// ErrorKind classifies the failure, empty on success.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
	// Metadata holds key/value deltas to merge into the context.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Artifacts lists artifacts produced by this execution.
	Artifacts []Artifact `json:"artifacts,omitempty"`
	// Agents lists agents spawned by this execution.
	Agents []AgentHandle `json:"agents,omitempty"`
	// CheckpointName, if set, asks the executor to create a named checkpoint
	// after folding this result.
	CheckpointName string `json:"checkpoint_name,omitempty"`
	// RollbackRequired indicates the hook left partial state that should be
	// reverted even though the result is reported as failed.
	RollbackRequired bool `json:"rollback_required,omitempty"`
}

// Failed returns a failed result for the given hook with the given classification.
func Failed(hookID string, kind ErrorKind, err error, d time.Duration) *HookResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &HookResult{
		HookID:    hookID,
		Success:   false,
		Duration:  d,
		ErrorKind: kind,
		Error:     msg,
	}
}
