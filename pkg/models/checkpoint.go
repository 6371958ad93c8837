package models

import "time"

// RecoveryHint is the human-actionable guidance stored alongside a checkpoint.
type RecoveryHint struct {
	// Summary is a one-paragraph description of where the execution stood.
	Summary string `json:"summary"`
	// SuggestedAction is the recommended next step for an operator.
	SuggestedAction string `json:"suggested_action"`
	// Confidence estimates the likelihood that resuming from this checkpoint
	// will succeed, in [0, 1]. It decays with time since last activity.
	Confidence float64 `json:"confidence"`
}

// Checkpoint is a named, timestamped snapshot of execution progress.
// Checkpoints are never mutated after creation, only superseded.
type Checkpoint struct {
	// ID is the checkpoint's unique identifier.
	ID string `json:"id"`
	// ExecutionID is the pipeline run this checkpoint belongs to.
	ExecutionID string `json:"execution_id"`
	// Name is the checkpoint name, unique within the execution.
	Name string `json:"name"`
	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`
	// StageIndex is the plan stage the execution had reached.
	StageIndex int `json:"stage_index"`
	// TotalStages is the number of stages in the plan, for progress math.
	TotalStages int `json:"total_stages"`
	// CompletedHooks lists the hooks whose results had been folded in,
	// in execution order.
	CompletedHooks []string `json:"completed_hooks"`
	// ArtifactCount is how many artifacts the context held.
	ArtifactCount int `json:"artifact_count"`
	// Agents is the set of agents that were active at snapshot time.
	Agents []AgentHandle `json:"agents,omitempty"`
	// Metadata is a copy of the context metadata at snapshot time.
	Metadata map[string]any `json:"metadata,omitempty"`
	// WorkspacePath is the workspace the run operated in.
	WorkspacePath string `json:"workspace_path"`
	// LastActivity is the context's last-activity timestamp at snapshot time.
	LastActivity time.Time `json:"last_activity"`
	// Hint is the recovery guidance computed at snapshot time.
	Hint RecoveryHint `json:"hint"`
}

// RecoveryGuidance is what a recovery hands back to the caller alongside
// the reconstructed context. The caller is responsible for resuming the
// execution plan from ResumeStageIndex; completed hooks are never re-run.
type RecoveryGuidance struct {
	// CheckpointID is the checkpoint the context was reconstructed from.
	CheckpointID string `json:"checkpoint_id"`
	// CheckpointName is the name of that checkpoint.
	CheckpointName string `json:"checkpoint_name"`
	// ResumeStageIndex is the plan stage to resume from.
	ResumeStageIndex int `json:"resume_stage_index"`
	// CompletedHooks lists hooks that must not be re-executed.
	CompletedHooks []string `json:"completed_hooks"`
	// Interruption is how long the execution sat idle before recovery.
	Interruption time.Duration `json:"interruption"`
	// Confidence is the recovery-success estimate after decay for the
	// interruption length.
	Confidence float64 `json:"confidence"`
	// Summary restates where the execution stood.
	Summary string `json:"summary"`
	// SuggestedAction is the recommended next step.
	SuggestedAction string `json:"suggested_action"`
}
