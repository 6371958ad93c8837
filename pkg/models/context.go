package models

import "time"

// CheckpointRecord is the context's memory of a checkpoint it has taken.
// The full snapshot lives in the checkpoint store; the context keeps only
// enough to list what exists.
type CheckpointRecord struct {
	// ID is the checkpoint's unique identifier.
	ID string `json:"id"`
	// Name is the checkpoint name, unique within an execution.
	Name string `json:"name"`
	// StageIndex is the plan stage the execution had reached.
	StageIndex int `json:"stage_index"`
	// CreatedAt is when the checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionContext is the mutable state threaded through one pipeline run.
// It is owned by the executor: hooks receive it as a scoped view for the
// duration of a single invocation and return deltas via HookResult rather
// than mutating it directly. All structural mutation (Fold, checkpoint
// recording) happens on the executor's coordinating goroutine, so the
// context itself carries no lock.
type ExecutionContext struct {
	// ExecutionID identifies the pipeline run this context belongs to.
	ExecutionID string `json:"execution_id"`
	// WorkspacePath is the root directory the pipeline operates in.
	WorkspacePath string `json:"workspace_path"`
	// Metadata holds free-form key/value state accumulated across stages.
	Metadata map[string]any `json:"metadata"`
	// Agents maps agent ID to the handle of each currently active agent.
	Agents map[string]AgentHandle `json:"agents"`
	// Artifacts is the ordered sequence of artifacts produced so far.
	Artifacts []Artifact `json:"artifacts"`
	// Checkpoints is the ordered sequence of checkpoints taken so far.
	Checkpoints []CheckpointRecord `json:"checkpoints"`
	// LastActivity is the time of the most recent observed progress.
	LastActivity time.Time `json:"last_activity"`
}

// NewExecutionContext creates a context for a new pipeline run.
func NewExecutionContext(executionID, workspacePath string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID:   executionID,
		WorkspacePath: workspacePath,
		Metadata:      make(map[string]any),
		Agents:        make(map[string]AgentHandle),
		LastActivity:  time.Now(),
	}
}

// Fold merges a hook result's deltas into the context: metadata keys are
// overwritten, artifacts appended in order, spawned agents registered.
// Fold must only be called from the executor's coordinating goroutine.
func (c *ExecutionContext) Fold(r *HookResult) {
	if r == nil {
		return
	}
	for k, v := range r.Metadata {
		c.Metadata[k] = v
	}
	c.Artifacts = append(c.Artifacts, r.Artifacts...)
	for _, a := range r.Agents {
		c.Agents[a.ID] = a
	}
	c.Touch()
}

// RecordCheckpoint appends a checkpoint record to the context.
func (c *ExecutionContext) RecordCheckpoint(rec CheckpointRecord) {
	c.Checkpoints = append(c.Checkpoints, rec)
	c.Touch()
}

// Touch updates the last-activity timestamp to now.
func (c *ExecutionContext) Touch() {
	c.LastActivity = time.Now()
}

// ReleaseAgent removes an agent from the active set.
func (c *ExecutionContext) ReleaseAgent(agentID string) {
	delete(c.Agents, agentID)
}

// MetadataString returns a metadata value as a string, or "" if absent
// or not a string.
func (c *ExecutionContext) MetadataString(key string) string {
	if v, ok := c.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
