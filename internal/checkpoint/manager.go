// Package checkpoint persists point-in-time snapshots of execution progress
// and reconstructs contexts from them after an interruption.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/store"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Manager creates checkpoints and recovers contexts from them.
type Manager struct {
	store store.CheckpointStore
	// now is injectable for tests.
	now func() time.Time
}

// NewManager creates a Manager backed by the given store.
func NewManager(s store.CheckpointStore) *Manager {
	return &Manager{store: s, now: time.Now}
}

// Checkpoint snapshots the context under the given name. The snapshot
// captures the stage index, completed hook IDs, artifact/agent state,
// metadata, and a recovery hint computed from current progress and elapsed
// time since last activity. Checkpoints are immutable once written; a
// checkpoint with the same name supersedes the previous one.
func (m *Manager) Checkpoint(ec *models.ExecutionContext, name string, stageIndex, totalStages int, completedHooks []string) (*models.Checkpoint, error) {
	if ec == nil {
		return nil, fmt.Errorf("checkpoint: nil context")
	}
	if name == "" {
		return nil, fmt.Errorf("checkpoint: empty name")
	}

	now := m.now()

	metadata := make(map[string]any, len(ec.Metadata))
	for k, v := range ec.Metadata {
		metadata[k] = v
	}
	agents := make([]models.AgentHandle, 0, len(ec.Agents))
	for _, a := range ec.Agents {
		agents = append(agents, a)
	}
	completed := append([]string{}, completedHooks...)

	framing, action := progressFraming(progressFraction(stageIndex, totalStages))
	hint := models.RecoveryHint{
		Summary:         buildSummary(framing, stageIndex, totalStages, len(completed), len(ec.Artifacts)),
		SuggestedAction: action,
		Confidence:      decayConfidence(now.Sub(ec.LastActivity)),
	}

	cp := &models.Checkpoint{
		ID:             uuid.New().String()[:8],
		ExecutionID:    ec.ExecutionID,
		Name:           name,
		CreatedAt:      now,
		StageIndex:     stageIndex,
		TotalStages:    totalStages,
		CompletedHooks: completed,
		ArtifactCount:  len(ec.Artifacts),
		Agents:         agents,
		Metadata:       metadata,
		WorkspacePath:  ec.WorkspacePath,
		LastActivity:   ec.LastActivity,
		Hint:           hint,
	}

	if err := m.store.Put(cp); err != nil {
		return nil, fmt.Errorf("persist checkpoint %q: %w", name, err)
	}
	return cp, nil
}

// Recover reconstructs a context from the most recent checkpoint for an
// execution, or from a specifically named one. It computes the interruption
// duration and a recovery-success estimate that decays with it. Recovery
// never re-executes completed hooks: the guidance tells the caller which
// stage to resume from and which hooks are already committed.
func (m *Manager) Recover(executionID, checkpointName string) (*models.ExecutionContext, *models.RecoveryGuidance, error) {
	var cp *models.Checkpoint
	var err error
	if checkpointName == "" {
		cp, err = m.store.Latest(executionID)
	} else {
		cp, err = m.store.Get(executionID, checkpointName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		if checkpointName == "" {
			return nil, nil, fmt.Errorf("no checkpoints found for execution %s", executionID)
		}
		return nil, nil, fmt.Errorf("checkpoint %q not found for execution %s", checkpointName, executionID)
	}

	ec := models.NewExecutionContext(cp.ExecutionID, cp.WorkspacePath)
	for k, v := range cp.Metadata {
		ec.Metadata[k] = v
	}
	for _, a := range cp.Agents {
		ec.Agents[a.ID] = a
	}
	ec.RecordCheckpoint(models.CheckpointRecord{
		ID:         cp.ID,
		Name:       cp.Name,
		StageIndex: cp.StageIndex,
		CreatedAt:  cp.CreatedAt,
	})
	// Preserve the pre-interruption activity timestamp; the caller's resume
	// will touch the context as work restarts.
	ec.LastActivity = cp.LastActivity

	interruption := m.now().Sub(cp.LastActivity)
	if interruption < 0 {
		interruption = 0
	}

	guidance := &models.RecoveryGuidance{
		CheckpointID:     cp.ID,
		CheckpointName:   cp.Name,
		ResumeStageIndex: cp.StageIndex,
		CompletedHooks:   append([]string{}, cp.CompletedHooks...),
		Interruption:     interruption,
		Confidence:       decayConfidence(interruption),
		Summary:          cp.Hint.Summary,
		SuggestedAction:  cp.Hint.SuggestedAction,
	}
	return ec, guidance, nil
}

// List returns every checkpoint stored for an execution, oldest first.
func (m *Manager) List(executionID string) ([]models.Checkpoint, error) {
	return m.store.List(executionID)
}

// ListExecutions summarizes every execution with stored checkpoints.
func (m *Manager) ListExecutions() ([]store.ExecutionSummary, error) {
	return m.store.ListExecutions()
}

// Purge removes checkpoints older than the given age.
func (m *Manager) Purge(olderThan time.Duration) (int64, error) {
	return m.store.Purge(olderThan)
}
