package store

import (
	"sort"
	"sync"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// Memory is an in-memory checkpoint store for tests and ephemeral runs.
type Memory struct {
	mu          sync.RWMutex
	checkpoints map[string]map[string]models.Checkpoint // executionID -> name -> checkpoint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{checkpoints: make(map[string]map[string]models.Checkpoint)}
}

// Put upserts a checkpoint.
func (m *Memory) Put(cp *models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byName, ok := m.checkpoints[cp.ExecutionID]
	if !ok {
		byName = make(map[string]models.Checkpoint)
		m.checkpoints[cp.ExecutionID] = byName
	}
	byName[cp.Name] = *cp
	return nil
}

// Get retrieves a checkpoint, or nil if not found.
func (m *Memory) Get(executionID, name string) (*models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if cp, ok := m.checkpoints[executionID][name]; ok {
		copied := cp
		return &copied, nil
	}
	return nil, nil
}

// Latest retrieves the most recent checkpoint for an execution.
func (m *Memory) Latest(executionID string) (*models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.Checkpoint
	for _, cp := range m.checkpoints[executionID] {
		cp := cp
		if latest == nil || cp.CreatedAt.After(latest.CreatedAt) {
			latest = &cp
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// List returns all checkpoints for an execution, oldest first.
func (m *Memory) List(executionID string) ([]models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []models.Checkpoint
	for _, cp := range m.checkpoints[executionID] {
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// ListExecutions summarizes executions, most recently active first.
func (m *Memory) ListExecutions() ([]ExecutionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summaries []ExecutionSummary
	for execID, byName := range m.checkpoints {
		if len(byName) == 0 {
			continue
		}
		var latest models.Checkpoint
		var lastActivity time.Time
		for _, cp := range byName {
			if cp.CreatedAt.After(latest.CreatedAt) {
				latest = cp
			}
			if cp.LastActivity.After(lastActivity) {
				lastActivity = cp.LastActivity
			}
		}
		summaries = append(summaries, ExecutionSummary{
			ExecutionID:     execID,
			CheckpointCount: len(byName),
			LatestName:      latest.Name,
			LatestStage:     latest.StageIndex,
			LastActivity:    lastActivity,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

// Purge deletes checkpoints older than the given age.
func (m *Memory) Purge(olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var removed int64
	for execID, byName := range m.checkpoints {
		for name, cp := range byName {
			if cp.CreatedAt.Before(cutoff) {
				delete(byName, name)
				removed++
			}
		}
		if len(byName) == 0 {
			delete(m.checkpoints, execID)
		}
	}
	return removed, nil
}
