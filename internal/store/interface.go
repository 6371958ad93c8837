// Package store provides checkpoint persistence for the scheduler.
package store

import (
	"io"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// ExecutionSummary describes one execution's checkpoint history, used by
// status listings and recovery detection.
type ExecutionSummary struct {
	ExecutionID     string
	CheckpointCount int
	LatestName      string
	LatestStage     int
	LastActivity    time.Time
}

// CheckpointStore defines the persistence contract the checkpoint manager
// relies on: upsert/get/list keyed by (executionID, name). The scheduler
// does not assume a specific storage technology.
type CheckpointStore interface {
	// Put upserts a checkpoint. A checkpoint with the same execution ID and
	// name supersedes the previous one.
	Put(cp *models.Checkpoint) error
	// Get retrieves a checkpoint by execution ID and name.
	// Returns nil without error if not found.
	Get(executionID, name string) (*models.Checkpoint, error)
	// Latest retrieves the most recent checkpoint for an execution.
	// Returns nil without error if the execution has no checkpoints.
	Latest(executionID string) (*models.Checkpoint, error)
	// List returns all checkpoints for an execution, oldest first.
	List(executionID string) ([]models.Checkpoint, error)
	// ListExecutions summarizes every execution with stored checkpoints,
	// most recently active first.
	ListExecutions() ([]ExecutionSummary, error)
	// Purge deletes checkpoints older than the given age and returns how
	// many were removed.
	Purge(olderThan time.Duration) (int64, error)
}

// Store composes the checkpoint contract with lifecycle management.
type Store interface {
	io.Closer
	CheckpointStore
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Compile-time verification that both implementations satisfy the contract.
var (
	_ Store           = (*DB)(nil)
	_ CheckpointStore = (*Memory)(nil)
)
