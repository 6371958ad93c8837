package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// DB is the SQLite-backed checkpoint store. WAL mode is enabled for
// concurrent reads.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the global vespera database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "vespera", "vespera.db")
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".vespera", "state.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories if needed.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Checkpoints},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Checkpoints = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT NOT NULL,
	execution_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	stage_index INTEGER NOT NULL DEFAULT 0,
	total_stages INTEGER NOT NULL DEFAULT 0,
	completed_hooks TEXT,
	artifact_count INTEGER NOT NULL DEFAULT 0,
	agents TEXT,
	metadata TEXT,
	workspace_path TEXT,
	last_activity DATETIME NOT NULL,
	hint_summary TEXT,
	hint_action TEXT,
	hint_confidence REAL NOT NULL DEFAULT 0.0,
	PRIMARY KEY (execution_id, name)
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_execution ON checkpoints(execution_id);
CREATE INDEX IF NOT EXISTS idx_checkpoints_created_at ON checkpoints(created_at);
`

const checkpointColumns = `id, execution_id, name, created_at, stage_index, total_stages,
	completed_hooks, artifact_count, agents, metadata, workspace_path, last_activity,
	hint_summary, hint_action, hint_confidence`

// Put upserts a checkpoint keyed by (execution_id, name).
func (db *DB) Put(cp *models.Checkpoint) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	completedHooks, _ := json.Marshal(cp.CompletedHooks)
	agents, _ := json.Marshal(cp.Agents)
	metadata, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("marshal checkpoint metadata: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO checkpoints (`+checkpointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id, name) DO UPDATE SET
			id = excluded.id,
			created_at = excluded.created_at,
			stage_index = excluded.stage_index,
			total_stages = excluded.total_stages,
			completed_hooks = excluded.completed_hooks,
			artifact_count = excluded.artifact_count,
			agents = excluded.agents,
			metadata = excluded.metadata,
			workspace_path = excluded.workspace_path,
			last_activity = excluded.last_activity,
			hint_summary = excluded.hint_summary,
			hint_action = excluded.hint_action,
			hint_confidence = excluded.hint_confidence
	`, cp.ID, cp.ExecutionID, cp.Name, formatTime(cp.CreatedAt), cp.StageIndex, cp.TotalStages,
		string(completedHooks), cp.ArtifactCount, string(agents), string(metadata),
		cp.WorkspacePath, formatTime(cp.LastActivity),
		cp.Hint.Summary, cp.Hint.SuggestedAction, cp.Hint.Confidence)
	if err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// Get retrieves a checkpoint by execution ID and name.
// Returns nil without error if not found.
func (db *DB) Get(executionID, name string) (*models.Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT `+checkpointColumns+` FROM checkpoints
		WHERE execution_id = ? AND name = ?
	`, executionID, name)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, nil
}

// Latest retrieves the most recent checkpoint for an execution.
// Returns nil without error if the execution has no checkpoints.
func (db *DB) Latest(executionID string) (*models.Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT `+checkpointColumns+` FROM checkpoints
		WHERE execution_id = ?
		ORDER BY created_at DESC, stage_index DESC
		LIMIT 1
	`, executionID)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return cp, nil
}

// List returns all checkpoints for an execution, oldest first.
func (db *DB) List(executionID string) ([]models.Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT `+checkpointColumns+` FROM checkpoints
		WHERE execution_id = ?
		ORDER BY created_at ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, *cp)
	}
	return checkpoints, rows.Err()
}

// ListExecutions summarizes executions with stored checkpoints,
// most recently active first.
func (db *DB) ListExecutions() ([]ExecutionSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT execution_id, COUNT(*), MAX(last_activity)
		FROM checkpoints
		GROUP BY execution_id
		ORDER BY MAX(last_activity) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var summaries []ExecutionSummary
	for rows.Next() {
		var s ExecutionSummary
		var lastActivity string
		if err := rows.Scan(&s.ExecutionID, &s.CheckpointCount, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan execution summary: %w", err)
		}
		s.LastActivity, _ = parseTime(lastActivity)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fill in the latest checkpoint name/stage per execution.
	for i := range summaries {
		row := db.conn.QueryRow(`
			SELECT name, stage_index FROM checkpoints
			WHERE execution_id = ?
			ORDER BY created_at DESC, stage_index DESC
			LIMIT 1
		`, summaries[i].ExecutionID)
		if err := row.Scan(&summaries[i].LatestName, &summaries[i].LatestStage); err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("latest checkpoint for %s: %w", summaries[i].ExecutionID, err)
		}
	}
	return summaries, nil
}

// Purge deletes checkpoints older than the given age.
func (db *DB) Purge(olderThan time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.conn.Exec("DELETE FROM checkpoints WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge checkpoints: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanCheckpoint.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var createdAt, lastActivity string
	var completedHooks, agents, metadata, workspacePath sql.NullString

	err := row.Scan(&cp.ID, &cp.ExecutionID, &cp.Name, &createdAt, &cp.StageIndex, &cp.TotalStages,
		&completedHooks, &cp.ArtifactCount, &agents, &metadata, &workspacePath, &lastActivity,
		&cp.Hint.Summary, &cp.Hint.SuggestedAction, &cp.Hint.Confidence)
	if err != nil {
		return nil, err
	}

	if completedHooks.Valid && completedHooks.String != "" {
		if err := json.Unmarshal([]byte(completedHooks.String), &cp.CompletedHooks); err != nil {
			return nil, fmt.Errorf("decode completed_hooks: %w", err)
		}
	}
	if agents.Valid && agents.String != "" {
		if err := json.Unmarshal([]byte(agents.String), &cp.Agents); err != nil {
			return nil, fmt.Errorf("decode agents: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if workspacePath.Valid {
		cp.WorkspacePath = workspacePath.String
	}
	cp.CreatedAt, _ = parseTime(createdAt)
	cp.LastActivity, _ = parseTime(lastActivity)
	return &cp, nil
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
