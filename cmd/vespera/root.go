package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/checkpoint"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "vespera",
	Short: "Hook dependency scheduler & execution coordinator",
	Long: `Vespera resolves a set of hooks with declared dependencies into a
staged execution plan, runs the stages with bounded parallelism, snapshots
progress into recoverable checkpoints, and rolls back partial work on
failure.

Core capabilities:
- Topological staging with cycle detection
- Parallel stages under a bounded concurrency limit
- Periodic and hook-requested checkpoints with recovery guidance
- Best-effort reverse-order rollback on stage failure`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(hooksCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the configured checkpoint store and applies migrations.
func openStore(cfg *config.Config) (*store.DB, error) {
	path := cfg.Store.Path
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			if _, err := os.Stat(store.ProjectDBPath(cwd)); err == nil {
				path = store.ProjectDBPath(cwd)
			}
		}
	}
	if path == "" {
		path = store.GlobalDBPath()
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate checkpoint store: %w", err)
	}
	return db, nil
}

// newManager opens the store and wraps it in a checkpoint manager.
func newManager(cfg *config.Config) (*checkpoint.Manager, *store.DB, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return checkpoint.NewManager(db), db, nil
}
