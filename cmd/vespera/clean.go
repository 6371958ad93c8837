package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
)

var cleanOlderThan time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Purge old checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		mgr, db, err := newManager(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := mgr.Purge(cleanOlderThan)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d checkpoints older than %s\n", removed, cleanOlderThan)
		return nil
	},
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 7*24*time.Hour, "Age threshold for purging checkpoints")
}
