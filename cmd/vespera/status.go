package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List executions with stored checkpoints",
	Long: `Display every execution the checkpoint store knows about, with its
latest checkpoint, stage, and time since last activity. Executions that sat
idle for a long time are flagged as likely interrupted.`,
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

		summaries, err := mgr.ListExecutions()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no executions with checkpoints")
			return nil
		}

		fmt.Printf("%-10s %-6s %-20s %-8s %s\n", "EXECUTION", "CKPTS", "LATEST", "STAGE", "LAST ACTIVITY")
		for _, s := range summaries {
			idle := time.Since(s.LastActivity).Round(time.Minute)
			line := fmt.Sprintf("%-10s %-6d %-20s %-8d %s ago",
				s.ExecutionID, s.CheckpointCount, s.LatestName, s.LatestStage, idle)
			if s.LatestName != "completed" && idle > time.Hour {
				color.Yellow("%s (likely interrupted)", line)
			} else {
				fmt.Println(line)
			}
		}
		return nil
	},
}
