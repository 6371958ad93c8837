package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/pipeline"
)

var (
	recoverCheckpoint string
	recoverPipeline   string
)

var recoverCmd = &cobra.Command{
	Use:   "recover <execution-id>",
	Short: "Recover an interrupted execution from its checkpoints",
	Long: `Reconstruct the execution context from the most recent checkpoint
(or a named one with --checkpoint) and print recovery guidance.

With --pipeline, the run is resumed from the recorded stage index;
hooks that already completed are never re-executed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		executionID := args[0]

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		mgr, db, err := newManager(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		// Guidance-only mode: report, do not resume.
		if recoverPipeline == "" {
			_, guidance, err := mgr.Recover(executionID, recoverCheckpoint)
			if err != nil {
				return err
			}

			fmt.Printf("checkpoint:  %s (%s)\n", guidance.CheckpointName, guidance.CheckpointID)
			fmt.Printf("interrupted: %s ago\n", guidance.Interruption.Round(time.Minute))
			fmt.Printf("confidence:  %.0f%%\n", guidance.Confidence*100)
			fmt.Printf("resume at:   stage %d (%d hooks committed)\n",
				guidance.ResumeStageIndex, len(guidance.CompletedHooks))
			fmt.Println()
			fmt.Println(guidance.Summary)
			color.Cyan(guidance.SuggestedAction)
			return nil
		}

		def, err := pipeline.Load(recoverPipeline)
		if err != nil {
			return err
		}

		registry := hooks.NewRegistry()
		if err := hooks.RegisterBuiltins(registry); err != nil {
			return err
		}

		coord := pipeline.NewCoordinator(registry, mgr, cfg)
		report, guidance, runErr := coord.Resume(cmd.Context(), def, executionID, recoverCheckpoint)
		if guidance != nil {
			color.Cyan("resuming from stage %d (confidence %.0f%%)",
				guidance.ResumeStageIndex, guidance.Confidence*100)
		}
		if report != nil {
			printReport(report)
		}
		if runErr != nil {
			printFailure(runErr)
			return fmt.Errorf("resume of %s failed", executionID)
		}
		color.Green("execution %s resumed and completed", executionID)
		return nil
	},
}

func init() {
	recoverCmd.Flags().StringVar(&recoverCheckpoint, "checkpoint", "", "Recover from a named checkpoint instead of the latest")
	recoverCmd.Flags().StringVar(&recoverPipeline, "pipeline", "", "Pipeline definition to resume with")
}
