package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/executor"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/pipeline"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/tui"
)

var (
	runWorkspace string
	runWatch     bool
)

var runCmd = &cobra.Command{
	Use:   "run -f pipeline.yaml",
	Short: "Run a pipeline definition",
	Long: `Assemble the hook set for the pipeline's trigger, resolve the
dependency graph into a staged plan, and execute it.

On failure, previously completed rollback-capable hooks are rolled back in
reverse order and the full audit trail is printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defPath, err := cmd.Flags().GetString("file")
		if err != nil || defPath == "" {
			return fmt.Errorf("a pipeline definition is required (-f pipeline.yaml)")
		}

		def, err := pipeline.Load(defPath)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		mgr, db, err := newManager(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		registry := hooks.NewRegistry()
		if err := hooks.RegisterBuiltins(registry); err != nil {
			return err
		}

		coord := pipeline.NewCoordinator(registry, mgr, cfg)
		coord.SetWorkspaceWatch(true)

		workspace := runWorkspace
		if workspace == "" {
			workspace = def.Workspace
		}
		if workspace == "" {
			workspace, _ = os.Getwd()
		}
		coord.SetLogger(executor.NewDebugLoggerForWorkspace(workspace))

		if runWatch {
			return runWithWatch(cmd, coord, def, workspace)
		}
		return runPlain(cmd, coord, def, workspace)
	},
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Path to the pipeline definition YAML")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "Workspace directory (overrides the definition)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Show a live view of the run")
}

// runPlain executes the pipeline and prints the audit trail.
func runPlain(cmd *cobra.Command, coord *pipeline.Coordinator, def *pipeline.Definition, workspace string) error {
	report, runErr := coord.Run(cmd.Context(), def, workspace)
	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		printFailure(runErr)
		return fmt.Errorf("pipeline %s failed", def.Name)
	}
	color.Green("pipeline %s completed (%d hooks)", def.Name, len(report.Results))
	return nil
}

// runWithWatch executes the pipeline with the live TUI attached.
func runWithWatch(cmd *cobra.Command, coord *pipeline.Coordinator, def *pipeline.Definition, workspace string) error {
	emitter := executor.NewEventEmitter(100)
	coord.SetEventEmitter(emitter)

	type outcome struct {
		report *pipeline.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := coord.Run(cmd.Context(), def, workspace)
		done <- outcome{report, err}
		emitter.Close()
	}()

	model := tui.NewWatchModel(emitter.Events())
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("watch view: %w", err)
	}

	out := <-done
	if out.report != nil {
		printReport(out.report)
	}
	if out.err != nil {
		printFailure(out.err)
		return fmt.Errorf("pipeline %s failed", def.Name)
	}
	return nil
}

// printReport writes the ordered result sequence to stdout.
func printReport(report *pipeline.Report) {
	fmt.Printf("execution %s: %d stages\n", report.ExecutionID, len(report.Plan.Stages))
	for _, r := range report.Results {
		mark := color.GreenString("✓")
		detail := r.Message
		if !r.Success {
			mark = color.RedString("✗")
			detail = fmt.Sprintf("[%s] %s", r.ErrorKind, r.Error)
		}
		fmt.Printf("  %s %-24s %8s  %s\n", mark, r.HookID, r.Duration.Round(time.Millisecond), detail)
	}
}

// printFailure writes the structured failure details, including rollback
// outcome, to stderr.
func printFailure(err error) {
	var execErr *executor.ExecutionError
	if !errors.As(err, &execErr) {
		color.Red("error: %v", err)
		return
	}

	color.Red("failed at stage %d: %v", execErr.StageIndex, execErr.FailedHookIDs)
	if len(execErr.RolledBack) > 0 {
		color.Yellow("rolled back: %v", execErr.RolledBack)
	}
	for hookID, msg := range execErr.RollbackErrors {
		color.Yellow("rollback of %s failed: %s", hookID, msg)
	}
}
