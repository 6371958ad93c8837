package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/checkpoint"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/config"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/executor"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/internal/store"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// pipeHook is a counting hook for coordinator tests.
type pipeHook struct {
	id      string
	deps    []string
	execErr error

	mu    sync.Mutex
	count int
}

func (h *pipeHook) ID() string             { return h.id }
func (h *pipeHook) Description() string    { return "pipe hook " + h.id }
func (h *pipeHook) Dependencies() []string { return h.deps }
func (h *pipeHook) SupportsRollback() bool { return false }

func (h *pipeHook) Execute(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	h.mu.Lock()
	h.count++
	h.mu.Unlock()
	if h.execErr != nil {
		return nil, h.execErr
	}
	return &models.HookResult{HookID: h.id, Success: true}, nil
}

func (h *pipeHook) Rollback(ctx context.Context, ec *models.ExecutionContext) (*models.HookResult, error) {
	return &models.HookResult{HookID: h.id, Success: true}, nil
}

func (h *pipeHook) executions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func diamondRegistry(t *testing.T) (*hooks.Registry, map[string]*pipeHook) {
	t.Helper()
	set := map[string]*pipeHook{
		"prep":  {id: "prep"},
		"left":  {id: "left", deps: []string{"prep"}},
		"right": {id: "right", deps: []string{"prep"}},
		"final": {id: "final", deps: []string{"left", "right"}},
	}
	r := hooks.NewRegistry()
	for _, h := range set {
		if err := r.Register(h, []hooks.Trigger{hooks.TriggerPhaseInit}, nil, 0); err != nil {
			t.Fatal(err)
		}
	}
	return r, set
}

func testCoordinator(t *testing.T) (*Coordinator, map[string]*pipeHook, *checkpoint.Manager) {
	t.Helper()
	registry, set := diamondRegistry(t)
	mgr := checkpoint.NewManager(store.NewMemory())
	return NewCoordinator(registry, mgr, config.Default()), set, mgr
}

func phaseInitDef(name string) *Definition {
	return &Definition{Name: name, Trigger: "phase_init"}
}

func TestRunExecutesStagedPlan(t *testing.T) {
	coord, set, mgr := testCoordinator(t)

	report, err := coord.Run(context.Background(), phaseInitDef("diamond"), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Plan.Stages) != 3 {
		t.Fatalf("plan has %d stages, want 3", len(report.Plan.Stages))
	}
	if report.Plan.StageOf("prep") != 0 || report.Plan.StageOf("final") != 2 {
		t.Errorf("staging = %+v, want prep first and final last", report.Plan.Stages)
	}
	for id, h := range set {
		if h.executions() != 1 {
			t.Errorf("hook %s executed %d times, want 1", id, h.executions())
		}
	}
	if len(report.Results) != 4 {
		t.Errorf("len(Results) = %d, want 4", len(report.Results))
	}
	if report.Context.MetadataString("pipeline.name") != "diamond" {
		t.Errorf("pipeline.name metadata = %v", report.Context.Metadata["pipeline.name"])
	}

	// A terminal checkpoint marks the run completed.
	list, err := mgr.List(report.ExecutionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "completed" {
		t.Errorf("checkpoints = %+v, want one named completed", list)
	}
	if got := len(list[0].CompletedHooks); got != 4 {
		t.Errorf("completed hooks in terminal checkpoint = %d, want 4", got)
	}
}

func TestRunSurfacesExecutionError(t *testing.T) {
	coord, set, _ := testCoordinator(t)
	set["final"].execErr = fmt.Errorf("deploy rejected")

	report, err := coord.Run(context.Background(), phaseInitDef("failing"), t.TempDir())
	var execErr *executor.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecutionError", err)
	}
	if !reflect.DeepEqual(execErr.FailedHookIDs, []string{"final"}) {
		t.Errorf("FailedHookIDs = %v, want [final]", execErr.FailedHookIDs)
	}
	// The partial report is still returned for the audit trail.
	if report == nil || len(report.Results) != 4 {
		t.Errorf("report = %+v, want all four results including the failure", report)
	}
}

func TestRunValidatesDefinition(t *testing.T) {
	coord, _, _ := testCoordinator(t)

	if _, err := coord.Run(context.Background(), &Definition{Name: "x", Trigger: "bogus"}, t.TempDir()); err == nil {
		t.Error("Run() with invalid trigger should fail")
	}
	if _, err := coord.Run(context.Background(), phaseInitDef("no-ws"), ""); err == nil {
		t.Error("Run() without a workspace should fail")
	}
}

func TestRunNoHooksForTrigger(t *testing.T) {
	coord, _, _ := testCoordinator(t)
	def := &Definition{Name: "empty", Trigger: "context_recovery"}
	if _, err := coord.Run(context.Background(), def, t.TempDir()); err == nil {
		t.Error("Run() with no registered hooks for the trigger should fail")
	}
}

func TestResumeSkipsCompletedHooks(t *testing.T) {
	coord, set, mgr := testCoordinator(t)

	// Simulate an interrupted run that had committed stage 0 and was
	// checkpointed at the stage 1 boundary.
	ec := models.NewExecutionContext("exec-resume", t.TempDir())
	if _, err := mgr.Checkpoint(ec, "auto-stage-1", 1, 3, []string{"prep"}); err != nil {
		t.Fatal(err)
	}

	report, guidance, err := coord.Resume(context.Background(), phaseInitDef("diamond"), "exec-resume", "")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	if guidance.ResumeStageIndex != 1 {
		t.Errorf("ResumeStageIndex = %d, want 1", guidance.ResumeStageIndex)
	}
	if set["prep"].executions() != 0 {
		t.Error("prep was re-executed on resume")
	}
	for _, id := range []string{"left", "right", "final"} {
		if set[id].executions() != 1 {
			t.Errorf("hook %s executed %d times on resume, want 1", id, set[id].executions())
		}
	}
	if report.ExecutionID != "exec-resume" {
		t.Errorf("ExecutionID = %s, want exec-resume", report.ExecutionID)
	}
}

func TestResumeMidStageSkipsCommittedHooks(t *testing.T) {
	coord, set, mgr := testCoordinator(t)

	// A checkpoint requested mid-stage records stage 1 with left already
	// committed; resuming must run only right and final.
	ec := models.NewExecutionContext("exec-midstage", t.TempDir())
	if _, err := mgr.Checkpoint(ec, "mid-stage", 1, 3, []string{"prep", "left"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := coord.Resume(context.Background(), phaseInitDef("diamond"), "exec-midstage", ""); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	for _, id := range []string{"prep", "left"} {
		if set[id].executions() != 0 {
			t.Errorf("committed hook %s executed %d times on resume, want 0", id, set[id].executions())
		}
	}
	for _, id := range []string{"right", "final"} {
		if set[id].executions() != 1 {
			t.Errorf("hook %s executed %d times on resume, want 1", id, set[id].executions())
		}
	}
}

func TestResumeCompletedRunDoesNothing(t *testing.T) {
	coord, set, _ := testCoordinator(t)

	report, err := coord.Run(context.Background(), phaseInitDef("diamond"), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	resumed, guidance, err := coord.Resume(context.Background(), phaseInitDef("diamond"), report.ExecutionID, "")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if guidance.ResumeStageIndex != 3 {
		t.Errorf("ResumeStageIndex = %d, want 3 (past the last stage)", guidance.ResumeStageIndex)
	}
	if len(resumed.Results) != 0 {
		t.Errorf("resumed results = %v, want none for a completed run", resumed.Results)
	}
	for id, h := range set {
		if h.executions() != 1 {
			t.Errorf("hook %s executed %d times, want 1 (no re-execution)", id, h.executions())
		}
	}
}

func TestResumeUnknownExecution(t *testing.T) {
	coord, _, _ := testCoordinator(t)
	if _, _, err := coord.Resume(context.Background(), phaseInitDef("diamond"), "nobody", ""); err == nil {
		t.Error("Resume() of unknown execution should fail")
	}
}
