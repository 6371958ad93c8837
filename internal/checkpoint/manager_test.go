package checkpoint

import (
	"testing"
	"time"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/store"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

func newTestManager(now time.Time) (*Manager, *store.Memory) {
	mem := store.NewMemory()
	m := NewManager(mem)
	m.now = func() time.Time { return now }
	return m, mem
}

func TestCheckpointSnapshotsContext(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, mem := newTestManager(now)

	ec := models.NewExecutionContext("exec-1", "/tmp/ws")
	ec.Metadata["phase"] = "build"
	ec.Agents["ag-1"] = models.AgentHandle{ID: "ag-1"}
	ec.Artifacts = append(ec.Artifacts, models.Artifact{Name: "report"})
	ec.LastActivity = now.Add(-5 * time.Minute)

	cp, err := m.Checkpoint(ec, "mid-build", 2, 4, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	if cp.ID == "" {
		t.Error("checkpoint has empty ID")
	}
	if cp.StageIndex != 2 || cp.TotalStages != 4 {
		t.Errorf("stage = %d/%d, want 2/4", cp.StageIndex, cp.TotalStages)
	}
	if len(cp.CompletedHooks) != 2 || cp.ArtifactCount != 1 || len(cp.Agents) != 1 {
		t.Errorf("snapshot = %+v, want 2 hooks, 1 artifact, 1 agent", cp)
	}
	if cp.Metadata["phase"] != "build" {
		t.Errorf("Metadata[phase] = %v, want build", cp.Metadata["phase"])
	}
	// A five-minute-old activity timestamp keeps full confidence.
	if cp.Hint.Confidence != 0.95 {
		t.Errorf("Hint.Confidence = %v, want 0.95", cp.Hint.Confidence)
	}

	stored, err := mem.Get("exec-1", "mid-build")
	if err != nil || stored == nil {
		t.Fatalf("stored checkpoint missing: %v", err)
	}
}

func TestCheckpointIsDetachedFromContext(t *testing.T) {
	m, _ := newTestManager(time.Now())

	ec := models.NewExecutionContext("exec-2", "/tmp/ws")
	ec.Metadata["k"] = "v1"
	cp, err := m.Checkpoint(ec, "snap", 0, 1, nil)
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	// Later context mutation must not leak into the snapshot.
	ec.Metadata["k"] = "v2"
	if cp.Metadata["k"] != "v1" {
		t.Errorf("snapshot metadata mutated: %v", cp.Metadata["k"])
	}
}

func TestCheckpointValidation(t *testing.T) {
	m, _ := newTestManager(time.Now())
	if _, err := m.Checkpoint(nil, "x", 0, 1, nil); err == nil {
		t.Error("Checkpoint(nil context) should fail")
	}
	if _, err := m.Checkpoint(models.NewExecutionContext("e", "/w"), "", 0, 1, nil); err == nil {
		t.Error("Checkpoint() with empty name should fail")
	}
}

func TestRecoverLatest(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	m, _ := newTestManager(base)

	ec := models.NewExecutionContext("exec-3", "/tmp/ws")
	ec.Metadata["phase"] = "deploy"
	ec.Agents["ag-7"] = models.AgentHandle{ID: "ag-7"}
	ec.LastActivity = base

	if _, err := m.Checkpoint(ec, "first", 1, 4, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := m.Checkpoint(ec, "second", 2, 4, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}

	// Recover three hours later: latest checkpoint, decayed confidence.
	m.now = func() time.Time { return base.Add(3 * time.Hour) }
	recovered, guidance, err := m.Recover("exec-3", "")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}

	if guidance.CheckpointName != "second" {
		t.Errorf("recovered checkpoint = %s, want second", guidance.CheckpointName)
	}
	if guidance.ResumeStageIndex != 2 {
		t.Errorf("ResumeStageIndex = %d, want 2", guidance.ResumeStageIndex)
	}
	if len(guidance.CompletedHooks) != 2 {
		t.Errorf("CompletedHooks = %v, want [a b]", guidance.CompletedHooks)
	}
	if guidance.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85 after a 3h interruption", guidance.Confidence)
	}
	if recovered.MetadataString("phase") != "deploy" {
		t.Errorf("Metadata[phase] = %v, want deploy", recovered.Metadata["phase"])
	}
	if _, ok := recovered.Agents["ag-7"]; !ok {
		t.Error("agent ag-7 missing from recovered context")
	}
	if len(recovered.Checkpoints) != 1 || recovered.Checkpoints[0].Name != "second" {
		t.Errorf("recovered checkpoint records = %+v", recovered.Checkpoints)
	}
}

func TestRecoverByName(t *testing.T) {
	base := time.Now()
	m, _ := newTestManager(base)

	ec := models.NewExecutionContext("exec-4", "/tmp/ws")
	if _, err := m.Checkpoint(ec, "early", 1, 3, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := m.Checkpoint(ec, "late", 2, 3, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}

	_, guidance, err := m.Recover("exec-4", "early")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if guidance.CheckpointName != "early" || guidance.ResumeStageIndex != 1 {
		t.Errorf("guidance = %+v, want checkpoint early at stage 1", guidance)
	}
}

func TestRecoverMissing(t *testing.T) {
	m, _ := newTestManager(time.Now())
	if _, _, err := m.Recover("nobody", ""); err == nil {
		t.Error("Recover() of unknown execution should fail")
	}
	ec := models.NewExecutionContext("exec-5", "/tmp/ws")
	if _, err := m.Checkpoint(ec, "only", 0, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Recover("exec-5", "no-such-name"); err == nil {
		t.Error("Recover() of unknown checkpoint name should fail")
	}
}
