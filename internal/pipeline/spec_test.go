package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefinition(t *testing.T) {
	path := writeDefinition(t, `name: nightly-build
trigger: phase_init
complexity: complex
preferred_hooks: [workspace_setup]
excluded_hooks: [notify]
workspace: /tmp/nightly
max_parallel: 4
overwhelm_threshold: 6
hook_timeout: 30m
checkpoint_interval: 5m
`)

	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if def.Name != "nightly-build" {
		t.Errorf("Name = %s, want nightly-build", def.Name)
	}
	if !def.TriggerValue().Valid() {
		t.Errorf("trigger %q not valid", def.Trigger)
	}
	if def.MaxParallel != 4 || def.OverwhelmThreshold != 6 {
		t.Errorf("tuning = %d/%d, want 4/6", def.MaxParallel, def.OverwhelmThreshold)
	}
	if def.HookTimeout.Std() != 30*time.Minute {
		t.Errorf("HookTimeout = %v, want 30m", def.HookTimeout.Std())
	}
	if def.CheckpointInterval.Std() != 5*time.Minute {
		t.Errorf("CheckpointInterval = %v, want 5m", def.CheckpointInterval.Std())
	}

	profile := def.Profile()
	if profile.Complexity != "complex" || len(profile.PreferredHooks) != 1 || len(profile.ExcludedHooks) != 1 {
		t.Errorf("Profile() = %+v", profile)
	}
}

func TestLoadRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "trigger: phase_init\n"},
		{"unknown trigger", "name: x\ntrigger: before_lunch\n"},
		{"unknown complexity", "name: x\ntrigger: phase_init\ncomplexity: extreme\n"},
		{"bad duration", "name: x\ntrigger: phase_init\nhook_timeout: soonish\n"},
		{"not yaml", "{{{{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeDefinition(t, tt.content)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
