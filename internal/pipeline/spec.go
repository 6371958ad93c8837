package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Definition describes one pipeline: the trigger whose hook set should run,
// the profile used to rank hooks, and per-pipeline tuning overrides.
// Definitions are written as YAML files and loaded with Load.
type Definition struct {
	// Name identifies the pipeline in logs and status output.
	Name string `yaml:"name"`
	// Trigger selects the hook set from the registry.
	Trigger string `yaml:"trigger"`
	// Complexity is one of "simple", "moderate", "complex".
	Complexity string `yaml:"complexity,omitempty"`
	// PreferredHooks boosts specific hooks during selection.
	PreferredHooks []string `yaml:"preferred_hooks,omitempty"`
	// ExcludedHooks removes specific hooks from the run.
	ExcludedHooks []string `yaml:"excluded_hooks,omitempty"`
	// Workspace is the directory the pipeline operates in.
	Workspace string `yaml:"workspace,omitempty"`

	// MaxParallel overrides the configured concurrency limit when > 0.
	MaxParallel int `yaml:"max_parallel,omitempty"`
	// OverwhelmThreshold overrides the stage-split threshold when > 0.
	OverwhelmThreshold int `yaml:"overwhelm_threshold,omitempty"`
	// HookTimeout overrides the per-hook deadline when > 0.
	HookTimeout Duration `yaml:"hook_timeout,omitempty"`
	// CheckpointInterval overrides the checkpoint cadence when > 0.
	CheckpointInterval Duration `yaml:"checkpoint_interval,omitempty"`
}

// TriggerValue returns the definition's trigger as a typed value.
func (d *Definition) TriggerValue() hooks.Trigger {
	return hooks.Trigger(d.Trigger)
}

// Profile returns the registry selection profile for this definition.
func (d *Definition) Profile() hooks.Profile {
	return hooks.Profile{
		Complexity:     d.Complexity,
		PreferredHooks: d.PreferredHooks,
		ExcludedHooks:  d.ExcludedHooks,
	}
}

// Validate checks the definition for configuration errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("pipeline definition missing name")
	}
	if !d.TriggerValue().Valid() {
		return fmt.Errorf("pipeline %s: unknown trigger %q", d.Name, d.Trigger)
	}
	switch d.Complexity {
	case "", "simple", "moderate", "complex":
	default:
		return fmt.Errorf("pipeline %s: unknown complexity %q", d.Name, d.Complexity)
	}
	return nil
}

// Load reads and validates a pipeline definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse pipeline definition %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
