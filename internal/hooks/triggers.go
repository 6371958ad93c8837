package hooks

// Trigger names a pipeline point at which the registry is asked for an
// applicable hook set. External code selects the trigger; the scheduler
// does the rest.
type Trigger string

const (
	// TriggerBeforeTaskCreate fires before a task is created.
	TriggerBeforeTaskCreate Trigger = "before_task_create"
	// TriggerAfterTaskCreate fires after a task is created.
	TriggerAfterTaskCreate Trigger = "after_task_create"
	// TriggerPhaseInit fires when a phase is initialized.
	TriggerPhaseInit Trigger = "phase_init"
	// TriggerPhaseTransition fires when moving between phases.
	TriggerPhaseTransition Trigger = "phase_transition"
	// TriggerContextRecovery fires when resuming from a checkpoint.
	TriggerContextRecovery Trigger = "context_recovery"
	// TriggerPostExecution fires after a pipeline run completes.
	TriggerPostExecution Trigger = "post_execution"
	// TriggerSystemHealthCheck fires on periodic health probes.
	TriggerSystemHealthCheck Trigger = "system_health_check"
)

// Valid returns true if the trigger is a known value.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerBeforeTaskCreate, TriggerAfterTaskCreate, TriggerPhaseInit,
		TriggerPhaseTransition, TriggerContextRecovery, TriggerPostExecution,
		TriggerSystemHealthCheck:
		return true
	default:
		return false
	}
}

// Triggers returns the full trigger catalogue.
func Triggers() []Trigger {
	return []Trigger{
		TriggerBeforeTaskCreate,
		TriggerAfterTaskCreate,
		TriggerPhaseInit,
		TriggerPhaseTransition,
		TriggerContextRecovery,
		TriggerPostExecution,
		TriggerSystemHealthCheck,
	}
}
