package executor

import (
	"fmt"
	"strings"

	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// ExecutionError is the structured failure surfaced when a run aborts.
// It carries the full audit trail: every result produced before the abort,
// the failing stage, and the rollback outcome. Nothing is silently swallowed.
type ExecutionError struct {
	// ExecutionID identifies the run that failed.
	ExecutionID string
	// StageIndex is the plan stage where the failure occurred.
	StageIndex int
	// FailedHookIDs lists the hooks that failed in that stage.
	FailedHookIDs []string
	// Results is the partial result sequence, in execution order, including
	// the failed results.
	Results []*models.HookResult
	// RolledBack lists the hooks successfully rolled back, in the order
	// rollback was invoked (reverse completion order).
	RolledBack []string
	// RollbackErrors maps hook ID to the rollback failure message, for
	// rollbacks that themselves failed. Rollback is best-effort; these are
	// recorded, never escalated.
	RollbackErrors map[string]string
}

// Error implements error.
func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "execution failed at stage %d: hooks %s failed",
		e.StageIndex, strings.Join(e.FailedHookIDs, ", "))
	if len(e.RolledBack) > 0 {
		fmt.Fprintf(&b, " (rolled back: %s)", strings.Join(e.RolledBack, ", "))
	}
	if len(e.RollbackErrors) > 0 {
		fmt.Fprintf(&b, " (%d rollback errors)", len(e.RollbackErrors))
	}
	return b.String()
}

// FirstFailure returns the first failed result in the sequence, or nil.
func (e *ExecutionError) FirstFailure() *models.HookResult {
	for _, r := range e.Results {
		if !r.Success {
			return r
		}
	}
	return nil
}
