package executor

import (
	"context"

	"github.com/EchoingVesper/vespera-atelier-sub000/internal/hooks"
	"github.com/EchoingVesper/vespera-atelier-sub000/pkg/models"
)

// rollback reverts completed hooks in strict reverse completion order.
// Only rollback-capable hooks are invoked. Rollback is best-effort: a
// rollback failure is recorded and does not halt the rollback of the
// remaining hooks. Returns the hook IDs rolled back (in invocation order)
// and a map of rollback failures.
func (e *Executor) rollback(ctx context.Context, completed []hooks.Hook, ec *models.ExecutionContext) ([]string, map[string]string) {
	var rolledBack []string
	errs := make(map[string]string)

	if len(completed) == 0 {
		return rolledBack, errs
	}

	e.emit(Event{Type: EventRollbackStarted, ExecutionID: ec.ExecutionID})
	debugLog("[executor] rolling back %d hooks in reverse order", len(completed))

	// Rollback runs even if the run context was canceled; use a detached
	// context so cleanup is not cut short by the original failure.
	rctx := context.WithoutCancel(ctx)

	for i := len(completed) - 1; i >= 0; i-- {
		h := completed[i]
		if !h.SupportsRollback() {
			debugLog("[executor] hook %s does not support rollback, skipping", h.ID())
			continue
		}

		res, err := h.Rollback(rctx, ec)
		if err != nil {
			debugLog("[executor] rollback of %s FAILED: %v", h.ID(), err)
			errs[h.ID()] = err.Error()
			e.emit(Event{Type: EventRollbackFailed, ExecutionID: ec.ExecutionID, HookID: h.ID(), Error: err})
			continue
		}
		if res != nil && !res.Success {
			debugLog("[executor] rollback of %s reported failure: %s", h.ID(), res.Error)
			errs[h.ID()] = res.Error
			e.emit(Event{Type: EventRollbackFailed, ExecutionID: ec.ExecutionID, HookID: h.ID()})
			continue
		}

		rolledBack = append(rolledBack, h.ID())
		e.emit(Event{Type: EventHookRolledBack, ExecutionID: ec.ExecutionID, HookID: h.ID()})
	}

	debugLog("[executor] rollback done: %d rolled back, %d errors", len(rolledBack), len(errs))
	return rolledBack, errs
}
