package reconciler

import (
	"context"

	"github.com/declarr/declarr/schema"
)

// OperationResult records the outcome of one applied operation.
type OperationResult struct {
	Section string
	Op      string // "create", "update" or "delete"
	Name    string
	Err     error
}

// ApplyResult aggregates per-operation outcomes of one apply run. The run
// succeeds only when every operation succeeded; failed operations are safe
// to retry on the next run because reconciliation is idempotent.
type ApplyResult struct {
	RunID   string
	Results []OperationResult
	// Skipped counts operations not issued because the context was
	// cancelled mid-changeset.
	Skipped int
}

func (r *ApplyResult) Succeeded() bool {
	if r == nil {
		return false
	}
	if r.Skipped > 0 {
		return false
	}
	for _, result := range r.Results {
		if result.Err != nil {
			return false
		}
	}
	return true
}

func (r *ApplyResult) Failed() []OperationResult {
	var failed []OperationResult
	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Apply drives the changeset against the remote client. Creates and updates
// run section by section in registry order; deletes run afterwards with the
// sections reversed, so a tag or indexer is never deleted before the
// resources referencing it have been converged. Operations are independent:
// a failure is recorded and the remaining operations still run. Cancellation
// takes effect between operations; remaining ones are counted as skipped.
func (e *Engine) Apply(ctx context.Context, changeset *Changeset) (*ApplyResult, error) {
	result := &ApplyResult{RunID: e.runID}
	if changeset == nil {
		return result, nil
	}

	for _, changes := range changeset.Sections {
		section, ok := schema.Lookup(changes.Section)
		if !ok {
			continue
		}
		for _, op := range changes.Creates {
			if e.cancelled(ctx, changeset, result) {
				return result, nil
			}
			e.applyCreate(ctx, section, op, result)
		}
		for _, op := range changes.Updates {
			if e.cancelled(ctx, changeset, result) {
				return result, nil
			}
			e.applyUpdate(ctx, section, op, result)
		}
	}

	for idx := len(changeset.Sections) - 1; idx >= 0; idx-- {
		changes := changeset.Sections[idx]
		section, ok := schema.Lookup(changes.Section)
		if !ok {
			continue
		}
		for _, op := range changes.Deletes {
			if e.cancelled(ctx, changeset, result) {
				return result, nil
			}
			e.applyDelete(ctx, section, op, result)
		}
	}

	creates, updates, deletes := changeset.Counts()
	e.log.Info().
		Int("creates", creates).
		Int("updates", updates).
		Int("deletes", deletes).
		Int("failed", len(result.Failed())).
		Bool("succeeded", result.Succeeded()).
		Msg("apply finished")
	return result, nil
}

func (e *Engine) applyCreate(ctx context.Context, section schema.Section, op CreateOp, result *ApplyResult) {
	_, err := e.client.Create(ctx, section, op.Resource)
	result.Results = append(result.Results, OperationResult{
		Section: section.Name,
		Op:      "create",
		Name:    op.Resource.Name,
		Err:     err,
	})
	e.logOperation(section.Name, "create", op.Resource.Name, err)
}

func (e *Engine) applyUpdate(ctx context.Context, section schema.Section, op UpdateOp, result *ApplyResult) {
	err := e.client.Update(ctx, section, op.Identity, op.Desired, op.Deltas)
	result.Results = append(result.Results, OperationResult{
		Section: section.Name,
		Op:      "update",
		Name:    op.Identity.Name,
		Err:     err,
	})
	e.logOperation(section.Name, "update", op.Identity.Name, err)
}

func (e *Engine) applyDelete(ctx context.Context, section schema.Section, op DeleteOp, result *ApplyResult) {
	err := e.client.Delete(ctx, section, op.Identity)
	result.Results = append(result.Results, OperationResult{
		Section: section.Name,
		Op:      "delete",
		Name:    op.Identity.Name,
		Err:     err,
	})
	e.logOperation(section.Name, "delete", op.Identity.Name, err)
}

func (e *Engine) logOperation(section, op, name string, err error) {
	event := e.log.Info()
	if err != nil {
		event = e.log.Error().Err(err)
	}
	event.Str("section", section).Str("op", op).Str("name", name).Msg("operation applied")
}

func (e *Engine) cancelled(ctx context.Context, changeset *Changeset, result *ApplyResult) bool {
	if ctx.Err() == nil {
		return false
	}
	creates, updates, deletes := changeset.Counts()
	result.Skipped = creates + updates + deletes - len(result.Results)
	e.log.Warn().Int("skipped", result.Skipped).Msg("apply cancelled mid-changeset")
	return true
}
