package reconciler

import (
	"context"
	"fmt"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/resource"
)

// Verify re-fetches the remote state after an apply and re-plans against the
// same desired tree. A non-empty residual changeset means the remote
// instance rejected or silently altered a change; this surfaces as a
// ConvergenceFailure and is never auto-retried, so a misbehaving remote
// cannot put the engine in a loop.
func (e *Engine) Verify(ctx context.Context, desired *resource.Tree) error {
	actual, err := e.FetchActual(ctx)
	if err != nil {
		return err
	}
	residual, err := e.Plan(desired, actual)
	if err != nil {
		return err
	}
	if residual.Empty() {
		e.log.Info().Msg("verification confirmed convergence")
		return nil
	}
	creates, updates, deletes := residual.Counts()
	return faults.NewTypedError(
		faults.ConvergenceFailure,
		fmt.Sprintf("remote state did not converge: %d creates, %d updates, %d deletes still planned", creates, updates, deletes),
		nil,
	)
}
