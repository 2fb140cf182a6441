package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/declarr/declarr/field"
	"github.com/declarr/declarr/remote"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// Options configure one reconciliation engine instance.
type Options struct {
	KeyRule KeyRule
	// ForceSecrets re-sends secret fields even when the remote masks them.
	ForceSecrets bool
	Logger       zerolog.Logger
}

// Engine is the top-level orchestrator: it walks the configuration tree,
// plans a changeset and drives its application against the remote client.
// An engine exclusively owns its client session for the duration of a run;
// independent instances may be reconciled by independent engines in
// parallel.
type Engine struct {
	client remote.Client
	log    zerolog.Logger
	runID  string
	opts   Options
}

func New(client remote.Client, opts Options) *Engine {
	runID := uuid.NewString()
	return &Engine{
		client: client,
		log:    opts.Logger.With().Str("run_id", runID).Logger(),
		runID:  runID,
		opts:   opts,
	}
}

func (e *Engine) RunID() string {
	return e.runID
}

// FetchActual reads the full current remote state, one section at a time,
// into a freshly built actual tree.
func (e *Engine) FetchActual(ctx context.Context) (*resource.Tree, error) {
	tree := resource.NewTree()
	for _, section := range schema.Sections() {
		switch section.Kind {
		case schema.Flat:
			res, err := e.client.FetchFlat(ctx, section)
			if err != nil {
				return nil, err
			}
			tree.SetFlat(section.Name, res)
		case schema.Collection:
			col, err := e.client.FetchCollection(ctx, section)
			if err != nil {
				return nil, err
			}
			tree.SetCollection(section.Name, col)
		}
		e.log.Debug().Str("section", section.Name).Msg("fetched remote section")
	}
	return tree, nil
}

// Plan walks every registered section present in the desired tree and
// produces the changeset needed to converge the actual tree to it. Sections
// absent from the desired tree are unmanaged and left untouched.
func (e *Engine) Plan(desired, actual *resource.Tree) (*Changeset, error) {
	changeset := &Changeset{}
	compare := field.CompareOptions{ForceSecrets: e.opts.ForceSecrets}

	for _, section := range schema.Sections() {
		desiredState, managed := desired.Section(section.Name)
		if !managed {
			continue
		}
		actualState, fetched := actual.Section(section.Name)
		if !fetched {
			continue
		}

		switch section.Kind {
		case schema.Flat:
			changes, issues := e.planFlat(section, desiredState, actualState, compare)
			changeset.Sections = append(changeset.Sections, changes)
			changeset.Issues = append(changeset.Issues, issues...)
		case schema.Collection:
			changes, issues, err := ReconcileCollection(section, desiredState.Collection, actualState.Collection, CollectionOptions{
				DeleteUnmanaged: desiredState.DeleteUnmanaged,
				Order:           desiredState.Order,
				KeyRule:         e.opts.KeyRule,
				Compare:         compare,
			})
			if err != nil {
				return nil, err
			}
			changeset.Sections = append(changeset.Sections, changes)
			changeset.Issues = append(changeset.Issues, issues...)
		}
	}

	creates, updates, deletes := changeset.Counts()
	e.log.Info().
		Int("creates", creates).
		Int("updates", updates).
		Int("deletes", deletes).
		Int("issues", len(changeset.Issues)).
		Msg("plan computed")
	return changeset, nil
}

func (e *Engine) planFlat(
	section schema.Section,
	desiredState, actualState resource.SectionState,
	compare field.CompareOptions,
) (SectionChanges, []PlanIssue) {
	changes := SectionChanges{Section: section.Name}
	var issues []PlanIssue

	if desiredState.Flat == nil || actualState.Flat == nil {
		return changes, issues
	}
	deltas, fails, err := resource.Diff(section.Fields, *desiredState.Flat, *actualState.Flat, compare)
	if err != nil {
		issues = append(issues, PlanIssue{Section: section.Name, Err: err})
		return changes, issues
	}
	for _, fail := range fails {
		issues = append(issues, PlanIssue{Section: section.Name, Field: fail.Field, Err: fail.Err})
	}
	if len(deltas) > 0 {
		changes.Updates = append(changes.Updates, UpdateOp{
			Identity: actualState.Flat.Identity(),
			Desired:  *desiredState.Flat,
			Deltas:   deltas,
		})
	}
	return changes, issues
}
