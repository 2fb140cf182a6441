package reconciler

import (
	"fmt"
	"sort"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/field"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// CollectionOptions configure one collection reconciliation.
type CollectionOptions struct {
	// DeleteUnmanaged enables Delete operations for remote entries absent
	// from the local collection. Off by default: unmanaged remote state is
	// never destroyed unless explicitly opted in.
	DeleteUnmanaged bool
	// Order lists local entry names in desired-document order; names not
	// listed fall back to lexical order after the listed ones.
	Order   []string
	KeyRule KeyRule
	Compare field.CompareOptions
}

// ReconcileCollection matches local-desired entries to remote-actual entries
// by name and classifies each as create, update, delete or unchanged.
func ReconcileCollection(
	section schema.Section,
	local resource.Collection,
	remote resource.Collection,
	opts CollectionOptions,
) (SectionChanges, []PlanIssue, error) {
	changes := SectionChanges{Section: section.Name}
	var issues []PlanIssue

	remoteByKey := make(map[string]resource.Resource, len(remote))
	for name, res := range remote {
		remoteByKey[opts.KeyRule.Canonical(name)] = res
	}

	localKeys := make(map[string]string, len(local))
	for name := range local {
		key := opts.KeyRule.Canonical(name)
		if previous, dup := localKeys[key]; dup {
			return SectionChanges{}, nil, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("section %q: entries %q and %q collide under the key-matching rule", section.Name, previous, name),
				nil,
			)
		}
		localKeys[key] = name
	}

	for _, name := range localNameOrder(local, opts.Order) {
		localRes := local[name]
		remoteRes, found := remoteByKey[opts.KeyRule.Canonical(name)]
		if !found {
			changes.Creates = append(changes.Creates, CreateOp{Resource: localRes})
			continue
		}

		deltas, fails, err := resource.Diff(section.Fields, localRes, remoteRes, opts.Compare)
		if err != nil {
			// Incomparable shapes exclude this entry only; the rest of the
			// collection still reconciles.
			issues = append(issues, PlanIssue{Section: section.Name, Resource: name, Err: err})
			continue
		}
		for _, fail := range fails {
			issues = append(issues, PlanIssue{Section: section.Name, Resource: name, Field: fail.Field, Err: fail.Err})
		}
		if len(deltas) == 0 {
			continue
		}
		if !section.Updatable {
			issues = append(issues, PlanIssue{
				Section:  section.Name,
				Resource: name,
				Err: faults.NewTypedError(
					faults.ValidationError,
					fmt.Sprintf("section %q entries cannot be updated in place", section.Name),
					nil,
				),
			})
			continue
		}
		changes.Updates = append(changes.Updates, UpdateOp{
			Identity: remoteRes.Identity(),
			Desired:  localRes,
			Deltas:   deltas,
		})
	}

	if opts.DeleteUnmanaged {
		for _, name := range remote.SortedNames() {
			if _, managed := localKeys[opts.KeyRule.Canonical(name)]; managed {
				continue
			}
			changes.Deletes = append(changes.Deletes, DeleteOp{Identity: remote[name].Identity()})
		}
	}

	return changes, issues, nil
}

// localNameOrder returns local names in desired-document order, appending
// any unlisted names in lexical order so output stays deterministic.
func localNameOrder(local resource.Collection, order []string) []string {
	out := make([]string, 0, len(local))
	seen := make(map[string]struct{}, len(local))
	for _, name := range order {
		if _, ok := local[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	rest := make([]string, 0, len(local))
	for name := range local {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
