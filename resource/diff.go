package resource

import (
	"fmt"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/field"
)

// Diff compares a local-desired resource against a remote-actual resource of
// the same shape and returns the field-level deltas required to converge the
// remote. Per-field coercion failures are collected as FieldErrors and
// exclude only that field; a shape mismatch fails the whole diff with a
// SchemaMismatch fault.
func Diff(specs Specs, local, remote Resource, opts field.CompareOptions) ([]FieldDelta, []FieldError, error) {
	if local.Section != remote.Section {
		return nil, nil, faults.NewTypedError(
			faults.SchemaMismatch,
			fmt.Sprintf("cannot diff section %q against section %q", local.Section, remote.Section),
			nil,
		)
	}
	if err := checkShape(specs, local); err != nil {
		return nil, nil, err
	}
	if err := checkShape(specs, remote); err != nil {
		return nil, nil, err
	}

	var (
		deltas []FieldDelta
		fails  []FieldError
	)
	for _, spec := range specs {
		localValue := local.Value(spec.Name)
		remoteValue := remote.Value(spec.Name)

		changed, err := field.Compare(spec, localValue, remoteValue, opts)
		if err != nil {
			fails = append(fails, FieldError{Field: spec.Name, Err: err})
			continue
		}
		if changed {
			deltas = append(deltas, FieldDelta{
				Field: spec.Name,
				Old:   remoteValue,
				New:   localValue,
			})
		}
	}
	return deltas, fails, nil
}

func checkShape(specs Specs, res Resource) error {
	known := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		known[spec.Name] = struct{}{}
	}
	for name := range res.Values {
		if _, ok := known[name]; !ok {
			return faults.NewTypedError(
				faults.SchemaMismatch,
				fmt.Sprintf("section %q has no field %q", res.Section, name),
				nil,
			)
		}
	}
	return nil
}
