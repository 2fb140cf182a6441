package field

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/declarr/declarr/faults"
)

// CompareOptions tune secret handling during comparison.
type CompareOptions struct {
	// ForceSecrets re-classifies secret fields as changed even when the
	// remote value is masked and cannot be compared.
	ForceSecrets bool
}

// Compare reports whether the local desired value differs from the remote
// value in a way that requires a remote update. Comparison is pure and
// type-aware per the field spec; it fails with a TypeMismatch fault when the
// two representations cannot be coerced to the same comparable type.
func Compare(spec Spec, local, remote any, opts CompareOptions) (bool, error) {
	if spec.AllowsNull && local == nil && remote == nil {
		return false, nil
	}
	if spec.Secret && spec.Kind != KindFieldMap {
		return compareSecret(spec, local, remote, opts)
	}

	switch spec.Kind {
	case KindBool:
		return compareBool(spec, local, remote)
	case KindInt:
		return compareInt(spec, local, remote)
	case KindFloat:
		return compareFloat(spec, local, remote)
	case KindString:
		return compareString(spec, local, remote)
	case KindStringList:
		return compareStringList(spec, local, remote)
	case KindFieldMap:
		return compareFieldMap(spec, local, remote, opts)
	default:
		return false, typeMismatch(spec, "unsupported field kind", nil)
	}
}

// compareSecret implements the write-once rule: the remote cannot reveal a
// stored secret, so equality against the mask is assumed unless forced.
func compareSecret(spec Spec, local, remote any, opts CompareOptions) (bool, error) {
	localValue, err := coerceString(spec, local)
	if err != nil {
		return false, err
	}
	if localValue == "" || localValue == Sentinel {
		return false, nil
	}

	remoteValue, err := coerceString(spec, remote)
	if err != nil {
		return false, err
	}
	switch {
	case remoteValue == "":
		return true, nil
	case remoteValue == Sentinel:
		return opts.ForceSecrets, nil
	default:
		return localValue != remoteValue, nil
	}
}

func compareBool(spec Spec, local, remote any) (bool, error) {
	localValue, err := coerceBool(spec, local)
	if err != nil {
		return false, err
	}
	remoteValue, err := coerceBool(spec, remote)
	if err != nil {
		return false, err
	}
	return localValue != remoteValue, nil
}

func compareInt(spec Spec, local, remote any) (bool, error) {
	if spec.AllowsNull && (local == nil || remote == nil) {
		return (local == nil) != (remote == nil), nil
	}
	localValue, err := coerceInt64(spec, local)
	if err != nil {
		return false, err
	}
	remoteValue, err := coerceInt64(spec, remote)
	if err != nil {
		return false, err
	}
	return localValue != remoteValue, nil
}

func compareFloat(spec Spec, local, remote any) (bool, error) {
	if spec.AllowsNull && (local == nil || remote == nil) {
		return (local == nil) != (remote == nil), nil
	}
	localValue, err := coerceFloat64(spec, local)
	if err != nil {
		return false, err
	}
	remoteValue, err := coerceFloat64(spec, remote)
	if err != nil {
		return false, err
	}
	return localValue != remoteValue, nil
}

func compareString(spec Spec, local, remote any) (bool, error) {
	localValue, err := coerceString(spec, local)
	if err != nil {
		return false, err
	}
	remoteValue, err := coerceString(spec, remote)
	if err != nil {
		return false, err
	}
	return localValue != remoteValue, nil
}

func compareStringList(spec Spec, local, remote any) (bool, error) {
	localValues, err := coerceStringSlice(spec, local)
	if err != nil {
		return false, err
	}
	remoteValues, err := coerceStringSlice(spec, remote)
	if err != nil {
		return false, err
	}
	if len(localValues) != len(remoteValues) {
		return true, nil
	}
	if !spec.Ordered {
		localValues = sortedCopy(localValues)
		remoteValues = sortedCopy(remoteValues)
	}
	for idx := range localValues {
		if localValues[idx] != remoteValues[idx] {
			return true, nil
		}
	}
	return false, nil
}

// compareFieldMap assumes both maps hold already-normalized values. A key
// present locally but absent remotely counts as a change; remote-only keys
// are provider defaults the document chose not to pin and are ignored.
func compareFieldMap(spec Spec, local, remote any, opts CompareOptions) (bool, error) {
	localMap, err := coerceFieldMap(spec, local)
	if err != nil {
		return false, err
	}
	remoteMap, err := coerceFieldMap(spec, remote)
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(localMap))
	for key := range localMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		localValue := localMap[key]
		remoteValue, found := remoteMap[key]
		if spec.Secret {
			entrySpec := Spec{Name: spec.Name + "." + key, Kind: KindString, Secret: true}
			changed, err := compareSecret(entrySpec, localValue, remoteValue, opts)
			if err != nil {
				return false, err
			}
			if changed {
				return true, nil
			}
			continue
		}
		if !found {
			return true, nil
		}
		if !reflect.DeepEqual(localValue, remoteValue) {
			return true, nil
		}
	}
	return false, nil
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func typeMismatch(spec Spec, message string, cause error) error {
	return faults.NewTypedError(
		faults.TypeMismatch,
		fmt.Sprintf("field %q: %s", spec.Name, message),
		cause,
	)
}
