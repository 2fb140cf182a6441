package field

import (
	"fmt"
	"math"
	"strconv"
)

func coerceBool(spec Spec, value any) (bool, error) {
	switch typed := value.(type) {
	case nil:
		return asBoolDefault(spec), nil
	case bool:
		return typed, nil
	default:
		return false, typeMismatch(spec, fmt.Sprintf("cannot coerce %T to bool", value), nil)
	}
}

func asBoolDefault(spec Spec) bool {
	if typed, ok := spec.Default.(bool); ok {
		return typed
	}
	return false
}

func coerceInt64(spec Spec, value any) (int64, error) {
	switch typed := value.(type) {
	case nil:
		if typed, ok := spec.Default.(int); ok {
			return int64(typed), nil
		}
		return 0, nil
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint64:
		if typed > math.MaxInt64 {
			return 0, typeMismatch(spec, "integer out of range", nil)
		}
		return int64(typed), nil
	case float64:
		if typed != math.Trunc(typed) {
			return 0, typeMismatch(spec, fmt.Sprintf("non-integral value %v", typed), nil)
		}
		return int64(typed), nil
	case string:
		parsed, err := strconv.ParseInt(typed, 10, 64)
		if err != nil {
			return 0, typeMismatch(spec, fmt.Sprintf("cannot parse %q as integer", typed), err)
		}
		return parsed, nil
	default:
		return 0, typeMismatch(spec, fmt.Sprintf("cannot coerce %T to integer", value), nil)
	}
}

func coerceFloat64(spec Spec, value any) (float64, error) {
	switch typed := value.(type) {
	case nil:
		if typed, ok := spec.Default.(float64); ok {
			return typed, nil
		}
		return 0, nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case float32:
		return float64(typed), nil
	case float64:
		return typed, nil
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, typeMismatch(spec, fmt.Sprintf("cannot parse %q as float", typed), err)
		}
		return parsed, nil
	default:
		return 0, typeMismatch(spec, fmt.Sprintf("cannot coerce %T to float", value), nil)
	}
}

func coerceString(spec Spec, value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		if typed, ok := spec.Default.(string); ok {
			return typed, nil
		}
		return "", nil
	case string:
		return typed, nil
	case bool:
		return strconv.FormatBool(typed), nil
	case int64:
		return strconv.FormatInt(typed, 10), nil
	case int:
		return strconv.Itoa(typed), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	default:
		return "", typeMismatch(spec, fmt.Sprintf("cannot coerce %T to string", value), nil)
	}
}

func coerceStringSlice(spec Spec, value any) ([]string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return typed, nil
	case []any:
		out := make([]string, len(typed))
		for idx, item := range typed {
			itemValue, err := coerceString(spec, item)
			if err != nil {
				return nil, err
			}
			out[idx] = itemValue
		}
		return out, nil
	default:
		return nil, typeMismatch(spec, fmt.Sprintf("cannot coerce %T to string list", value), nil)
	}
}

func coerceFieldMap(spec Spec, value any) (map[string]any, error) {
	switch typed := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return typed, nil
	default:
		return nil, typeMismatch(spec, fmt.Sprintf("cannot coerce %T to field map", value), nil)
	}
}
