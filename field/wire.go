package field

// Canonical local representations per kind: bool, int64, float64, string,
// []string, map[string]any. DecodeWire and EncodeWire convert between the
// remote wire representation and the canonical one; the two are inverse for
// every value the kind permits.

// DecodeWire converts a remote API value into the canonical local
// representation for the field.
func DecodeWire(spec Spec, value any) (any, error) {
	if value == nil {
		if spec.AllowsNull {
			return nil, nil
		}
		return spec.Default, nil
	}
	switch spec.Kind {
	case KindBool:
		return coerceBool(spec, value)
	case KindInt:
		return coerceInt64(spec, value)
	case KindFloat:
		return coerceFloat64(spec, value)
	case KindString:
		return coerceString(spec, value)
	case KindStringList:
		values, err := coerceStringSlice(spec, value)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []string{}
		}
		return values, nil
	case KindFieldMap:
		return coerceFieldMap(spec, value)
	default:
		return nil, typeMismatch(spec, "unsupported field kind", nil)
	}
}

// EncodeWire converts a canonical local value into the representation the
// remote API expects.
func EncodeWire(spec Spec, value any) (any, error) {
	if value == nil {
		if spec.AllowsNull {
			return nil, nil
		}
		value = spec.Default
		if value == nil {
			return nil, nil
		}
	}
	switch spec.Kind {
	case KindBool:
		return coerceBool(spec, value)
	case KindInt:
		return coerceInt64(spec, value)
	case KindFloat:
		return coerceFloat64(spec, value)
	case KindString:
		return coerceString(spec, value)
	case KindStringList:
		values, err := coerceStringSlice(spec, value)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for idx, item := range values {
			out[idx] = item
		}
		return out, nil
	case KindFieldMap:
		return coerceFieldMap(spec, value)
	default:
		return nil, typeMismatch(spec, "unsupported field kind", nil)
	}
}
