package script

import "reflect"

// Runtime values are plain Go values as produced by decoding JSON plus the
// int64 literals the parser creates: nil, bool, int64, float64, string,
// []any and map[string]any.

// AsBool reports the value as a boolean. The second return is false when the
// value is not boolean typed, it is never coerced.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// valueEq compares two runtime values. Numbers compare by value across int
// and float representations, everything else compares structurally.
func valueEq(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}
