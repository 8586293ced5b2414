package registry

import (
	"fmt"
	"sort"

	"github.com/structcast/structcast/pkg/runtime"
)

// asInt converts any integer-typed value to int64.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// asNumber converts any numeric value to float64, reporting whether the
// source was floating point.
func asNumber(v any) (f float64, isFloat, ok bool) {
	if i, intOK := asInt(v); intOK {
		return float64(i), false, true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true, true
	case float64:
		return n, true, true
	default:
		return 0, false, false
	}
}

// truthy mirrors the configuration dialect's truth rules: nil is false,
// numbers are true when non-zero, strings/sequences/mappings when
// non-empty, everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []byte:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case map[any]any:
		return len(t) > 0
	default:
		if f, _, ok := asNumber(v); ok {
			return f != 0
		}
		return true
	}
}

// asSequence views a value as a sequence of elements: sequences as-is,
// strings as single-rune strings, mappings as their sorted keys.
func asSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case string:
		out := make([]any, 0, len(t))
		for _, r := range t {
			out = append(out, string(r))
		}
		return out, true
	case []byte:
		out := make([]any, len(t))
		for i, b := range t {
			out[i] = int64(b)
		}
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, true
	default:
		return nil, false
	}
}

// compareValues orders two values of compatible scalar kinds.
func compareValues(a, b any) (int, error) {
	if af, _, aok := asNumber(a); aok {
		bf, _, bok := asNumber(b)
		if !bok {
			return 0, fmt.Errorf("cannot compare %s with %s", runtime.TypeName(a), runtime.TypeName(b))
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", runtime.TypeName(a), runtime.TypeName(b))
}
