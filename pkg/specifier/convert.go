package specifier

import (
	"fmt"

	"github.com/structcast/structcast/pkg/runtime"
)

// Spec is the intermediate form of one converted spec leaf: either a
// constant value or a source path into the accessed data.
type Spec struct {
	constant any
	source   Path
	isSource bool
}

// Constant builds a constant spec leaf.
func Constant(v any) *Spec {
	return &Spec{constant: v}
}

// Source builds a path spec leaf.
func Source(p Path) *Spec {
	return &Spec{source: p, isSource: true}
}

// IsSource reports whether the spec extracts from the accessed data.
func (s *Spec) IsSource() bool { return s.isSource }

// ConvertString converts one raw spec string: the empty string means the
// whole source, a registered `name:` prefix delegates to that resolver,
// and a dotted path extracts by path. Anything else is a format error.
func ConvertString(raw string) (*Spec, error) {
	if raw == "" {
		return Source(Path{}), nil
	}
	if fn, arg, ok := lookupResolver(raw); ok {
		v, err := fn(arg)
		if err != nil {
			return nil, fmt.Errorf("resolver failed for %q: %w", raw, err)
		}
		return Constant(v), nil
	}
	if IsPathString(raw) {
		path, err := ParsePath(raw)
		if err != nil {
			return nil, err
		}
		return Source(path), nil
	}
	return nil, &FormatError{Raw: raw}
}

// Convert converts a structured spec input: strings go through
// ConvertString, other scalars become constants, maps and sequences are
// converted element-wise. Unsupported types are errors.
func Convert(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, []byte:
		return Constant(v), nil
	case string:
		return ConvertString(v)
	case *Spec:
		return v, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			converted, err := Convert(val)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			converted, err := Convert(val)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return nil, &ConvertError{Type: runtime.TypeName(raw)}
	}
}
