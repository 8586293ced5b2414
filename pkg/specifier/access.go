package specifier

import (
	"github.com/rs/zerolog"

	"github.com/structcast/structcast/pkg/runtime"
	"github.com/structcast/structcast/pkg/security"
)

// CopyMode controls what Access returns: the value itself, a shallow
// copy of its top-level container, or a deep copy of the whole tree.
type CopyMode int

const (
	Reference CopyMode = iota
	ShallowCopy
	DeepCopy
)

// Option configures access behavior.
type Option func(*options)

type options struct {
	copyMode CopyMode
	strict   bool
	logger   zerolog.Logger
}

// WithCopyMode sets the copy semantics of returned values.
func WithCopyMode(mode CopyMode) Option {
	return func(o *options) { o.copyMode = mode }
}

// WithStrict makes failed walks return an AccessError instead of nil.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithAccessLogger sets the logger used for lenient-mode diagnostics.
func WithAccessLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) *options {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Access walks the path through data: mapping keys, sequence indices and
// attribute lookups on member-bearing values. In lenient mode (the
// default) a failed walk logs a warning and yields nil; strict mode
// returns a typed AccessError.
func Access(data any, path Path, opts ...Option) (any, error) {
	o := newOptions(opts)
	v, err := walk(data, path, 0, o)
	if err != nil {
		return nil, err
	}
	return copyValue(v, o.copyMode), nil
}

func walk(data any, path Path, pos int, o *options) (any, error) {
	if pos >= len(path) {
		return data, nil
	}
	seg := path[pos]
	walked := path[:pos+1].String()

	fail := func(reason string) (any, error) {
		accessErr := &AccessError{
			Segment: seg.String(),
			Path:    walked,
			Type:    runtime.TypeName(data),
			Reason:  reason,
		}
		if o.strict {
			return nil, accessErr
		}
		o.logger.Warn().
			Str("path", walked).
			Str("type", runtime.TypeName(data)).
			Msg(reason)
		return nil, nil
	}

	switch v := data.(type) {
	case map[string]any:
		if seg.IsIndex {
			return fail("integer index used for mapping")
		}
		child, ok := v[seg.Key]
		if !ok {
			return fail("key not found in mapping")
		}
		return walk(child, path, pos+1, o)
	case map[any]any:
		key := any(seg.Key)
		if seg.IsIndex {
			key = seg.Index
		}
		child, ok := v[key]
		if !ok {
			return fail("key not found in mapping")
		}
		return walk(child, path, pos+1, o)
	case []any:
		if !seg.IsIndex {
			return fail("non-integer index used for sequence")
		}
		if seg.Index < 0 || seg.Index >= len(v) {
			return fail("index out of range in sequence")
		}
		return walk(v[seg.Index], path, pos+1, o)
	default:
		if !seg.IsIndex {
			// Attribute access goes through the security checks; a
			// refused name is simply not accessible, mirroring an
			// absent member.
			if err := security.ValidateAttribute(seg.Key); err == nil {
				if child, ok := runtime.Attr(data, seg.Key); ok {
					return walk(child, path, pos+1, o)
				}
			}
		}
		return fail("cannot index into value")
	}
}

// copyValue applies the configured copy semantics. Only plain containers
// are copied; scalars and foreign values are returned as-is.
func copyValue(v any, mode CopyMode) any {
	switch mode {
	case ShallowCopy:
		switch c := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(c))
			for k, val := range c {
				out[k] = val
			}
			return out
		case []any:
			out := make([]any, len(c))
			copy(out, c)
			return out
		}
		return v
	case DeepCopy:
		switch c := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(c))
			for k, val := range c {
				out[k] = copyValue(val, DeepCopy)
			}
			return out
		case map[any]any:
			out := make(map[any]any, len(c))
			for k, val := range c {
				out[k] = copyValue(val, DeepCopy)
			}
			return out
		case []any:
			out := make([]any, len(c))
			for i, val := range c {
				out[i] = copyValue(val, DeepCopy)
			}
			return out
		}
		return v
	default:
		return v
	}
}

// Construct resolves a converted spec tree against data: Spec leaves
// extract or yield constants, maps and sequences are constructed
// element-wise and anything else passes through.
func Construct(data any, spec any, opts ...Option) (any, error) {
	switch v := spec.(type) {
	case *Spec:
		if v.isSource {
			return Access(data, v.source, opts...)
		}
		return v.constant, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			built, err := Construct(data, val, opts...)
			if err != nil {
				return nil, err
			}
			out[key] = built
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			built, err := Construct(data, val, opts...)
			if err != nil {
				return nil, err
			}
			out[i] = built
		}
		return out, nil
	default:
		return spec, nil
	}
}
