package template

import (
	"github.com/rs/zerolog"

	"github.com/structcast/structcast/pkg/runtime"
)

// PipeRunner applies a pipe configuration to a rendered value. The
// runner receives the raw `_tmpl_pipe_` fragment; building callables
// out of it is the caller's concern, so expansion itself stays free of
// the instantiation machinery.
type PipeRunner func(pipeCfg any, value any) (any, error)

// Option configures a single Extend call.
type Option func(*expander)

// WithGroups supplies the named variable groups templates render
// against. A node selecting an absent group renders with no variables.
func WithGroups(groups Groups) Option {
	return func(e *expander) { e.groups = groups }
}

// WithPipeRunner supplies the runner used for `_tmpl_pipe_` on plain
// text nodes. Without one, a node that declares a pipe is an error.
func WithPipeRunner(fn PipeRunner) Option {
	return func(e *expander) { e.pipe = fn }
}

// WithLogger attaches a logger for warnings emitted during expansion.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *expander) { e.logger = logger }
}

type expander struct {
	groups Groups
	pipe   PipeRunner
	logger zerolog.Logger
}

// Extend walks a configuration structure and resolves every template
// node in it. Inside a mapping, a node's rendering merges over its
// sibling keys and must therefore be a mapping itself; a node that is
// the whole mapping replaces it. Inside a sequence, a rendering that
// is a sequence is spliced in place and anything else becomes a single
// element. Rendered content is walked again, so templates may produce
// further template nodes. The input is never mutated.
func Extend(data any, opts ...Option) (any, error) {
	e := &expander{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e.extend(data)
}

func (e *expander) extend(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return e.extendMapping(t)
	case map[any]any:
		if conv, ok := stringKeyed(t); ok {
			return e.extendMapping(conv)
		}
		out := make(map[any]any, len(t))
		for k, elem := range t {
			ext, err := e.extend(elem)
			if err != nil {
				return nil, err
			}
			out[k] = ext
		}
		return out, nil
	case []any:
		return e.extendSequence(t)
	default:
		return v, nil
	}
}

func (e *expander) extendMapping(m map[string]any) (any, error) {
	n, err := extractNode(m)
	if err != nil {
		return nil, err
	}
	if n == nil {
		out := make(map[string]any, len(m))
		for k, elem := range m {
			ext, err := e.extend(elem)
			if err != nil {
				return nil, err
			}
			out[k] = ext
		}
		return out, nil
	}

	rendered, err := e.resolve(n)
	if err != nil {
		return nil, err
	}
	if len(n.rest) == 0 {
		return e.extend(rendered)
	}
	part, ok := rendered.(map[string]any)
	if !ok {
		return nil, &SpliceError{Alias: n.alias, Want: "mapping", GotType: runtime.TypeName(rendered)}
	}
	merged := make(map[string]any, len(n.rest)+len(part))
	for k, elem := range n.rest {
		merged[k] = elem
	}
	for k, elem := range part {
		merged[k] = elem
	}
	out := make(map[string]any, len(merged))
	for k, elem := range merged {
		ext, err := e.extend(elem)
		if err != nil {
			return nil, err
		}
		out[k] = ext
	}
	return out, nil
}

func (e *expander) extendSequence(s []any) (any, error) {
	out := make([]any, 0, len(s))
	for _, item := range s {
		n, err := e.nodeFor(item)
		if err != nil {
			return nil, err
		}
		if n == nil || len(n.rest) > 0 {
			ext, err := e.extend(item)
			if err != nil {
				return nil, err
			}
			out = append(out, ext)
			continue
		}
		rendered, err := e.resolve(n)
		if err != nil {
			return nil, err
		}
		if seq, ok := rendered.([]any); ok {
			for _, elem := range seq {
				ext, err := e.extend(elem)
				if err != nil {
					return nil, err
				}
				out = append(out, ext)
			}
			continue
		}
		ext, err := e.extend(rendered)
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

// nodeFor recognizes the two template node spellings a sequence item
// can take: an alias mapping or the [alias, source(, pipe)] shorthand.
func (e *expander) nodeFor(item any) (*node, error) {
	switch t := item.(type) {
	case map[string]any:
		return extractNode(t)
	case map[any]any:
		if conv, ok := stringKeyed(t); ok {
			return extractNode(conv)
		}
		return nil, nil
	case []any:
		return extractShorthand(t)
	default:
		return nil, nil
	}
}

func (e *expander) resolve(n *node) (any, error) {
	rendered, err := n.render(e.groups[n.group])
	if err != nil {
		return nil, err
	}
	if n.hasPipe {
		switch {
		case n.alias != KeyText:
			e.logger.Warn().Str("alias", n.alias).Msg("ignoring custom pipe, load behavior is fixed for this template kind")
		case e.pipe == nil:
			return nil, &NodeError{Reason: "template declares a pipe but no pipe runner is configured"}
		default:
			rendered, err = e.pipe(n.pipe, rendered)
			if err != nil {
				return nil, err
			}
		}
	}
	return rendered, nil
}

// stringKeyed converts a map[any]any whose keys are all strings.
func stringKeyed(m map[any]any) (map[string]any, bool) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, ok := k.(string)
		if !ok {
			return nil, false
		}
		out[s] = v
	}
	return out, true
}
