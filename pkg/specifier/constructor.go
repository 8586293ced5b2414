package specifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/structcast/structcast/pkg/pattern"
	"github.com/structcast/structcast/pkg/runtime"
)

// SpecKey is the constructor-form alias key.
const SpecKey = "_spec_"

// Reserved option keys of the constructor mapping form.
const (
	keyPipe       = "pipe"
	keyReturnType = "return_type"
	keyRaiseError = "raise_error"
)

// Builder parses constructor forms. It needs the pattern engine only to
// build pipe stages and object specs.
type Builder struct {
	inst *pattern.Instantiator
}

// NewBuilder creates a Builder over the given instantiator.
func NewBuilder(inst *pattern.Instantiator) *Builder {
	return &Builder{inst: inst}
}

// Constructor is a parsed `_spec_` form: an extraction spec (or a flex
// structure of nested constructors), access options and a pipe of
// callables applied left-to-right to the result.
type Constructor struct {
	spec   any
	fields map[string]*Constructor
	items  []*Constructor
	pipe   []runtime.Callable
	opts   []Option
}

// Apply extracts from data and runs the pipe.
func (c *Constructor) Apply(ctx context.Context, data any) (any, error) {
	v, err := c.construct(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, fn := range c.pipe {
		v, err = fn.Call(ctx, runtime.SingleArg(v))
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (c *Constructor) construct(ctx context.Context, data any) (any, error) {
	switch {
	case c.fields != nil:
		out := make(map[string]any, len(c.fields))
		for key, sub := range c.fields {
			v, err := sub.Apply(ctx, data)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case c.items != nil:
		out := make([]any, len(c.items))
		for i, sub := range c.items {
			v, err := sub.Apply(ctx, data)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return Construct(data, c.spec, c.opts...)
	}
}

// Raw parses a raw constructor form: a bare scalar spec, or a mapping
// with `_spec_` plus options.
func (b *Builder) Raw(ctx context.Context, cfg any) (*Constructor, error) {
	raw, form, err := splitForm(cfg)
	if err != nil {
		return nil, err
	}
	spec, err := convertRawLeaf(raw)
	if err != nil {
		return nil, err
	}
	return b.finish(ctx, &Constructor{spec: spec}, form)
}

// Object parses an object constructor form: the `_spec_` value (or the
// whole fragment) is an object pattern, built immediately; the built run
// becomes the spec value.
func (b *Builder) Object(ctx context.Context, cfg any) (*Constructor, error) {
	// A whole-fragment object pattern needs no options mapping.
	if obj, err := pattern.ParseObject(cfg); err == nil {
		built, err := b.inst.Instantiate(ctx, obj.Encode())
		if err != nil {
			return nil, err
		}
		return &Constructor{spec: built}, nil
	} else if !errors.Is(err, pattern.ErrNotPattern) {
		return nil, err
	}

	raw, form, err := splitForm(cfg)
	if err != nil {
		return nil, err
	}
	built, err := b.inst.Instantiate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return b.finish(ctx, &Constructor{spec: built}, form)
}

// Flex parses the flexible form: object patterns and scalars become
// leaves, mappings without `_spec_` become per-field constructors,
// sequences become per-item constructors.
func (b *Builder) Flex(ctx context.Context, cfg any) (*Constructor, error) {
	if obj, err := pattern.ParseObject(cfg); err == nil {
		built, err := b.inst.Instantiate(ctx, obj.Encode())
		if err != nil {
			return nil, err
		}
		return &Constructor{spec: built}, nil
	} else if !errors.Is(err, pattern.ErrNotPattern) {
		return nil, err
	}

	switch v := cfg.(type) {
	case map[string]any:
		if _, ok := v[SpecKey]; ok {
			raw, form, err := splitForm(cfg)
			if err != nil {
				return nil, err
			}
			// The aliased value may itself be an object pattern.
			if obj, err := pattern.ParseObject(raw); err == nil {
				built, err := b.inst.Instantiate(ctx, obj.Encode())
				if err != nil {
					return nil, err
				}
				return b.finish(ctx, &Constructor{spec: built}, form)
			}
			spec, err := convertRawLeaf(raw)
			if err != nil {
				return nil, err
			}
			return b.finish(ctx, &Constructor{spec: spec}, form)
		}
		fields := make(map[string]*Constructor, len(v))
		for key, val := range v {
			sub, err := b.Flex(ctx, val)
			if err != nil {
				return nil, err
			}
			fields[key] = sub
		}
		return &Constructor{fields: fields}, nil
	case []any:
		items := make([]*Constructor, len(v))
		for i, val := range v {
			sub, err := b.Flex(ctx, val)
			if err != nil {
				return nil, err
			}
			items[i] = sub
		}
		return &Constructor{items: items}, nil
	default:
		spec, err := convertRawLeaf(cfg)
		if err != nil {
			return nil, err
		}
		return &Constructor{spec: spec}, nil
	}
}

// splitForm separates the `_spec_` value from the options of a mapping
// form. A fragment that is not an options mapping is the spec itself.
func splitForm(cfg any) (any, map[string]any, error) {
	m, ok := cfg.(map[string]any)
	if !ok {
		return cfg, nil, nil
	}
	raw, ok := m[SpecKey]
	if !ok {
		return cfg, nil, nil
	}
	form := make(map[string]any, len(m))
	for key, val := range m {
		if key == SpecKey {
			continue
		}
		switch key {
		case keyPipe, keyReturnType, keyRaiseError:
			form[key] = val
		default:
			return nil, nil, fmt.Errorf("unknown constructor option %q", key)
		}
	}
	return raw, form, nil
}

// finish applies the options mapping: access options and the pipe.
func (b *Builder) finish(ctx context.Context, c *Constructor, form map[string]any) (*Constructor, error) {
	if form == nil {
		return c, nil
	}
	if raw, ok := form[keyReturnType]; ok {
		mode, err := parseCopyMode(raw)
		if err != nil {
			return nil, err
		}
		c.opts = append(c.opts, WithCopyMode(mode))
	}
	if raw, ok := form[keyRaiseError]; ok {
		strict, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("raise_error must be a boolean")
		}
		c.opts = append(c.opts, WithStrict(strict))
	}
	if raw, ok := form[keyPipe]; ok {
		pipe, err := b.buildPipe(ctx, raw)
		if err != nil {
			return nil, err
		}
		c.pipe = pipe
	}
	return c, nil
}

// buildPipe builds each pipe stage through the pattern engine and
// requires every resolved run to be callable.
func (b *Builder) buildPipe(ctx context.Context, raw any) ([]runtime.Callable, error) {
	stages := []any{raw}
	if seq, ok := raw.([]any); ok {
		// A sequence of patterns, unless it is itself one pattern.
		if _, err := pattern.ParseObject(raw); err != nil {
			stages = seq
		}
	}
	pipe := make([]runtime.Callable, 0, len(stages))
	for i, stage := range stages {
		obj, err := pattern.ParseObject(stage)
		if err != nil {
			return nil, fmt.Errorf("pipe stage %d: %w", i, err)
		}
		built, err := b.inst.Instantiate(ctx, obj.Encode())
		if err != nil {
			return nil, err
		}
		fn, ok := runtime.AsCallable(built)
		if !ok {
			return nil, &PipeError{Position: i, Type: runtime.TypeName(built)}
		}
		pipe = append(pipe, fn)
	}
	return pipe, nil
}

func convertRawLeaf(raw any) (any, error) {
	switch raw.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, []byte, string:
		return Convert(raw)
	default:
		return nil, &ConvertError{Type: runtime.TypeName(raw)}
	}
}

func parseCopyMode(raw any) (CopyMode, error) {
	s, ok := raw.(string)
	if !ok {
		return Reference, fmt.Errorf("return_type must be a string")
	}
	switch s {
	case "reference":
		return Reference, nil
	case "shallow_copy":
		return ShallowCopy, nil
	case "deep_copy":
		return DeepCopy, nil
	default:
		return Reference, fmt.Errorf("unknown return_type %q", s)
	}
}
