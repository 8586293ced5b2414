package runtime

import "fmt"

// ArgShape tags how an argument value was supplied in configuration.
type ArgShape int

const (
	// ShapeNone is an empty argument list.
	ShapeNone ArgShape = iota

	// ShapePositional is a sequence of positional arguments.
	ShapePositional

	// ShapeKeyword is a mapping of named arguments.
	ShapeKeyword

	// ShapeSingle is one positional argument supplied as a bare scalar.
	ShapeSingle
)

// Arguments is the tagged union of argument shapes, decided once when the
// argument configuration is instantiated and dispatched through
// Callable.Call. Partial application may combine positional and keyword
// parts; the shape tag records how the arguments were originally written.
type Arguments struct {
	shape      ArgShape
	positional []any
	keyword    map[string]any
}

// NoArgs is an empty argument list.
func NoArgs() Arguments {
	return Arguments{shape: ShapeNone}
}

// PositionalArgs builds positional arguments from a sequence.
func PositionalArgs(values ...any) Arguments {
	return Arguments{shape: ShapePositional, positional: values}
}

// KeywordArgs builds named arguments from a mapping.
func KeywordArgs(values map[string]any) Arguments {
	return Arguments{shape: ShapeKeyword, keyword: values}
}

// SingleArg builds one positional argument from a bare value.
func SingleArg(value any) Arguments {
	return Arguments{shape: ShapeSingle, positional: []any{value}}
}

// ArgsFromValue classifies an instantiated argument value by its shape:
// mappings become keyword arguments, sequences positional arguments, nil
// an empty list and anything else a single positional argument.
func ArgsFromValue(value any) Arguments {
	switch v := value.(type) {
	case nil:
		return NoArgs()
	case map[string]any:
		if len(v) == 0 {
			return NoArgs()
		}
		return KeywordArgs(v)
	case map[any]any:
		kw := make(map[string]any, len(v))
		for key, val := range v {
			kw[fmt.Sprint(key)] = val
		}
		if len(kw) == 0 {
			return NoArgs()
		}
		return KeywordArgs(kw)
	case []any:
		if len(v) == 0 {
			return NoArgs()
		}
		return PositionalArgs(v...)
	default:
		return SingleArg(value)
	}
}

// Shape returns the original argument shape tag.
func (a Arguments) Shape() ArgShape { return a.shape }

// Positional returns the positional arguments in order.
func (a Arguments) Positional() []any { return a.positional }

// Keyword returns the named arguments.
func (a Arguments) Keyword() map[string]any { return a.keyword }

// Len returns the total number of arguments.
func (a Arguments) Len() int { return len(a.positional) + len(a.keyword) }

// Pos returns the i-th positional argument, or false when absent.
func (a Arguments) Pos(i int) (any, bool) {
	if i < 0 || i >= len(a.positional) {
		return nil, false
	}
	return a.positional[i], true
}

// Named returns the named argument, or false when absent.
func (a Arguments) Named(name string) (any, bool) {
	v, ok := a.keyword[name]
	return v, ok
}

// merge combines bound arguments with call-site arguments: bound
// positionals come first, call-site keywords override bound ones.
func (a Arguments) merge(call Arguments) Arguments {
	out := Arguments{shape: a.shape}
	if call.shape != ShapeNone {
		out.shape = call.shape
	}
	out.positional = append(append([]any(nil), a.positional...), call.positional...)
	if len(a.keyword)+len(call.keyword) > 0 {
		out.keyword = make(map[string]any, len(a.keyword)+len(call.keyword))
		for k, v := range a.keyword {
			out.keyword[k] = v
		}
		for k, v := range call.keyword {
			out.keyword[k] = v
		}
	}
	return out
}
