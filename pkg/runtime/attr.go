package runtime

import (
	"fmt"
	"strings"
)

// AttrGetter is implemented by values exposing named members to the
// attribute node. The symbol registry's modules implement it, as do
// foreign (Starlark) objects through their adapters.
type AttrGetter interface {
	Attr(name string) (any, bool)
}

// Attr performs structural member lookup on a value: AttrGetter
// implementations and string-keyed mappings. There is no reflective
// fallback; values outside the symbol table expose nothing.
func Attr(v any, name string) (any, bool) {
	switch obj := v.(type) {
	case AttrGetter:
		return obj.Attr(name)
	case map[string]any:
		val, ok := obj[name]
		return val, ok
	case map[any]any:
		val, ok := obj[name]
		return val, ok
	default:
		return nil, false
	}
}

// TypeName returns the diagnostic type name of a value. Error messages
// use it instead of value representations so that failures never leak
// object contents.
func TypeName(v any) string {
	switch obj := v.(type) {
	case nil:
		return "nil"
	case Callable:
		return fmt.Sprintf("callable(%s)", obj.Name())
	case map[string]any, map[any]any:
		return "mapping"
	case []any:
		return "sequence"
	default:
		name := fmt.Sprintf("%T", v)
		return strings.TrimPrefix(name, "*")
	}
}
