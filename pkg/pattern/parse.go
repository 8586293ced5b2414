package pattern

import (
	"errors"
	"fmt"
)

// ErrNotPattern marks a configuration fragment that does not match the
// pattern grammar. It is the single recoverable parse failure: callers
// treat the fragment as plain data. Shape errors, by contrast, are hard
// failures on fragments that committed to a node tag.
var ErrNotPattern = errors.New("configuration is not a pattern node")

// ParseObject parses a configuration fragment as an object pattern. Only
// the keyed {"_obj_": [...]} and shorthand ["_obj_", ...] forms qualify;
// everything else, including other node kinds at top level, reports
// ErrNotPattern.
func ParseObject(cfg any) (*Object, error) {
	node, err := parseNode(cfg)
	if err != nil {
		return nil, err
	}
	obj, ok := node.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: top-level node is not an object", ErrNotPattern)
	}
	return obj, nil
}

// parseNode parses one configuration fragment as a pattern node. It
// returns an error wrapping ErrNotPattern when the fragment does not
// match the grammar, and a *ShapeError when a shorthand sequence names a
// tag but carries malformed contents.
func parseNode(v any) (Node, error) {
	switch cfg := v.(type) {
	case string:
		if cfg == TagCall {
			return &Call{}, nil
		}
		return nil, notPattern("string %q is not a node tag", cfg)
	case []any:
		return parseShorthand(cfg)
	default:
		if m, ok := stringKeyed(v); ok {
			return parseKeyed(m)
		}
		return nil, notPattern("fragment of type %T is not a node", v)
	}
}

// parseKeyed parses the mapping forms. Mapping-form mismatches are
// recoverable: a map that fails validation is plain data.
func parseKeyed(m map[string]any) (Node, error) {
	switch {
	case hasKey(m, TagAddress):
		if len(m) > 2 || (len(m) == 2 && !hasKey(m, TagFile)) {
			return nil, notPattern("address mapping carries extra keys")
		}
		addr, ok := m[TagAddress].(string)
		if !ok || addr == "" {
			return nil, notPattern("address must be a non-empty string")
		}
		node := &Address{Address: addr}
		if raw, ok := m[TagFile]; ok {
			file, ok := raw.(string)
			if !ok || file == "" {
				return nil, notPattern("file must be a non-empty string")
			}
			node.File = file
		}
		return node, nil

	case hasKey(m, TagAttribute):
		if len(m) != 1 {
			return nil, notPattern("attribute mapping carries extra keys")
		}
		name, ok := m[TagAttribute].(string)
		if !ok || name == "" {
			return nil, notPattern("attribute must be a non-empty string")
		}
		return &Attribute{Attribute: name}, nil

	case hasKey(m, TagCall):
		if len(m) != 1 {
			return nil, notPattern("call mapping carries extra keys")
		}
		return &Call{Args: m[TagCall]}, nil

	case hasKey(m, TagBind):
		if len(m) != 1 {
			return nil, notPattern("bind mapping carries extra keys")
		}
		return &Bind{Args: m[TagBind]}, nil

	case hasKey(m, TagObject):
		if len(m) != 1 {
			return nil, notPattern("object mapping carries extra keys")
		}
		children, ok := m[TagObject].([]any)
		if !ok || len(children) == 0 {
			return nil, notPattern("object children must be a non-empty sequence")
		}
		return parseChildren(children)

	default:
		return nil, notPattern("mapping carries no node tag")
	}
}

// parseShorthand parses the sequence forms. Once the head element names
// a tag the fragment is committed: malformed contents are hard errors.
func parseShorthand(seq []any) (Node, error) {
	if len(seq) == 0 {
		return nil, notPattern("empty sequence is not a node")
	}
	head, ok := seq[0].(string)
	if !ok {
		return nil, notPattern("sequence head is not a node tag")
	}

	switch head {
	case TagAddress:
		if len(seq) != 2 && len(seq) != 3 {
			return nil, &ShapeError{Tag: TagAddress, Reason: fmt.Sprintf("expected 2 or 3 elements, got %d", len(seq))}
		}
		addr, ok := seq[1].(string)
		if !ok || addr == "" {
			return nil, &ShapeError{Tag: TagAddress, Reason: "address must be a non-empty string"}
		}
		node := &Address{Address: addr}
		if len(seq) == 3 {
			file, ok := seq[2].(string)
			if !ok || file == "" {
				return nil, &ShapeError{Tag: TagAddress, Reason: "file must be a non-empty string"}
			}
			node.File = file
		}
		return node, nil

	case TagAttribute:
		if len(seq) != 2 {
			return nil, &ShapeError{Tag: TagAttribute, Reason: fmt.Sprintf("expected 2 elements, got %d", len(seq))}
		}
		name, ok := seq[1].(string)
		if !ok || name == "" {
			return nil, &ShapeError{Tag: TagAttribute, Reason: "attribute must be a non-empty string"}
		}
		return &Attribute{Attribute: name}, nil

	case TagCall:
		return &Call{Args: shorthandArgs(seq)}, nil

	case TagBind:
		return &Bind{Args: shorthandArgs(seq)}, nil

	case TagObject:
		if len(seq) < 2 {
			return nil, notPattern("object shorthand carries no children")
		}
		return parseChildren(seq[1:])

	default:
		return nil, notPattern("sequence head %q is not a node tag", head)
	}
}

// parseChildren parses object children. A child that is no node at all
// makes the whole object unparseable (recoverable); a child with a
// malformed committed shorthand stays a hard error.
func parseChildren(children []any) (*Object, error) {
	nodes := make([]Node, 0, len(children))
	for i, child := range children {
		node, err := parseNode(child)
		if err != nil {
			var shape *ShapeError
			if errors.As(err, &shape) {
				return nil, shape
			}
			return nil, notPattern("child %d: %v", i, err)
		}
		nodes = append(nodes, node)
	}
	return &Object{Children: nodes}, nil
}

// shorthandArgs returns the positional arguments of a call/bind
// shorthand. A bare tag means no arguments.
func shorthandArgs(seq []any) any {
	if len(seq) == 1 {
		return []any{}
	}
	args := make([]any, len(seq)-1)
	copy(args, seq[1:])
	return args
}

func notPattern(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotPattern, fmt.Sprintf(format, args...))
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// stringKeyed normalizes the two mapping representations YAML decoding
// can produce into a string-keyed map. A mapping with a non-string key
// is never a node.
func stringKeyed(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	default:
		return nil, false
	}
}
