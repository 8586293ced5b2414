package pattern

// Encode emits the canonical configuration form. Addresses and objects
// always use the shorthand sequence form; attributes stay keyed;
// call/bind arguments pick the form matching their shape, with an empty
// call collapsing to the bare tag string.

// Encode implements Node.
func (n *Address) Encode() any {
	if n.File != "" {
		return []any{TagAddress, n.Address, n.File}
	}
	return []any{TagAddress, n.Address}
}

// Encode implements Node.
func (n *Attribute) Encode() any {
	return map[string]any{TagAttribute: n.Attribute}
}

// Encode implements Node.
func (n *Call) Encode() any {
	switch args := n.Args.(type) {
	case nil:
		return TagCall
	case []any:
		if len(args) == 0 {
			return TagCall
		}
		return append([]any{TagCall}, args...)
	case map[string]any:
		if len(args) == 0 {
			return TagCall
		}
		return map[string]any{TagCall: args}
	default:
		return map[string]any{TagCall: n.Args}
	}
}

// Encode implements Node.
func (n *Bind) Encode() any {
	switch args := n.Args.(type) {
	case nil:
		return []any{TagBind}
	case []any:
		return append([]any{TagBind}, args...)
	default:
		return map[string]any{TagBind: n.Args}
	}
}

// Encode implements Node.
func (n *Object) Encode() any {
	out := make([]any, 0, len(n.Children)+1)
	out = append(out, TagObject)
	for _, child := range n.Children {
		out = append(out, child.Encode())
	}
	return out
}
