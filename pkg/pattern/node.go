package pattern

import "fmt"

// Node tags.
const (
	TagAddress   = "_addr_"
	TagAttribute = "_attr_"
	TagCall      = "_call_"
	TagBind      = "_bind_"
	TagObject    = "_obj_"

	// TagFile is the optional companion key of the keyed address form.
	TagFile = "_file_"
)

// Node is one element of an object pattern. Nodes are immutable after
// parse and safe to execute any number of times.
type Node interface {
	// Tag returns the node's grammar tag.
	Tag() string

	// Describe returns the compact diagnostic form used in error trails.
	Describe() string

	// Encode returns the canonical configuration form of the node.
	Encode() any
}

// Address resolves a dotted address through the symbol resolver and
// pushes the result as a new run. File, when set, names a module file to
// load the symbol from.
type Address struct {
	Address string
	File    string
}

func (n *Address) Tag() string { return TagAddress }

func (n *Address) Describe() string {
	if n.File != "" {
		return fmt.Sprintf("addr(%s from %s)", n.Address, n.File)
	}
	return fmt.Sprintf("addr(%s)", n.Address)
}

// Attribute pops the last run, walks its dotted segments by structural
// member lookup and pushes the final value.
type Attribute struct {
	Attribute string
}

func (n *Attribute) Tag() string { return TagAttribute }

func (n *Attribute) Describe() string {
	return fmt.Sprintf("attr(%s)", n.Attribute)
}

// Call pops the last run, which must be callable, instantiates Args and
// invokes it. A mapping becomes keyword arguments, a sequence positional
// arguments, any other value a single positional argument.
type Call struct {
	Args any
}

func (n *Call) Tag() string { return TagCall }

func (n *Call) Describe() string { return "call" }

// Bind is Call without the invocation: it pushes a partial application
// of the popped callable instead of its result.
type Bind struct {
	Args any
}

func (n *Bind) Tag() string { return TagBind }

func (n *Bind) Describe() string { return "bind" }

// Object folds its children over a fresh child accumulator and requires
// exactly one final run, which becomes a run of the parent.
type Object struct {
	Children []Node
}

func (n *Object) Tag() string { return TagObject }

func (n *Object) Describe() string {
	return fmt.Sprintf("object[%d]", len(n.Children))
}

func describeNodes(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Describe()
	}
	return out
}
