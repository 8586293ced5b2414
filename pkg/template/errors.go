package template

import "fmt"

// RenderError reports a template that failed to compile or execute.
// The source text is not repeated in the message so that rendered
// secrets never leak into logs.
type RenderError struct {
	Alias  string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s template failed: %s", e.Alias, e.Reason)
}

// NodeError reports a structurally invalid template node, such as a
// mapping that carries more than one template alias.
type NodeError struct {
	Reason string
}

func (e *NodeError) Error() string {
	return "invalid template node: " + e.Reason
}

// SpliceError reports a rendered value whose shape does not fit the
// position the template node occupies.
type SpliceError struct {
	Alias   string
	Want    string
	GotType string
}

func (e *SpliceError) Error() string {
	return fmt.Sprintf("%s template must produce a %s here, got %s", e.Alias, e.Want, e.GotType)
}
