package pattern

import (
	"fmt"
	"strings"
	"time"
)

// NoObjectError reports an Attribute, Call or Bind node executed against
// an empty run stack.
type NoObjectError struct {
	Action  string
	Applied []string
}

func (e *NoObjectError) Error() string {
	return appendTrail(fmt.Sprintf("no object to %s", e.Action), e.Applied)
}

// NotCallableError reports a Call or Bind node applied to a value that
// is not callable. It names the type only, never the value.
type NotCallableError struct {
	Type    string
	Applied []string
}

func (e *NotCallableError) Error() string {
	return appendTrail(fmt.Sprintf("object of type %s is not callable", e.Type), e.Applied)
}

// AttributeNotFoundError reports the first missing segment of a dotted
// attribute walk and the type of the object at that point.
type AttributeNotFoundError struct {
	Segment string
	Path    string
	Type    string
	Applied []string
}

func (e *AttributeNotFoundError) Error() string {
	return appendTrail(
		fmt.Sprintf("attribute %q not found at %q on %s", e.Segment, e.Path, e.Type),
		e.Applied,
	)
}

// SingleObjectError reports an object pattern whose fold ended with zero
// or more than one run.
type SingleObjectError struct {
	Count int
	Nodes []string
}

func (e *SingleObjectError) Error() string {
	return fmt.Sprintf(
		"object pattern did not resolve to a single object: %d runs from [%s]",
		e.Count, strings.Join(e.Nodes, ", "),
	)
}

// ShapeError reports a malformed pattern node shape. Shape errors are
// hard failures: once a fragment commits to a node tag its contents must
// be well formed.
type ShapeError struct {
	Tag    string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("malformed pattern node: %s", e.Reason)
	}
	return fmt.Sprintf("malformed %s node: %s", e.Tag, e.Reason)
}

// DepthError reports a recursion that exceeded the depth budget.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("instantiation depth exceeded the maximum of %d", e.Limit)
}

// TimeError reports an invocation that exceeded the wall-clock budget.
type TimeError struct {
	Limit time.Duration
}

func (e *TimeError) Error() string {
	return fmt.Sprintf("instantiation time exceeded the maximum of %s", e.Limit)
}

func appendTrail(msg string, applied []string) string {
	if len(applied) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (after %s)", msg, strings.Join(applied, ", "))
}
