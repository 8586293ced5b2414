package specifier

import "fmt"

// FormatError reports a spec string that matches no recognized form.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid specification format: %q", e.Raw)
}

// AccessError reports a failed path walk. It names the offending segment,
// the path walked so far and the type at the failure point, never the
// data itself.
type AccessError struct {
	Segment string
	Path    string
	Type    string
	Reason  string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: segment %s at path %q on %s", e.Reason, e.Segment, e.Path, e.Type)
}

// PipeError reports a pipe stage that did not resolve to a callable.
type PipeError struct {
	Position int
	Type     string
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("pipe stage %d is not callable (got %s)", e.Position, e.Type)
}

// ConvertError reports a value the spec conversion cannot represent.
type ConvertError struct {
	Type string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("unsupported specification type: %s", e.Type)
}
