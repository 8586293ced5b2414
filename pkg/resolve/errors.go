package resolve

import "fmt"

// UnknownModuleError reports an address naming a module the registry does
// not carry. This is a lookup failure, not a security refusal.
type UnknownModuleError struct {
	Module string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("unknown module: %s", e.Module)
}

// NotFoundError reports a module that exists but lacks the requested
// member.
type NotFoundError struct {
	Module string
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %s has no member %s", e.Module, e.Symbol)
}

// PolicyError reports a resolution refused by the Rego review layer.
type PolicyError struct {
	Rule    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("blocked by policy rule %s: %s", e.Rule, e.Message)
}
