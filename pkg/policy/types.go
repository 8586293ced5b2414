package policy

import "time"

// Severity grades how strongly a rule objects to a resolution.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// block the resolution.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that block the resolution.
	SeverityError Severity = "error"

	// SeverityCritical is for findings that must never pass.
	SeverityCritical Severity = "critical"
)

// blocking reports whether a severity denies the resolution.
func (s Severity) blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Rule is one named Rego policy evaluated against resolution inputs.
type Rule struct {
	// Name is the unique name of the rule.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego source. The package must expose a deny set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations of this rule.
	Severity Severity `json:"severity"`

	// Enabled indicates if the rule is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing rules.
	Tags []string `json:"tags,omitempty"`
}

// Operation names the resolution step a rule is consulted about.
type Operation string

const (
	// OpResolve covers resolving an address to a module member.
	OpResolve Operation = "resolve"

	// OpLoad covers loading a module file from disk.
	OpLoad Operation = "load"

	// OpAttribute covers refining a resolved value by attribute access.
	OpAttribute Operation = "attribute"
)

// Input is the document a rule evaluates. Fields not relevant to the
// operation stay empty.
type Input struct {
	// Operation is the resolution step being gated.
	Operation Operation `json:"operation"`

	// Address is the full address as written in configuration.
	Address string `json:"address,omitempty"`

	// Module is the module part of the address.
	Module string `json:"module,omitempty"`

	// Symbol is the member part of the address.
	Symbol string `json:"symbol,omitempty"`

	// File is the module file path for load operations.
	File string `json:"file,omitempty"`

	// Attribute is the dotted attribute path for attribute operations.
	Attribute string `json:"attribute,omitempty"`

	// Timestamp is when the evaluation occurs.
	Timestamp time.Time `json:"timestamp"`
}

// Violation is one deny result from one rule.
type Violation struct {
	// Rule is the name of the rule that produced the finding.
	Rule string `json:"rule"`

	// Message is the human-readable finding.
	Message string `json:"message"`

	// Severity is the finding severity.
	Severity Severity `json:"severity"`
}

// Decision is the outcome of evaluating all enabled rules against one
// input.
type Decision struct {
	// Allowed is false when any blocking violation was found.
	Allowed bool `json:"allowed"`

	// Violations lists blocking findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists non-blocking findings.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedAt is when the decision was made.
	EvaluatedAt time.Time `json:"evaluated_at"`
}
