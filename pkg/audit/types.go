package audit

import "time"

// Outcome records how a resolution attempt ended.
type Outcome string

const (
	// OutcomeAllowed marks a resolution that passed every check.
	OutcomeAllowed Outcome = "allowed"

	// OutcomeDenied marks a resolution refused by the access controls.
	OutcomeDenied Outcome = "denied"

	// OutcomeError marks a resolution that failed for a non-security
	// reason, such as an unknown module.
	OutcomeError Outcome = "error"
)

// Event is one recorded resolution attempt.
type Event struct {
	// ID is a generated UUID.
	ID string `json:"id"`

	// Timestamp is when the attempt happened.
	Timestamp time.Time `json:"timestamp"`

	// Operation is the resolution step: resolve, load or attribute.
	Operation string `json:"operation"`

	// Address is the address as written in configuration.
	Address string `json:"address,omitempty"`

	// Module is the module part of the address.
	Module string `json:"module,omitempty"`

	// Symbol is the member part of the address.
	Symbol string `json:"symbol,omitempty"`

	// File is the module file path for load operations.
	File string `json:"file,omitempty"`

	// Outcome records how the attempt ended.
	Outcome Outcome `json:"outcome"`

	// Reason carries the denial reason or error class, never argument
	// values.
	Reason string `json:"reason,omitempty"`
}

// Filter narrows event listings.
type Filter struct {
	// Outcome keeps only events with this outcome when set.
	Outcome Outcome

	// Module keeps only events for this module when set.
	Module string

	// Since keeps only events at or after this time when set.
	Since time.Time

	// Limit caps the number of returned events. Zero means the store
	// default.
	Limit int

	// Offset skips this many events for pagination.
	Offset int
}
