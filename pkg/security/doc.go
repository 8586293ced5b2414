// Package security holds the process-wide security policy that mediates
// every symbol resolution performed by the instantiation engine.
//
// The policy is a single Settings value behind an atomically-swapped
// pointer: readers always observe a complete, immutable snapshot, and
// Configure replaces the whole snapshot rather than mutating fields in
// place. Three checks are exposed: ValidateImport (module/symbol
// allow/block lists), ValidateAttribute (attribute-name hygiene) and
// CheckPath (filesystem containment for file-backed modules).
package security
