// Package policy is an optional Rego review layer over symbol
// resolution. The allowlist and blocklist remain the primary access
// control; rules registered here add organization-specific findings on
// top, such as banning module files from temporary directories or
// flagging suspicious symbol names.
//
// Rules are Rego modules exposing a deny set. Each deny result is either
// a message string or an object with message and severity fields.
// Findings with severity error or critical block the resolution;
// warnings and informational findings are reported but do not block.
package policy
