// Package registry implements the symbol table consulted by the symbol
// resolver. Instead of ambient reflection, the resolvable universe is an
// explicit, statically-registered map of module name to member name to
// value: the builtin modules ship with the package, applications register
// their own, and file-backed modules are Starlark files whose exports are
// loaded in isolation under the security policy's review gate.
package registry
