// Package specifier implements the path-access DSL used to extract and
// reshape values from already-loaded data.
//
// A spec string is either empty (the whole source), a dotted path with
// quoted segments and integer indices (`servers.0."weird key"`), or a
// resolver-prefixed value (`env:HOME`). Non-string specs are constants.
// Constructor forms under the `_spec_` key combine an extraction spec,
// access options and an optional pipe of object patterns whose resolved
// callables post-process the extracted value.
//
// The package consumes the pattern engine only to build pipe callables;
// it never talks to the security policy or the symbol resolver directly.
package specifier
