// Package template expands template nodes embedded in configuration
// structures before instantiation.
//
// A mapping carrying one of the `_tmpl_`, `_tmpl_yaml_` or `_tmpl_json_`
// keys is a template node: its source is rendered with Go text/template
// in strict missing-key mode against a named variable group
// (`_tmpl_group_`, default "default"). The YAML and JSON variants parse
// the rendering and splice mappings into sibling mappings and sequences
// into enclosing sequences. An optional `_tmpl_pipe_` hands the rendered
// value to a consumer-provided pipe runner; this package never calls
// into the instantiation core itself.
package template
