package template

import (
	"encoding/json"
	"fmt"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"

	"github.com/structcast/structcast/pkg/runtime"
)

// Template node keys.
const (
	KeyText  = "_tmpl_"
	KeyYAML  = "_tmpl_yaml_"
	KeyJSON  = "_tmpl_json_"
	KeyGroup = "_tmpl_group_"
	KeyPipe  = "_tmpl_pipe_"
)

// DefaultGroup names the variable group used when a node carries no
// explicit `_tmpl_group_` key.
const DefaultGroup = "default"

// Groups maps group names to the variables visible to templates that
// select that group.
type Groups map[string]map[string]any

var aliasKeys = []string{KeyText, KeyYAML, KeyJSON}

// node is a parsed template node lifted out of a configuration mapping
// or sequence element.
type node struct {
	alias   string
	source  string
	group   string
	pipe    any
	hasPipe bool
	// rest holds the sibling keys of the mapping the node was embedded
	// in, with the template keys removed.
	rest map[string]any
}

// extractNode inspects a mapping for a template alias. It returns nil
// when the mapping carries none. A mapping with more than one alias,
// or with a non-string source or group, is a hard error.
func extractNode(m map[string]any) (*node, error) {
	var found []string
	for _, k := range aliasKeys {
		if _, ok := m[k]; ok {
			found = append(found, k)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	if len(found) > 1 {
		return nil, &NodeError{Reason: "multiple template aliases in one mapping: " + strings.Join(found, ", ")}
	}

	alias := found[0]
	n := &node{alias: alias, group: DefaultGroup, rest: make(map[string]any, len(m))}

	src, ok := m[alias].(string)
	if !ok {
		return nil, &NodeError{Reason: fmt.Sprintf("%s source must be a string, got %s", alias, runtime.TypeName(m[alias]))}
	}
	n.source = src

	for k, v := range m {
		switch k {
		case alias:
		case KeyGroup:
			g, ok := v.(string)
			if !ok {
				return nil, &NodeError{Reason: fmt.Sprintf("%s must be a string, got %s", KeyGroup, runtime.TypeName(v))}
			}
			n.group = g
		case KeyPipe:
			n.pipe = v
			n.hasPipe = true
		default:
			n.rest[k] = v
		}
	}
	return n, nil
}

// extractShorthand recognizes the sequence form [alias, source] or
// [alias, source, pipe]. A sequence whose head is not an alias string
// is not a template node.
func extractShorthand(s []any) (*node, error) {
	if len(s) == 0 {
		return nil, nil
	}
	head, ok := s[0].(string)
	if !ok {
		return nil, nil
	}
	var alias string
	for _, k := range aliasKeys {
		if head == k {
			alias = k
			break
		}
	}
	if alias == "" {
		return nil, nil
	}
	if len(s) < 2 || len(s) > 3 {
		return nil, &NodeError{Reason: fmt.Sprintf("%s shorthand takes a source and an optional pipe, got %d elements", alias, len(s))}
	}
	src, ok := s[1].(string)
	if !ok {
		return nil, &NodeError{Reason: fmt.Sprintf("%s source must be a string, got %s", alias, runtime.TypeName(s[1]))}
	}
	n := &node{alias: alias, source: src, group: DefaultGroup}
	if len(s) == 3 {
		n.pipe = s[2]
		n.hasPipe = true
	}
	return n, nil
}

// render executes the node's source against its variable group. The
// YAML and JSON variants parse the rendering into structured data; a
// custom pipe on those variants is ignored since their load behavior
// is fixed.
func (n *node) render(vars map[string]any) (any, error) {
	tmpl, err := texttemplate.New(n.alias).Option("missingkey=error").Parse(n.source)
	if err != nil {
		return nil, &RenderError{Alias: n.alias, Reason: err.Error()}
	}
	var sb strings.Builder
	if vars == nil {
		vars = map[string]any{}
	}
	if err := tmpl.Execute(&sb, vars); err != nil {
		return nil, &RenderError{Alias: n.alias, Reason: err.Error()}
	}
	text := sb.String()

	switch n.alias {
	case KeyYAML:
		var out any
		if err := yaml.Unmarshal([]byte(text), &out); err != nil {
			return nil, &RenderError{Alias: n.alias, Reason: "rendering is not valid YAML: " + err.Error()}
		}
		return normalizeYAML(out), nil
	case KeyJSON:
		var out any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, &RenderError{Alias: n.alias, Reason: "rendering is not valid JSON: " + err.Error()}
		}
		return out, nil
	default:
		return text, nil
	}
}

// normalizeYAML rewrites map[any]any mappings from the YAML decoder
// into map[string]any so downstream splicing sees one mapping shape.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	default:
		return v
	}
}
