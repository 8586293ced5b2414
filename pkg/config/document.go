package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/structcast/structcast/pkg/security"
)

// Loader reads configuration documents into plain data trees. All
// three formats decode to the same shapes (map[string]any, []any,
// scalars) so downstream expansion and instantiation never see
// format-specific types.
type Loader struct {
	cue    *cue.Context
	logger zerolog.Logger
}

// NewLoader returns a document loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		cue:    cuecontext.New(),
		logger: logger,
	}
}

// LoadDocument reads and decodes the file at path, dispatching on its
// extension (.yaml, .yml, .json, .cue). The path must pass the active
// security policy's path check.
func (l *Loader) LoadDocument(path string) (any, error) {
	resolved, err := security.CheckPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	l.logger.Debug().Str("path", resolved).Str("format", ext).Msg("loading document")

	switch ext {
	case ".yaml", ".yml":
		return l.ParseYAML(content)
	case ".json":
		return l.ParseJSON(content)
	case ".cue":
		return l.ParseCUE(string(content), resolved)
	default:
		return nil, fmt.Errorf("unsupported document format %q for %s", ext, path)
	}
}

// ParseYAML decodes a YAML document into a plain data tree.
func (l *Loader) ParseYAML(content []byte) (any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return normalizeTree(out), nil
}

// ParseJSON decodes a JSON document into a plain data tree.
func (l *Loader) ParseJSON(content []byte) (any, error) {
	var out any
	if err := json.Unmarshal(content, &out); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return out, nil
}

// ParseCUE compiles CUE source and exports the concrete value as a
// plain data tree. The filename is used for error positions only.
func (l *Loader) ParseCUE(content, filename string) (any, error) {
	val := l.cue.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %s", cueerrors.Details(err, nil))
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE document is not concrete: %s", cueerrors.Details(err, nil))
	}
	var out any
	if err := val.Decode(&out); err != nil {
		return nil, fmt.Errorf("exporting CUE value: %w", err)
	}
	return out, nil
}

// normalizeTree rewrites map[any]any mappings from the YAML decoder
// into map[string]any wherever the keys allow it, keeping the tree
// shape uniform across formats.
func normalizeTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeTree(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			s, ok := k.(string)
			if !ok {
				s = fmt.Sprint(k)
			}
			out[s] = normalizeTree(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalizeTree(e)
		}
		return t
	default:
		return v
	}
}
