package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Loader reads rule files from disk. Rego files become one rule each,
// named after the file; JSON files carry full rule documents.
type Loader struct {
	logger zerolog.Logger
	mu     sync.RWMutex
	cache  map[string]*Rule
}

// NewLoader creates a rule loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string]*Rule),
	}
}

// LoadFromPaths loads rules from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Rule, error) {
	var all []Rule
	for _, path := range paths {
		rules, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load from %s: %w", path, err)
		}
		all = append(all, rules...)
	}
	l.logger.Info().Int("total", len(all)).Int("sources", len(paths)).
		Msg("rules loaded from paths")
	return all, nil
}

func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}
	rule, err := l.loadFromFile(path)
	if err != nil {
		return nil, err
	}
	return []Rule{*rule}, nil
}

// loadFromDirectory walks a directory and loads every .rego and .json
// file. Unreadable files are logged and skipped so one bad file does not
// block the rest.
func (l *Loader) loadFromDirectory(_ context.Context, dir string) ([]Rule, error) {
	var rules []Rule
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, ".json") {
			return nil
		}
		rule, err := l.loadFromFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("skipping rule file")
			return nil
		}
		rules = append(rules, *rule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return rules, nil
}

func (l *Loader) loadFromFile(path string) (*Rule, error) {
	l.mu.RLock()
	if cached, exists := l.cache[path]; exists {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var rule *Rule
	switch {
	case strings.HasSuffix(path, ".rego"):
		rule = parseRegoFile(path, data)
	case strings.HasSuffix(path, ".json"):
		rule, err = parseJSONFile(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported rule file type: %s", path)
	}

	l.mu.Lock()
	l.cache[path] = rule
	l.mu.Unlock()

	l.logger.Debug().Str("path", path).Str("rule", rule.Name).Msg("rule file loaded")
	return rule, nil
}

// parseRegoFile wraps raw Rego source in a rule named after the file.
func parseRegoFile(path string, data []byte) *Rule {
	name := strings.TrimSuffix(filepath.Base(path), ".rego")
	return &Rule{
		Name:        name,
		Description: extractDescription(string(data)),
		Rego:        string(data),
		Severity:    SeverityError,
		Enabled:     true,
	}
}

// parseJSONFile decodes a full rule document.
func parseJSONFile(data []byte) (*Rule, error) {
	var rule Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("parse rule JSON: %w", err)
	}
	if rule.Name == "" {
		return nil, fmt.Errorf("rule JSON missing name")
	}
	if rule.Rego == "" {
		return nil, fmt.Errorf("rule %s missing rego source", rule.Name)
	}
	if rule.Severity == "" {
		rule.Severity = SeverityError
	}
	return &rule, nil
}

// extractDescription takes the first comment line of a Rego file as the
// rule description.
func extractDescription(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			break
		}
	}
	return ""
}
