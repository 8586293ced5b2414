package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

// Engine compiles Rego rules and evaluates them against resolution
// inputs. An engine with no enabled rules allows everything: the Rego
// gate is an additional review layer, not the primary access control.
type Engine struct {
	mu     sync.RWMutex
	rules  map[string]*compiledRule
	logger zerolog.Logger
}

// compiledRule pairs a rule with its prepared query.
type compiledRule struct {
	rule     *Rule
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a policy engine preloaded with the built-in rules.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		rules:  make(map[string]*compiledRule),
		logger: logger.With().Str("component", "policy-engine").Logger(),
	}
	for _, r := range BuiltinRules() {
		rule := r
		if err := e.compileAndStore(context.Background(), &rule); err != nil {
			return nil, fmt.Errorf("compile built-in rule %s: %w", rule.Name, err)
		}
	}
	return e, nil
}

// Evaluate runs every enabled rule against the input and aggregates
// findings into a single decision.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Decision, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now()
	}

	decision := &Decision{Allowed: true, EvaluatedAt: time.Now()}
	for _, cr := range e.rules {
		if !cr.rule.Enabled {
			continue
		}
		findings, err := e.evaluateRule(ctx, cr, input)
		if err != nil {
			e.logger.Error().Err(err).
				Str("rule", cr.rule.Name).
				Str("address", input.Address).
				Msg("rule evaluation failed")
			return nil, fmt.Errorf("rule %s: %w", cr.rule.Name, err)
		}
		for _, v := range findings {
			if v.Severity.blocking() {
				decision.Allowed = false
				decision.Violations = append(decision.Violations, v)
			} else {
				decision.Warnings = append(decision.Warnings, v)
			}
		}
	}

	e.logger.Debug().
		Str("operation", string(input.Operation)).
		Str("address", input.Address).
		Bool("allowed", decision.Allowed).
		Int("violations", len(decision.Violations)).
		Msg("policy decision")
	return decision, nil
}

// evaluateRule queries the rule's deny set for the given input.
func (e *Engine) evaluateRule(ctx context.Context, cr *compiledRule, input Input) ([]Violation, error) {
	results, err := cr.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("rego evaluation: %w", err)
	}

	var findings []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, d := range denySet {
				findings = append(findings, makeViolation(cr.rule, d))
			}
		}
	}
	return findings, nil
}

// makeViolation interprets one deny result. Rules may emit plain strings
// or objects carrying message and severity overrides.
func makeViolation(rule *Rule, result any) Violation {
	v := Violation{Rule: rule.Name, Severity: rule.Severity}
	switch t := result.(type) {
	case string:
		v.Message = t
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := t["severity"].(string); ok {
			v.Severity = Severity(sev)
		}
	default:
		v.Message = fmt.Sprintf("%v", result)
	}
	return v
}

// AddRule compiles and registers a rule. An existing rule of the same
// name is replaced.
func (e *Engine) AddRule(ctx context.Context, rule Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compileAndStore(ctx, &rule)
}

// LoadRules loads rule files or directories and registers every rule
// found.
func (e *Engine) LoadRules(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	rules, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range rules {
		if err := e.compileAndStore(ctx, &rules[i]); err != nil {
			return fmt.Errorf("compile rule %s: %w", rules[i].Name, err)
		}
	}
	e.logger.Info().Int("count", len(rules)).Msg("rules loaded")
	return nil
}

// compileAndStore parses and prepares a rule's query. Callers hold the
// write lock.
func (e *Engine) compileAndStore(ctx context.Context, rule *Rule) error {
	if _, err := ast.ParseModule(rule.Name, rule.Rego); err != nil {
		return fmt.Errorf("parse rego: %w", err)
	}

	pkg := extractPackageName(rule.Rego)
	query, err := rego.New(
		rego.Module(rule.Name, rule.Rego),
		rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("prepare query: %w", err)
	}

	e.rules[rule.Name] = &compiledRule{
		rule:     rule,
		query:    query,
		compiled: time.Now(),
	}
	e.logger.Debug().Str("rule", rule.Name).Msg("rule compiled")
	return nil
}

// extractPackageName reads the package declaration from Rego source.
func extractPackageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "structcast.rules"
}

// Rule returns a registered rule by name.
func (e *Engine) Rule(name string) (*Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cr, exists := e.rules[name]
	if !exists {
		return nil, fmt.Errorf("rule not found: %s", name)
	}
	return cr.rule, nil
}

// Rules returns all registered rules.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, 0, len(e.rules))
	for _, cr := range e.rules {
		out = append(out, *cr.rule)
	}
	return out
}

// SetEnabled toggles a rule by name.
func (e *Engine) SetEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cr, exists := e.rules[name]
	if !exists {
		return fmt.Errorf("rule not found: %s", name)
	}
	cr.rule.Enabled = enabled
	e.logger.Info().Str("rule", name).Bool("enabled", enabled).Msg("rule toggled")
	return nil
}
