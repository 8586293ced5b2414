// Package resolve turns configuration addresses into runtime values. A
// resolution runs the security checks, the optional Rego review layer and
// the audit hook before the registry or module-file lookup happens.
package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/structcast/structcast/pkg/audit"
	"github.com/structcast/structcast/pkg/policy"
	"github.com/structcast/structcast/pkg/registry"
	"github.com/structcast/structcast/pkg/security"
)

// Option customizes a resolver.
type Option func(*Resolver)

// WithDefaultModule sets the module consulted for bare symbol addresses.
func WithDefaultModule(name string) Option {
	return func(r *Resolver) { r.defaultModule = name }
}

// WithPolicy attaches the Rego review layer.
func WithPolicy(engine *policy.Engine) Option {
	return func(r *Resolver) { r.gate = engine }
}

// WithRecorder attaches the audit hook.
func WithRecorder(rec audit.Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithLogger sets the resolver logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// Resolver maps addresses to registry members or module-file globals.
// Module files are loaded once per resolved path, so repeated resolution
// of the same file-backed symbol yields the same value.
type Resolver struct {
	registry      *registry.Registry
	defaultModule string
	gate          *policy.Engine
	recorder      audit.Recorder
	logger        zerolog.Logger

	mu    sync.Mutex
	files map[string]*registry.Module
}

// New creates a resolver over a registry.
func New(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:      reg,
		defaultModule: registry.BuiltinsModuleName,
		recorder:      audit.NopRecorder(),
		logger:        zerolog.Nop(),
		files:         make(map[string]*registry.Module),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a resolver over the builtin registry.
func Default() *Resolver {
	return New(registry.Default())
}

// Resolve maps an address, optionally backed by a module file, to a
// value. The address splits on its last dot into module and symbol; a
// bare symbol uses the default module. When file is given the module is
// loaded from it instead of the registry, and an empty module part is
// derived from the file stem.
func (r *Resolver) Resolve(ctx context.Context, address, file string) (any, error) {
	module, symbol := splitAddress(address)

	if file != "" {
		return r.resolveFromFile(ctx, address, module, symbol, file)
	}

	if module == "" {
		module = r.defaultModule
	}

	// Import validation runs before the registry lookup so that blocked
	// modules are refused as such even when nothing is registered under
	// their name.
	if err := security.ValidateImport(module, symbol); err != nil {
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	if err := security.ValidateAttribute(symbol); err != nil {
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	if err := r.review(ctx, policy.Input{Operation: policy.OpResolve, Address: address, Module: module, Symbol: symbol}); err != nil {
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}

	mod, ok := r.registry.Lookup(module)
	if !ok {
		err := &UnknownModuleError{Module: module}
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, Outcome: audit.OutcomeError, Reason: err.Error()})
		return nil, err
	}
	return r.member(ctx, mod, address, module, symbol, "")
}

// resolveFromFile loads a module file and resolves the symbol against its
// exports. The path check runs before the file is read; import and
// attribute validation follow the load, matching the file-module order.
func (r *Resolver) resolveFromFile(ctx context.Context, address, module, symbol, file string) (any, error) {
	resolved, err := security.CheckPath(file)
	if err != nil {
		r.record(ctx, audit.Event{Operation: "load", Address: address, File: file, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	if filepath.Ext(resolved) != security.ModuleFileExtension {
		err := &security.Error{Reason: security.ReasonModuleFile, Subject: file}
		r.record(ctx, audit.Event{Operation: "load", Address: address, File: file, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	if err := r.review(ctx, policy.Input{Operation: policy.OpLoad, Address: address, File: resolved}); err != nil {
		r.record(ctx, audit.Event{Operation: "load", Address: address, File: resolved, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}

	mod, err := r.loadFile(ctx, resolved)
	if err != nil {
		r.record(ctx, audit.Event{Operation: "load", Address: address, File: resolved, Outcome: audit.OutcomeError, Reason: err.Error()})
		return nil, err
	}

	if module == "" {
		module = mod.Name()
	}
	if err := security.ValidateImport(module, symbol); err != nil {
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, File: resolved, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	if err := security.ValidateAttribute(symbol); err != nil {
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, File: resolved, Outcome: audit.OutcomeDenied, Reason: err.Error()})
		return nil, err
	}
	return r.member(ctx, mod, address, module, symbol, resolved)
}

// member looks up the symbol and records the outcome.
func (r *Resolver) member(ctx context.Context, mod *registry.Module, address, module, symbol, file string) (any, error) {
	value, ok := mod.Attr(symbol)
	if !ok {
		err := &NotFoundError{Module: module, Symbol: symbol}
		r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, File: file, Outcome: audit.OutcomeError, Reason: err.Error()})
		return nil, err
	}
	r.record(ctx, audit.Event{Operation: "resolve", Address: address, Module: module, Symbol: symbol, File: file, Outcome: audit.OutcomeAllowed})
	r.logger.Debug().Str("address", address).Str("module", module).Str("symbol", symbol).Msg("resolved")
	return value, nil
}

// loadFile loads a module file once and caches it by resolved path.
func (r *Resolver) loadFile(ctx context.Context, resolved string) (*registry.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mod, ok := r.files[resolved]; ok {
		return mod, nil
	}
	mod, err := registry.LoadModuleFile(ctx, resolved)
	if err != nil {
		return nil, err
	}
	r.files[resolved] = mod
	return mod, nil
}

// review consults the Rego layer when one is attached.
func (r *Resolver) review(ctx context.Context, input policy.Input) error {
	if r.gate == nil {
		return nil
	}
	decision, err := r.gate.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("policy evaluation: %w", err)
	}
	for _, w := range decision.Warnings {
		r.logger.Warn().Str("rule", w.Rule).Str("address", input.Address).Msg(w.Message)
	}
	if !decision.Allowed {
		v := decision.Violations[0]
		return &PolicyError{Rule: v.Rule, Message: v.Message}
	}
	return nil
}

func (r *Resolver) record(ctx context.Context, event audit.Event) {
	if err := r.recorder.Record(ctx, &event); err != nil {
		r.logger.Error().Err(err).Str("address", event.Address).Msg("audit record failed")
	}
}

// splitAddress splits an address on its last dot. Addresses without a dot
// have an empty module part.
func splitAddress(address string) (module, symbol string) {
	i := strings.LastIndex(address, ".")
	if i < 0 {
		return "", address
	}
	return address[:i], address[i+1:]
}
