package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/structcast/structcast/pkg/audit"
	"github.com/structcast/structcast/pkg/policy"
	"github.com/structcast/structcast/pkg/registry"
	"github.com/structcast/structcast/pkg/runtime"
	"github.com/structcast/structcast/pkg/security"
)

func restoreSettings(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { security.Configure(nil) })
}

func TestResolveBuiltinByBareSymbol(t *testing.T) {
	restoreSettings(t)
	r := Default()
	v, err := r.Resolve(context.Background(), "int", "")
	if err != nil {
		t.Fatalf("Resolve(int) error = %v", err)
	}
	if _, ok := runtime.AsCallable(v); !ok {
		t.Errorf("Resolve(int) = %T, want Callable", v)
	}
}

func TestResolveIsReferenceStable(t *testing.T) {
	restoreSettings(t)
	r := Default()
	first, err := r.Resolve(context.Background(), "strings.upper", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := r.Resolve(context.Background(), "strings.upper", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first != second {
		t.Error("repeated resolution should yield the same value")
	}
}

func TestResolveBlockedModule(t *testing.T) {
	restoreSettings(t)
	r := Default()
	_, err := r.Resolve(context.Background(), "os.exec.run", "")
	if err == nil {
		t.Fatal("blocked module should be refused")
	}
	if !security.IsSecurityError(err) {
		t.Errorf("error = %T (%v), want security error", err, err)
	}
	var unknown *UnknownModuleError
	if errors.As(err, &unknown) {
		t.Error("blocked module must be refused before registry lookup")
	}
}

func TestResolveUnlistedModule(t *testing.T) {
	restoreSettings(t)
	r := Default()
	_, err := r.Resolve(context.Background(), "mystery.symbol", "")
	if !security.IsSecurityError(err) {
		t.Errorf("unlisted module error = %T (%v), want security error", err, err)
	}
}

func TestResolveUnknownModule(t *testing.T) {
	restoreSettings(t)
	s := security.Default()
	s.AllowedModules["ghost"] = nil
	security.Configure(s)

	r := Default()
	_, err := r.Resolve(context.Background(), "ghost.symbol", "")
	var unknown *UnknownModuleError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %T (%v), want UnknownModuleError", err, err)
	}
	if unknown.Module != "ghost" {
		t.Errorf("Module = %q, want ghost", unknown.Module)
	}
}

func TestResolveMissingMember(t *testing.T) {
	restoreSettings(t)
	r := Default()
	_, err := r.Resolve(context.Background(), "strings.no_such_member", "")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %T (%v), want NotFoundError", err, err)
	}
	if notFound.Module != "strings" || notFound.Symbol != "no_such_member" {
		t.Errorf("NotFoundError = %+v", notFound)
	}
}

func TestResolveDangerousAttribute(t *testing.T) {
	restoreSettings(t)
	r := Default()
	_, err := r.Resolve(context.Background(), "builtins.__import__", "")
	if !security.IsSecurityError(err) {
		t.Errorf("dangerous symbol error = %T (%v), want security error", err, err)
	}
}

func allowFileModules(t *testing.T, dir string, modules ...string) {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("resolve dir: %v", err)
	}
	s := security.Default()
	s.AllowedDirectories = append(s.AllowedDirectories, resolved)
	for _, m := range modules {
		s.AllowedModules[m] = nil
	}
	security.Configure(s)
}

func writeStarFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write module file: %v", err)
	}
	return path
}

func TestResolveFromFile(t *testing.T) {
	restoreSettings(t)
	dir := t.TempDir()
	allowFileModules(t, dir, "helpers")
	path := writeStarFile(t, dir, "helpers.star", `
greeting = "hello"

def shout(s):
    return s.upper()
`)

	r := Default()
	v, err := r.Resolve(context.Background(), "greeting", path)
	if err != nil {
		t.Fatalf("Resolve(greeting) error = %v", err)
	}
	if v != "hello" {
		t.Errorf("greeting = %v", v)
	}

	fn, err := r.Resolve(context.Background(), "shout", path)
	if err != nil {
		t.Fatalf("Resolve(shout) error = %v", err)
	}
	callable, ok := runtime.AsCallable(fn)
	if !ok {
		t.Fatalf("shout = %T, want Callable", fn)
	}
	out, err := callable.Call(context.Background(), runtime.SingleArg("hi"))
	if err != nil {
		t.Fatalf("shout() error = %v", err)
	}
	if out != "HI" {
		t.Errorf("shout(hi) = %v", out)
	}
}

func TestResolveFromFileIsCached(t *testing.T) {
	restoreSettings(t)
	dir := t.TempDir()
	allowFileModules(t, dir, "helpers")
	path := writeStarFile(t, dir, "helpers.star", "value = 7\n")

	r := Default()
	first, err := r.Resolve(context.Background(), "value", path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// The file changes on disk, but the loaded module is pinned.
	writeStarFile(t, dir, "helpers.star", "value = 8\n")
	second, err := r.Resolve(context.Background(), "value", path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first != second {
		t.Errorf("cached module changed: %v then %v", first, second)
	}
}

func TestResolveFromFileRejectsWrongExtension(t *testing.T) {
	restoreSettings(t)
	dir := t.TempDir()
	allowFileModules(t, dir, "helpers")
	path := writeStarFile(t, dir, "helpers.txt", "value = 7\n")

	r := Default()
	_, err := r.Resolve(context.Background(), "value", path)
	if !security.IsSecurityError(err) {
		t.Errorf("wrong extension error = %T (%v), want security error", err, err)
	}
}

func TestResolveFromFileMissing(t *testing.T) {
	restoreSettings(t)
	r := Default()
	_, err := r.Resolve(context.Background(), "value", filepath.Join(t.TempDir(), "absent.star"))
	var notFound *security.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error = %T (%v), want path NotFoundError", err, err)
	}
}

func TestResolveFromFileUnlistedModuleDenied(t *testing.T) {
	restoreSettings(t)
	dir := t.TempDir()
	allowFileModules(t, dir)
	path := writeStarFile(t, dir, "secret.star", "value = 7\n")

	r := Default()
	_, err := r.Resolve(context.Background(), "value", path)
	if !security.IsSecurityError(err) {
		t.Errorf("unlisted file module error = %T (%v), want security error", err, err)
	}
}

type memRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memRecorder) Record(_ context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func TestRecorderSeesOutcomes(t *testing.T) {
	restoreSettings(t)
	rec := &memRecorder{}
	r := New(registry.Default(), WithRecorder(rec))

	if _, err := r.Resolve(context.Background(), "strings.upper", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := r.Resolve(context.Background(), "os.getenv", ""); err == nil {
		t.Fatal("blocked module should be refused")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	if rec.events[0].Outcome != audit.OutcomeAllowed {
		t.Errorf("first outcome = %s, want allowed", rec.events[0].Outcome)
	}
	if rec.events[1].Outcome != audit.OutcomeDenied || rec.events[1].Module != "os" {
		t.Errorf("second event = %+v, want denied os", rec.events[1])
	}
}

func TestPolicyGateBlocks(t *testing.T) {
	restoreSettings(t)
	engine, err := policy.NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	err = engine.AddRule(context.Background(), policy.Rule{
		Name:     "no-strings",
		Severity: policy.SeverityError,
		Enabled:  true,
		Rego: `package structcast.rules.nostrings

import rego.v1

deny contains msg if {
	input.module == "strings"
	msg := "strings module is not allowed"
}
`,
	})
	if err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	r := New(registry.Default(), WithPolicy(engine))
	_, err = r.Resolve(context.Background(), "strings.upper", "")
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("error = %T (%v), want PolicyError", err, err)
	}
	if policyErr.Rule != "no-strings" {
		t.Errorf("Rule = %q", policyErr.Rule)
	}

	if _, err := r.Resolve(context.Background(), "math.sqrt", ""); err != nil {
		t.Errorf("unrelated module should pass the gate: %v", err)
	}
}

func TestWithDefaultModule(t *testing.T) {
	restoreSettings(t)
	r := New(registry.Default(), WithDefaultModule("math"))
	v, err := r.Resolve(context.Background(), "sqrt", "")
	if err != nil {
		t.Fatalf("Resolve(sqrt) error = %v", err)
	}
	if _, ok := runtime.AsCallable(v); !ok {
		t.Errorf("sqrt = %T, want Callable", v)
	}
}
