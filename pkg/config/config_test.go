package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/structcast/structcast/pkg/security"
)

func allowDir(t *testing.T, dir string) {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("resolve dir: %v", err)
	}
	s := security.Default()
	s.AllowedDirectories = append(s.AllowedDirectories, resolved)
	security.Configure(s)
	t.Cleanup(func() { security.Configure(nil) })
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestLoadDocumentYAML(t *testing.T) {
	dir := t.TempDir()
	allowDir(t, dir)
	path := writeDoc(t, dir, "doc.yaml", "service: api\nports:\n  - 80\n  - 443\n")

	l := NewLoader(zerolog.Nop())
	got, err := l.LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	want := map[string]any{"service": "api", "ports": []any{80, 443}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LoadDocument() = %#v, want %#v", got, want)
	}
}

func TestLoadDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	allowDir(t, dir)
	path := writeDoc(t, dir, "doc.json", `{"service": "api", "replicas": 3}`)

	l := NewLoader(zerolog.Nop())
	got, err := l.LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["service"] != "api" || m["replicas"] != float64(3) {
		t.Fatalf("LoadDocument() = %#v", got)
	}
}

func TestLoadDocumentCUE(t *testing.T) {
	dir := t.TempDir()
	allowDir(t, dir)
	path := writeDoc(t, dir, "doc.cue", "greeting: \"hello\"\nport: 8080\n")

	l := NewLoader(zerolog.Nop())
	got, err := l.LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("LoadDocument() = %T, want mapping", got)
	}
	if m["greeting"] != "hello" {
		t.Errorf("greeting = %v", m["greeting"])
	}
	if fmt.Sprint(m["port"]) != "8080" {
		t.Errorf("port = %v", m["port"])
	}
}

func TestLoadDocumentCUEMustBeConcrete(t *testing.T) {
	dir := t.TempDir()
	allowDir(t, dir)
	path := writeDoc(t, dir, "doc.cue", "port: int\n")

	l := NewLoader(zerolog.Nop())
	if _, err := l.LoadDocument(path); err == nil {
		t.Fatal("non-concrete CUE document should be refused")
	}
}

func TestLoadDocumentUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	allowDir(t, dir)
	path := writeDoc(t, dir, "doc.toml", "x = 1\n")

	l := NewLoader(zerolog.Nop())
	if _, err := l.LoadDocument(path); err == nil {
		t.Fatal("unsupported format should be refused")
	}
}

func TestLoadDocumentOutsideAllowedDirectories(t *testing.T) {
	t.Cleanup(func() { security.Configure(nil) })
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.yaml", "x: 1\n")

	l := NewLoader(zerolog.Nop())
	_, err := l.LoadDocument(path)
	if !security.IsSecurityError(err) {
		t.Fatalf("error = %T (%v), want security error", err, err)
	}
}

func TestParseSettingsRejectsUnknownKeys(t *testing.T) {
	_, err := ParseSettings([]byte("security:\n  blcked_modules: [os]\n"))
	if err == nil {
		t.Fatal("unknown keys should be rejected")
	}
}

func TestParseSettingsValidation(t *testing.T) {
	_, err := ParseSettings([]byte("security:\n  blocked_modules: [\"\"]\n"))
	if err == nil {
		t.Fatal("empty module name should fail validation")
	}
}

func TestSettingsApplyReplaceAllowlist(t *testing.T) {
	t.Cleanup(func() { security.Configure(nil) })

	f, err := ParseSettings([]byte(`
security:
  allowed_modules:
    textutil: ["*"]
`))
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if err := f.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := security.ValidateImport("textutil", "shout"); err != nil {
		t.Errorf("textutil should be allowed: %v", err)
	}
	if err := security.ValidateImport("strings", "upper"); err == nil {
		t.Error("replaced allowlist should drop the default modules")
	}
}

func TestSettingsApplyExtendDefaults(t *testing.T) {
	t.Cleanup(func() { security.Configure(nil) })

	f, err := ParseSettings([]byte(`
security:
  extend_defaults: true
  allowed_modules:
    textutil: ["shout"]
  blocked_modules: [telemetry.probe]
`))
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if err := f.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := security.ValidateImport("strings", "upper"); err != nil {
		t.Errorf("defaults should survive extension: %v", err)
	}
	if err := security.ValidateImport("textutil", "shout"); err != nil {
		t.Errorf("extension should be allowed: %v", err)
	}
	if err := security.ValidateImport("textutil", "whisper"); err == nil {
		t.Error("unlisted member should be refused")
	}
	if err := security.ValidateImport("telemetry.probe", "x"); err == nil {
		t.Error("extended block list should refuse the module")
	}
}

func TestSettingsApplyToggles(t *testing.T) {
	t.Cleanup(func() { security.Configure(nil) })

	if err := security.ValidateAttribute("_internal"); err == nil {
		t.Fatal("protected members should be refused by default")
	}

	f, err := ParseSettings([]byte(`
security:
  protected_member_check: false
`))
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if err := f.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := security.ValidateAttribute("_internal"); err != nil {
		t.Errorf("toggle should disable the protected-member check: %v", err)
	}
}

func TestBudgetsOptions(t *testing.T) {
	opts, err := (&Budgets{MaxDepth: 5, MaxDuration: "250ms"}).Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("Options() returned %d options, want 2", len(opts))
	}

	if _, err := (&Budgets{MaxDuration: "fast"}).Options(); err == nil {
		t.Error("unparseable duration should fail")
	}
	if _, err := (&Budgets{MaxDuration: "-1s"}).Options(); err == nil {
		t.Error("negative duration should fail")
	}

	opts, err = (*Budgets)(nil).Options()
	if err != nil || opts != nil {
		t.Errorf("nil budgets = %v, %v", opts, err)
	}
}

func TestFileGroups(t *testing.T) {
	f, err := ParseSettings([]byte(`
variables:
  default:
    name: world
`))
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	groups := f.Groups()
	if groups["default"]["name"] != "world" {
		t.Fatalf("Groups() = %#v", groups)
	}
}

func TestWatcherSignalsChange(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.yaml", "x: 1\n")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	changed := make(chan string, 1)
	w := NewWatcher(zerolog.Nop(), 10*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, []string{path}, func(p string) {
			select {
			case changed <- p:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeDoc(t, dir, "doc.yaml", "x: 2\n")

	select {
	case got := <-changed:
		if filepath.Base(got) != "doc.yaml" {
			t.Errorf("changed path = %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
