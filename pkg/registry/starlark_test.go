package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/structcast/structcast/pkg/runtime"
)

const sampleModule = `
greeting = "hello"
_private = "hidden"
values = [1, 2, 3]
settings = {"retries": 3}

def shout(s):
    return s.upper()

def scale(xs, factor=2):
    return [x * factor for x in xs]
`

func writeModuleFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write module file: %v", err)
	}
	return path
}

func TestLoadModuleFile(t *testing.T) {
	path := writeModuleFile(t, "helpers.star", sampleModule)
	m, err := LoadModuleFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadModuleFile() error = %v", err)
	}
	if m.Name() != "helpers" {
		t.Errorf("Name() = %q, want helpers", m.Name())
	}
	if v, _ := m.Attr("greeting"); v != "hello" {
		t.Errorf("greeting = %v", v)
	}
	if _, ok := m.Attr("_private"); ok {
		t.Error("underscore globals should not be exported")
	}
	values, _ := m.Attr("values")
	seq, ok := values.([]any)
	if !ok || len(seq) != 3 || seq[0] != int64(1) {
		t.Errorf("values = %v", values)
	}
	settings, _ := m.Attr("settings")
	dict, ok := settings.(map[string]any)
	if !ok || dict["retries"] != int64(3) {
		t.Errorf("settings = %v", settings)
	}
}

func TestLoadedFunctionIsCallable(t *testing.T) {
	path := writeModuleFile(t, "helpers.star", sampleModule)
	m, err := LoadModuleFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadModuleFile() error = %v", err)
	}

	v, ok := m.Attr("shout")
	if !ok {
		t.Fatal("shout not exported")
	}
	fn, ok := runtime.AsCallable(v)
	if !ok {
		t.Fatalf("shout is %T, want Callable", v)
	}
	out, err := fn.Call(context.Background(), runtime.SingleArg("abc"))
	if err != nil {
		t.Fatalf("shout() error = %v", err)
	}
	if out != "ABC" {
		t.Errorf("shout(abc) = %v, want ABC", out)
	}

	scaleVal, _ := m.Attr("scale")
	scale, _ := runtime.AsCallable(scaleVal)
	scaled, err := scale.Call(context.Background(),
		runtime.PositionalArgs([]any{int64(1), int64(2)}))
	if err != nil {
		t.Fatalf("scale() error = %v", err)
	}
	seq := scaled.([]any)
	if len(seq) != 2 || seq[0] != int64(2) || seq[1] != int64(4) {
		t.Errorf("scale([1,2]) = %v", seq)
	}
}

func TestLoadModuleFileSyntaxError(t *testing.T) {
	path := writeModuleFile(t, "broken.star", "def f(:\n")
	if _, err := LoadModuleFile(context.Background(), path); err == nil {
		t.Error("LoadModuleFile() should fail on a syntax error")
	}
}

func TestLoadModuleFileMissing(t *testing.T) {
	if _, err := LoadModuleFile(context.Background(), filepath.Join(t.TempDir(), "absent.star")); err == nil {
		t.Error("LoadModuleFile() should fail when the file is absent")
	}
}

func TestLoadModuleFileHonoursContext(t *testing.T) {
	path := writeModuleFile(t, "spin.star", `
def _spin():
    n = 0
    for i in range(1000000000):
        n += i
    return n

total = _spin()
`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := LoadModuleFile(ctx, path); err == nil {
		t.Error("LoadModuleFile() should be interrupted by the context")
	}
}
