package registry

import (
	"context"
	"testing"

	"github.com/structcast/structcast/pkg/runtime"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	m := NewModule("demo", map[string]any{"answer": int64(42)})
	if err := r.Register(m); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Lookup("demo")
	if !ok {
		t.Fatal("Lookup(demo) not found")
	}
	if v, _ := got.Attr("answer"); v != int64(42) {
		t.Errorf("Attr(answer) = %v, want 42", v)
	}

	if err := r.Register(NewModule("demo", nil)); err == nil {
		t.Error("Register() duplicate name should fail")
	}

	if !r.Unregister("demo") {
		t.Error("Unregister(demo) = false, want true")
	}
	if r.Unregister("demo") {
		t.Error("Unregister(demo) twice = true, want false")
	}
}

func TestModuleMemberMapIsCopied(t *testing.T) {
	members := map[string]any{"k": "v"}
	m := NewModule("demo", members)
	members["k"] = "mutated"
	if v, _ := m.Attr("k"); v != "v" {
		t.Errorf("Attr(k) = %v, want original value", v)
	}
}

func TestDefaultRegistryModules(t *testing.T) {
	r := Default()
	for _, name := range []string{"builtins", "strings", "math", "base64", "json", "uuid", "structcast"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("default registry missing module %q", name)
		}
	}
}

func TestDefaultRegistryIsReferenceStable(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() returned distinct registries")
	}
	a, _ := Default().Lookup("builtins")
	first, _ := a.Attr("int")
	second, _ := a.Attr("int")
	if first != second {
		t.Error("builtins.int resolved to distinct values")
	}
}

func callMember(t *testing.T, module, symbol string, args runtime.Arguments) any {
	t.Helper()
	m, ok := Default().Lookup(module)
	if !ok {
		t.Fatalf("module %q not found", module)
	}
	v, ok := m.Attr(symbol)
	if !ok {
		t.Fatalf("%s.%s not found", module, symbol)
	}
	fn, ok := runtime.AsCallable(v)
	if !ok {
		t.Fatalf("%s.%s is not callable", module, symbol)
	}
	out, err := fn.Call(context.Background(), args)
	if err != nil {
		t.Fatalf("%s.%s error = %v", module, symbol, err)
	}
	return out
}

func TestBuiltinInt(t *testing.T) {
	tests := []struct {
		name string
		args runtime.Arguments
		want int64
	}{
		{"empty", runtime.NoArgs(), 0},
		{"string", runtime.SingleArg("17"), 17},
		{"float truncates", runtime.SingleArg(3.9), 3},
		{"bool", runtime.SingleArg(true), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := callMember(t, "builtins", "int", tt.args)
			if got != tt.want {
				t.Errorf("int(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestBuiltinIntWithBoundBase(t *testing.T) {
	m, _ := Default().Lookup("builtins")
	v, _ := m.Attr("int")
	fn, _ := runtime.AsCallable(v)
	hex := runtime.NewPartial(fn, runtime.KeywordArgs(map[string]any{"base": int64(16)}))
	got, err := hex.Call(context.Background(), runtime.SingleArg("FF"))
	if err != nil {
		t.Fatalf("bound int(FF) error = %v", err)
	}
	if got != int64(255) {
		t.Errorf("bound int(FF) = %v, want 255", got)
	}
}

func TestBuiltinIntRejectsBadLiteral(t *testing.T) {
	m, _ := Default().Lookup("builtins")
	v, _ := m.Attr("int")
	fn, _ := runtime.AsCallable(v)
	if _, err := fn.Call(context.Background(), runtime.SingleArg("not a number")); err == nil {
		t.Error("int(\"not a number\") should fail")
	}
}

func TestBuiltinListEmpty(t *testing.T) {
	got := callMember(t, "builtins", "list", runtime.NoArgs())
	seq, ok := got.([]any)
	if !ok {
		t.Fatalf("list() = %T, want []any", got)
	}
	if seq == nil || len(seq) != 0 {
		t.Errorf("list() = %v, want empty non-nil sequence", seq)
	}
}

func TestBuiltinCollections(t *testing.T) {
	sorted := callMember(t, "builtins", "sorted", runtime.SingleArg([]any{int64(3), int64(1), int64(2)}))
	want := []any{int64(1), int64(2), int64(3)}
	got, ok := sorted.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("sorted() = %v", sorted)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sorted()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	sum := callMember(t, "builtins", "sum", runtime.SingleArg([]any{int64(1), int64(2), int64(3)}))
	if sum != int64(6) {
		t.Errorf("sum() = %v, want 6", sum)
	}

	length := callMember(t, "builtins", "len", runtime.SingleArg("héllo"))
	if length != int64(5) {
		t.Errorf("len(héllo) = %v, want 5 runes", length)
	}

	rng := callMember(t, "builtins", "range", runtime.PositionalArgs(int64(1), int64(7), int64(2)))
	rgot := rng.([]any)
	if len(rgot) != 3 || rgot[0] != int64(1) || rgot[2] != int64(5) {
		t.Errorf("range(1,7,2) = %v", rgot)
	}
}

func TestStringsModule(t *testing.T) {
	if got := callMember(t, "strings", "upper", runtime.SingleArg("abc")); got != "ABC" {
		t.Errorf("upper(abc) = %v", got)
	}
	if got := callMember(t, "strings", "replace", runtime.PositionalArgs("a-b-c", "-", ".")); got != "a.b.c" {
		t.Errorf("replace() = %v", got)
	}
	split := callMember(t, "strings", "split", runtime.PositionalArgs("a,b", ","))
	parts := split.([]any)
	if len(parts) != 2 || parts[0] != "a" || parts[1] != "b" {
		t.Errorf("split() = %v", parts)
	}
	joined := callMember(t, "strings", "join", runtime.PositionalArgs("-", []any{"x", "y"}))
	if joined != "x-y" {
		t.Errorf("join() = %v", joined)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	enc := callMember(t, "base64", "encode", runtime.SingleArg("hello"))
	if enc != "aGVsbG8=" {
		t.Fatalf("encode(hello) = %v", enc)
	}
	dec := callMember(t, "base64", "decode", runtime.SingleArg(enc))
	if dec != "hello" {
		t.Errorf("decode() = %v", dec)
	}
}

func TestJSONModule(t *testing.T) {
	out := callMember(t, "json", "loads", runtime.SingleArg(`{"a":1}`))
	m, ok := out.(map[string]any)
	if !ok || m["a"] != float64(1) {
		t.Errorf("loads() = %v", out)
	}
	s := callMember(t, "json", "dumps", runtime.SingleArg(map[string]any{"a": int64(1)}))
	if s != `{"a":1}` {
		t.Errorf("dumps() = %v", s)
	}
}

func TestUUIDModule(t *testing.T) {
	id := callMember(t, "uuid", "uuid4", runtime.NoArgs()).(string)
	parsed := callMember(t, "uuid", "parse", runtime.SingleArg(id))
	if parsed != id {
		t.Errorf("parse(uuid4()) = %v, want %v", parsed, id)
	}
}

func TestStructcastModule(t *testing.T) {
	out := callMember(t, "structcast", "load_yaml", runtime.SingleArg("a: 1\nb:\n  c: x\n"))
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("load_yaml() = %T", out)
	}
	inner, ok := m["b"].(map[string]any)
	if !ok || inner["c"] != "x" {
		t.Errorf("load_yaml nested = %v", m["b"])
	}
}
