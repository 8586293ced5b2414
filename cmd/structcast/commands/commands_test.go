package commands

import (
	"testing"

	"github.com/structcast/structcast/pkg/security"
)

func TestCountPatterns(t *testing.T) {
	doc := map[string]any{
		"plain": "value",
		"answer": map[string]any{
			"_obj_": []any{
				map[string]any{"_addr_": "int"},
				map[string]any{"_call_": []any{"42"}},
			},
		},
		"jobs": []any{
			[]any{"_obj_", []any{"_addr_", "builtins.list"}, "_call_"},
		},
	}
	count, err := countPatterns(doc)
	if err != nil {
		t.Fatalf("countPatterns() error = %v", err)
	}
	if count != 2 {
		t.Errorf("countPatterns() = %d, want 2", count)
	}
}

func TestCountPatternsRejectsMalformedShorthand(t *testing.T) {
	doc := []any{[]any{"_addr_"}}
	if _, err := countPatterns(doc); err == nil {
		t.Fatal("malformed shorthand should fail validation")
	}
}

func TestSnapshotPolicy(t *testing.T) {
	s := security.Default()
	p := snapshotPolicy(s)

	if len(p.BlockedModules) == 0 {
		t.Error("default posture should block modules")
	}
	if _, ok := p.AllowedModules["strings"]; !ok {
		t.Error("strings should be allowlisted by default")
	}
	if !p.WorkingDirCheck {
		t.Error("working dir check should default on")
	}
	for i := 1; i < len(p.DangerousAttributes); i++ {
		if p.DangerousAttributes[i-1] > p.DangerousAttributes[i] {
			t.Fatal("dangerous attributes should be sorted")
		}
	}
}
