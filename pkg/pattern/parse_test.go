package pattern

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseObjectForms(t *testing.T) {
	keyed := map[string]any{"_obj_": []any{
		map[string]any{"_addr_": "builtins.int"},
	}}
	shorthand := []any{"_obj_", []any{"_addr_", "builtins.int"}}

	a, err := ParseObject(keyed)
	if err != nil {
		t.Fatalf("keyed form: %v", err)
	}
	b, err := ParseObject(shorthand)
	if err != nil {
		t.Fatalf("shorthand form: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("keyed and shorthand forms parse differently: %#v vs %#v", a, b)
	}
}

func TestParseNodeForms(t *testing.T) {
	tests := []struct {
		name string
		cfg  any
		want Node
	}{
		{
			"keyed address",
			map[string]any{"_addr_": "math.sqrt"},
			&Address{Address: "math.sqrt"},
		},
		{
			"keyed address with file",
			map[string]any{"_addr_": "shout", "_file_": "helpers.star"},
			&Address{Address: "shout", File: "helpers.star"},
		},
		{
			"shorthand address",
			[]any{"_addr_", "math.sqrt"},
			&Address{Address: "math.sqrt"},
		},
		{
			"shorthand address with file",
			[]any{"_addr_", "shout", "helpers.star"},
			&Address{Address: "shout", File: "helpers.star"},
		},
		{
			"keyed attribute",
			map[string]any{"_attr_": "value"},
			&Attribute{Attribute: "value"},
		},
		{
			"shorthand attribute",
			[]any{"_attr_", "value"},
			&Attribute{Attribute: "value"},
		},
		{
			"bare call",
			"_call_",
			&Call{},
		},
		{
			"keyed call with mapping args",
			map[string]any{"_call_": map[string]any{"base": 16}},
			&Call{Args: map[string]any{"base": 16}},
		},
		{
			"shorthand call with positional args",
			[]any{"_call_", "a", "b"},
			&Call{Args: []any{"a", "b"}},
		},
		{
			"shorthand bind",
			[]any{"_bind_", 1, 2},
			&Bind{Args: []any{1, 2}},
		},
		{
			"keyed bind with scalar",
			map[string]any{"_bind_": "x"},
			&Bind{Args: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNode(tt.cfg)
			if err != nil {
				t.Fatalf("parseNode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseNode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseNotPattern(t *testing.T) {
	tests := []struct {
		name string
		cfg  any
	}{
		{"plain scalar", 42},
		{"plain string", "hello"},
		{"plain map", map[string]any{"name": "x"}},
		{"plain sequence", []any{1, 2, 3}},
		{"address with extra keys", map[string]any{"_addr_": "x", "name": "y"}},
		{"empty attribute", map[string]any{"_attr_": ""}},
		{"empty keyed object", map[string]any{"_obj_": []any{}}},
		{"empty shorthand object", []any{"_obj_"}},
		{"non-string map key", map[any]any{1: "x"}},
		{"object with plain-data child", []any{"_obj_", map[string]any{"plain": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseNode(tt.cfg)
			if !errors.Is(err, ErrNotPattern) {
				t.Errorf("expected ErrNotPattern, got %v", err)
			}
		})
	}
}

func TestParseShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  any
	}{
		{"address shorthand missing address", []any{"_addr_"}},
		{"address shorthand non-string", []any{"_addr_", 5}},
		{"address shorthand too long", []any{"_addr_", "a", "b", "c"}},
		{"attribute shorthand non-string", []any{"_attr_", 5}},
		{"nested shape error inside object", []any{"_obj_", []any{"_addr_"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseNode(tt.cfg)
			var shape *ShapeError
			if !errors.As(err, &shape) {
				t.Errorf("expected ShapeError, got %v", err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  any
	}{
		{"address", []any{"_addr_", "math.sqrt"}},
		{"address with file", []any{"_addr_", "shout", "helpers.star"}},
		{"attribute", map[string]any{"_attr_": "value"}},
		{"bare call", "_call_"},
		{"call keyword args", map[string]any{"_call_": map[string]any{"base": 16}}},
		{"call positional args", []any{"_call_", "a", "b"}},
		{"bind positional", []any{"_bind_", 1}},
		{"bind keyword", map[string]any{"_bind_": map[string]any{"k": "v"}}},
		{"bind scalar", map[string]any{"_bind_": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := parseNode(tt.cfg)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			again, err := parseNode(node.Encode())
			if err != nil {
				t.Fatalf("reparse encoded form: %v", err)
			}
			if !reflect.DeepEqual(node, again) {
				t.Errorf("round trip changed node: %#v vs %#v", node, again)
			}
		})
	}
}

func TestEncodeCanonicalForms(t *testing.T) {
	obj := &Object{Children: []Node{
		&Address{Address: "builtins.int"},
		&Call{Args: map[string]any{}},
	}}
	got := obj.Encode()
	want := []any{"_obj_", []any{"_addr_", "builtins.int"}, "_call_"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %#v, want %#v", got, want)
	}

	empty := &Call{Args: []any{}}
	if enc := empty.Encode(); enc != "_call_" {
		t.Errorf("empty call encodes to %#v, want bare tag", enc)
	}
}
