package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/structcast/structcast/pkg/runtime"
)

// standardModules builds the modules available in the default registry.
// Each member is a singleton so repeated resolution of the same address
// yields the same value.
func standardModules() []*Module {
	return []*Module{
		builtinsModule(),
		stringsModule(),
		mathModule(),
		base64Module(),
		jsonModule(),
		uuidModule(),
		structcastModule(),
	}
}

func stringArg(name string, args runtime.Arguments, i int) (string, error) {
	v, ok := args.Pos(i)
	if !ok {
		return "", fmt.Errorf("%s: missing argument %d", name, i)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", name, i, runtime.TypeName(v))
	}
	return s, nil
}

func stringFunc1(name string, fn func(string) string) *runtime.Func {
	return runtime.NewFunc(name, func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	})
}

func stringFunc2(name string, fn func(string, string) any) *runtime.Func {
	return runtime.NewFunc(name, func(_ context.Context, args runtime.Arguments) (any, error) {
		a, err := stringArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		b, err := stringArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	})
}

var (
	stringsUpper      = stringFunc1("upper", strings.ToUpper)
	stringsLower      = stringFunc1("lower", strings.ToLower)
	stringsTitle      = stringFunc1("title", titleCase)
	stringsStrip      = stringFunc1("strip", strings.TrimSpace)
	stringsContains   = stringFunc2("contains", func(s, sub string) any { return strings.Contains(s, sub) })
	stringsStartswith = stringFunc2("startswith", func(s, p string) any { return strings.HasPrefix(s, p) })
	stringsEndswith   = stringFunc2("endswith", func(s, p string) any { return strings.HasSuffix(s, p) })

	stringsSplit = runtime.NewFunc("split", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("split", args, 0)
		if err != nil {
			return nil, err
		}
		sep := ""
		if v, ok := args.Pos(1); ok {
			t, sok := v.(string)
			if !sok {
				return nil, fmt.Errorf("split: separator must be a string, got %s", runtime.TypeName(v))
			}
			sep = t
		}
		var parts []string
		if sep == "" {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, sep)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	})

	stringsJoin = runtime.NewFunc("join", func(_ context.Context, args runtime.Arguments) (any, error) {
		sep, err := stringArg("join", args, 0)
		if err != nil {
			return nil, err
		}
		v, ok := args.Pos(1)
		if !ok {
			return nil, fmt.Errorf("join: missing sequence argument")
		}
		seq, sok := v.([]any)
		if !sok {
			return nil, fmt.Errorf("join: argument 1 must be a sequence, got %s", runtime.TypeName(v))
		}
		parts := make([]string, len(seq))
		for i, item := range seq {
			s, iok := item.(string)
			if !iok {
				return nil, fmt.Errorf("join: element %d is not a string", i)
			}
			parts[i] = s
		}
		return strings.Join(parts, sep), nil
	})

	stringsReplace = runtime.NewFunc("replace", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("replace", args, 0)
		if err != nil {
			return nil, err
		}
		old, err := stringArg("replace", args, 1)
		if err != nil {
			return nil, err
		}
		new_, err := stringArg("replace", args, 2)
		if err != nil {
			return nil, err
		}
		return strings.ReplaceAll(s, old, new_), nil
	})

	stringsFormat = runtime.NewFunc("format", func(_ context.Context, args runtime.Arguments) (any, error) {
		tmpl, err := stringArg("format", args, 0)
		if err != nil {
			return nil, err
		}
		out := tmpl
		for k, v := range args.Keyword() {
			out = strings.ReplaceAll(out, "{"+k+"}", fmt.Sprintf("%v", v))
		}
		for i, v := range args.Positional()[1:] {
			out = strings.ReplaceAll(out, fmt.Sprintf("{%d}", i), fmt.Sprintf("%v", v))
		}
		return out, nil
	})
)

func titleCase(s string) string {
	var b strings.Builder
	startWord := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			startWord = true
			b.WriteRune(r)
		case startWord:
			b.WriteString(strings.ToUpper(string(r)))
			startWord = false
		default:
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

func stringsModule() *Module {
	return NewModule("strings", map[string]any{
		"upper":      stringsUpper,
		"lower":      stringsLower,
		"title":      stringsTitle,
		"strip":      stringsStrip,
		"split":      stringsSplit,
		"join":       stringsJoin,
		"replace":    stringsReplace,
		"contains":   stringsContains,
		"startswith": stringsStartswith,
		"endswith":   stringsEndswith,
		"format":     stringsFormat,
	})
}

func mathFunc1(name string, fn func(float64) float64) *runtime.Func {
	return runtime.NewFunc(name, func(_ context.Context, args runtime.Arguments) (any, error) {
		v, ok := args.Pos(0)
		if !ok {
			return nil, fmt.Errorf("%s: missing argument", name)
		}
		f, _, numOK := asNumber(v)
		if !numOK {
			return nil, fmt.Errorf("%s: argument must be a number, got %s", name, runtime.TypeName(v))
		}
		return fn(f), nil
	})
}

var (
	mathSqrt  = mathFunc1("sqrt", math.Sqrt)
	mathFloor = mathFunc1("floor", math.Floor)
	mathCeil  = mathFunc1("ceil", math.Ceil)
	mathLog   = mathFunc1("log", math.Log)
	mathExp   = mathFunc1("exp", math.Exp)
	mathSin   = mathFunc1("sin", math.Sin)
	mathCos   = mathFunc1("cos", math.Cos)

	mathPow = runtime.NewFunc("pow", func(_ context.Context, args runtime.Arguments) (any, error) {
		x, ok := args.Pos(0)
		if !ok {
			return nil, fmt.Errorf("pow: missing base")
		}
		y, ok := args.Pos(1)
		if !ok {
			return nil, fmt.Errorf("pow: missing exponent")
		}
		xf, _, xok := asNumber(x)
		yf, _, yok := asNumber(y)
		if !xok || !yok {
			return nil, fmt.Errorf("pow: arguments must be numbers")
		}
		return math.Pow(xf, yf), nil
	})
)

func mathModule() *Module {
	return NewModule("math", map[string]any{
		"pi":    math.Pi,
		"e":     math.E,
		"inf":   math.Inf(1),
		"sqrt":  mathSqrt,
		"floor": mathFloor,
		"ceil":  mathCeil,
		"log":   mathLog,
		"exp":   mathExp,
		"sin":   mathSin,
		"cos":   mathCos,
		"pow":   mathPow,
	})
}

func bytesOrStringArg(name string, args runtime.Arguments) ([]byte, error) {
	v, ok := args.Pos(0)
	if !ok {
		return nil, fmt.Errorf("%s: missing argument", name)
	}
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return nil, fmt.Errorf("%s: argument must be a string or bytes, got %s", name, runtime.TypeName(v))
	}
}

var (
	base64Encode = runtime.NewFunc("encode", func(_ context.Context, args runtime.Arguments) (any, error) {
		data, err := bytesOrStringArg("encode", args)
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	})

	base64Decode = runtime.NewFunc("decode", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("decode", args, 0)
		if err != nil {
			return nil, err
		}
		out, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return string(out), nil
	})
)

func base64Module() *Module {
	return NewModule("base64", map[string]any{
		"encode": base64Encode,
		"decode": base64Decode,
	})
}

var (
	jsonDumps = runtime.NewFunc("dumps", func(_ context.Context, args runtime.Arguments) (any, error) {
		v, ok := args.Pos(0)
		if !ok {
			return nil, fmt.Errorf("dumps: missing argument")
		}
		var out []byte
		var err error
		if indent, present := args.Named("indent"); present && truthy(indent) {
			out, err = json.MarshalIndent(v, "", "  ")
		} else {
			out, err = json.Marshal(v)
		}
		if err != nil {
			return nil, fmt.Errorf("dumps: %w", err)
		}
		return string(out), nil
	})

	jsonLoads = runtime.NewFunc("loads", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("loads", args, 0)
		if err != nil {
			return nil, err
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("loads: %w", err)
		}
		return out, nil
	})
)

func jsonModule() *Module {
	return NewModule("json", map[string]any{
		"dumps": jsonDumps,
		"loads": jsonLoads,
	})
}

var (
	uuidNew = runtime.NewFunc("uuid4", func(_ context.Context, args runtime.Arguments) (any, error) {
		if args.Len() != 0 {
			return nil, fmt.Errorf("uuid4: takes no arguments")
		}
		return uuid.NewString(), nil
	})

	uuidParse = runtime.NewFunc("parse", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("parse", args, 0)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		return id.String(), nil
	})

	uuidNamespaced = runtime.NewFunc("uuid5", func(_ context.Context, args runtime.Arguments) (any, error) {
		ns, err := stringArg("uuid5", args, 0)
		if err != nil {
			return nil, err
		}
		name, err := stringArg("uuid5", args, 1)
		if err != nil {
			return nil, err
		}
		space, err := uuid.Parse(ns)
		if err != nil {
			return nil, fmt.Errorf("uuid5: invalid namespace: %w", err)
		}
		return uuid.NewSHA1(space, []byte(name)).String(), nil
	})
)

func uuidModule() *Module {
	return NewModule("uuid", map[string]any{
		"uuid4":         uuidNew,
		"uuid5":         uuidNamespaced,
		"parse":         uuidParse,
		"namespace_dns": uuid.NameSpaceDNS.String(),
		"namespace_url": uuid.NameSpaceURL.String(),
	})
}

var (
	structcastLoadYAML = runtime.NewFunc("load_yaml", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("load_yaml", args, 0)
		if err != nil {
			return nil, err
		}
		var out any
		if err := yaml.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("load_yaml: %w", err)
		}
		return normalizeYAML(out), nil
	})

	structcastLoadJSON = runtime.NewFunc("load_json", func(_ context.Context, args runtime.Arguments) (any, error) {
		s, err := stringArg("load_json", args, 0)
		if err != nil {
			return nil, err
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("load_json: %w", err)
		}
		return out, nil
	})

	structcastIdentity = runtime.NewFunc("identity", func(_ context.Context, args runtime.Arguments) (any, error) {
		v, present, err := singleArg("identity", args)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		return v, nil
	})
)

// structcastModule exposes helpers the engine itself provides to
// configurations, mostly used at the head of specifier pipes.
func structcastModule() *Module {
	return NewModule("structcast", map[string]any{
		"load_yaml": structcastLoadYAML,
		"load_json": structcastLoadJSON,
		"identity":  structcastIdentity,
	})
}

// normalizeYAML rewrites map[any]any trees produced by YAML decoding into
// map[string]any so downstream attribute access works uniformly.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}
