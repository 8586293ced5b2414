package registry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/structcast/structcast/pkg/runtime"
)

// BuiltinsModuleName is the module consulted when an address carries no
// module part and no default module is configured.
const BuiltinsModuleName = "builtins"

// Builtin functions are package-level singletons: resolving the same
// builtin symbol twice yields the same value.
var (
	builtinBool      = runtime.NewFunc("bool", callBool)
	builtinInt       = runtime.NewFunc("int", callInt)
	builtinFloat     = runtime.NewFunc("float", callFloat)
	builtinStr       = runtime.NewFunc("str", callStr)
	builtinBytes     = runtime.NewFunc("bytes", callBytes)
	builtinList      = runtime.NewFunc("list", callList)
	builtinDict      = runtime.NewFunc("dict", callDict)
	builtinLen       = runtime.NewFunc("len", callLen)
	builtinAbs       = runtime.NewFunc("abs", callAbs)
	builtinMin       = runtime.NewFunc("min", callMin)
	builtinMax       = runtime.NewFunc("max", callMax)
	builtinSum       = runtime.NewFunc("sum", callSum)
	builtinAll       = runtime.NewFunc("all", callAll)
	builtinAny       = runtime.NewFunc("any", callAny)
	builtinRound     = runtime.NewFunc("round", callRound)
	builtinSorted    = runtime.NewFunc("sorted", callSorted)
	builtinReversed  = runtime.NewFunc("reversed", callReversed)
	builtinRange     = runtime.NewFunc("range", callRange)
	builtinEnumerate = runtime.NewFunc("enumerate", callEnumerate)
	builtinZip       = runtime.NewFunc("zip", callZip)
)

func builtinsModule() *Module {
	return NewModule(BuiltinsModuleName, map[string]any{
		"bool":      builtinBool,
		"int":       builtinInt,
		"float":     builtinFloat,
		"str":       builtinStr,
		"bytes":     builtinBytes,
		"list":      builtinList,
		"dict":      builtinDict,
		"len":       builtinLen,
		"abs":       builtinAbs,
		"min":       builtinMin,
		"max":       builtinMax,
		"sum":       builtinSum,
		"all":       builtinAll,
		"any":       builtinAny,
		"round":     builtinRound,
		"sorted":    builtinSorted,
		"reversed":  builtinReversed,
		"range":     builtinRange,
		"enumerate": builtinEnumerate,
		"zip":       builtinZip,
	})
}

// singleArg extracts the single argument of a one-value builtin, tolerating
// the empty argument list.
func singleArg(name string, args runtime.Arguments) (any, bool, error) {
	switch args.Len() {
	case 0:
		return nil, false, nil
	case 1:
		if v, ok := args.Pos(0); ok {
			return v, true, nil
		}
		return nil, false, fmt.Errorf("%s: takes no keyword arguments", name)
	default:
		return nil, false, fmt.Errorf("%s: takes at most one argument, got %d", name, args.Len())
	}
}

func callBool(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("bool", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return false, nil
	}
	return truthy(v), nil
}

func callInt(_ context.Context, args runtime.Arguments) (any, error) {
	var value any
	var present bool
	if v, ok := args.Pos(0); ok {
		value, present = v, true
	} else if v, ok := args.Named("value"); ok {
		value, present = v, true
	}
	base := int64(10)
	baseGiven := false
	if v, ok := args.Named("base"); ok {
		b, bok := asInt(v)
		if !bok {
			return nil, fmt.Errorf("int: base must be an integer, got %s", runtime.TypeName(v))
		}
		base, baseGiven = b, true
	} else if v, ok := args.Pos(1); ok {
		b, bok := asInt(v)
		if !bok {
			return nil, fmt.Errorf("int: base must be an integer, got %s", runtime.TypeName(v))
		}
		base, baseGiven = b, true
	}
	if !present {
		return int64(0), nil
	}
	switch t := value.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), int(base), 64)
		if err != nil {
			return nil, fmt.Errorf("int: invalid literal with base %d: %q", base, t)
		}
		return n, nil
	case bool:
		if baseGiven {
			return nil, fmt.Errorf("int: base given for non-string value")
		}
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		if baseGiven {
			return nil, fmt.Errorf("int: base given for non-string value")
		}
		if n, ok := asInt(value); ok {
			return n, nil
		}
		if f, _, ok := asNumber(value); ok {
			return int64(math.Trunc(f)), nil
		}
		return nil, fmt.Errorf("int: cannot convert %s", runtime.TypeName(value))
	}
}

func callFloat(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("float", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return float64(0), nil
	}
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("float: invalid literal: %q", t)
		}
		return f, nil
	case bool:
		if t {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		if f, _, ok := asNumber(v); ok {
			return f, nil
		}
		return nil, fmt.Errorf("float: cannot convert %s", runtime.TypeName(v))
	}
}

func callStr(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("str", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func callBytes(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("bytes", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return []byte{}, nil
	}
	switch t := v.(type) {
	case []byte:
		return append([]byte(nil), t...), nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("bytes: cannot convert %s", runtime.TypeName(v))
	}
}

func callList(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("list", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return []any{}, nil
	}
	seq, ok := asSequence(v)
	if !ok {
		return nil, fmt.Errorf("list: %s is not iterable", runtime.TypeName(v))
	}
	return append([]any{}, seq...), nil
}

func callDict(_ context.Context, args runtime.Arguments) (any, error) {
	if kw := args.Keyword(); len(kw) > 0 {
		out := make(map[string]any, len(kw))
		for k, v := range kw {
			out[k] = v
		}
		return out, nil
	}
	v, present, err := singleArg("dict", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return map[string]any{}, nil
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("dict: cannot convert %s", runtime.TypeName(v))
	}
}

func callLen(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("len", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("len: missing argument")
	}
	switch t := v.(type) {
	case string:
		return int64(utf8.RuneCountInString(t)), nil
	case []byte:
		return int64(len(t)), nil
	case []any:
		return int64(len(t)), nil
	case map[string]any:
		return int64(len(t)), nil
	case map[any]any:
		return int64(len(t)), nil
	default:
		return nil, fmt.Errorf("len: %s has no length", runtime.TypeName(v))
	}
}

func callAbs(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("abs", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("abs: missing argument")
	}
	if n, ok := asInt(v); ok {
		if n < 0 {
			return -n, nil
		}
		return n, nil
	}
	if f, _, ok := asNumber(v); ok {
		return math.Abs(f), nil
	}
	return nil, fmt.Errorf("abs: cannot take absolute value of %s", runtime.TypeName(v))
}

func extremum(name string, args runtime.Arguments, keep func(cmp int) bool) (any, error) {
	values := args.Positional()
	if len(values) == 1 {
		seq, ok := asSequence(values[0])
		if !ok {
			return nil, fmt.Errorf("%s: %s is not iterable", name, runtime.TypeName(values[0]))
		}
		values = seq
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty sequence", name)
	}
	best := values[0]
	for _, v := range values[1:] {
		cmp, err := compareValues(v, best)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if keep(cmp) {
			best = v
		}
	}
	return best, nil
}

func callMin(_ context.Context, args runtime.Arguments) (any, error) {
	return extremum("min", args, func(cmp int) bool { return cmp < 0 })
}

func callMax(_ context.Context, args runtime.Arguments) (any, error) {
	return extremum("max", args, func(cmp int) bool { return cmp > 0 })
}

func callSum(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("sum", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("sum: missing argument")
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("sum: %s is not a sequence", runtime.TypeName(v))
	}
	intTotal := int64(0)
	floatTotal := float64(0)
	sawFloat := false
	for _, item := range seq {
		f, isFloat, numOK := asNumber(item)
		if !numOK {
			return nil, fmt.Errorf("sum: %s is not a number", runtime.TypeName(item))
		}
		if isFloat {
			sawFloat = true
		}
		floatTotal += f
		if n, intOK := asInt(item); intOK {
			intTotal += n
		}
	}
	if sawFloat {
		return floatTotal, nil
	}
	return intTotal, nil
}

func callAll(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("all", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("all: missing argument")
	}
	seq, ok := asSequence(v)
	if !ok {
		return nil, fmt.Errorf("all: %s is not iterable", runtime.TypeName(v))
	}
	for _, item := range seq {
		if !truthy(item) {
			return false, nil
		}
	}
	return true, nil
}

func callAny(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("any", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("any: missing argument")
	}
	seq, ok := asSequence(v)
	if !ok {
		return nil, fmt.Errorf("any: %s is not iterable", runtime.TypeName(v))
	}
	for _, item := range seq {
		if truthy(item) {
			return true, nil
		}
	}
	return false, nil
}

func callRound(_ context.Context, args runtime.Arguments) (any, error) {
	v, ok := args.Pos(0)
	if !ok {
		return nil, fmt.Errorf("round: missing argument")
	}
	f, _, numOK := asNumber(v)
	if !numOK {
		return nil, fmt.Errorf("round: cannot round %s", runtime.TypeName(v))
	}
	digits := int64(0)
	if d, present := args.Named("digits"); present {
		n, dok := asInt(d)
		if !dok {
			return nil, fmt.Errorf("round: digits must be an integer")
		}
		digits = n
	} else if d, present := args.Pos(1); present {
		n, dok := asInt(d)
		if !dok {
			return nil, fmt.Errorf("round: digits must be an integer")
		}
		digits = n
	}
	if digits == 0 {
		return int64(math.Round(f)), nil
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(f*scale) / scale, nil
}

func callSorted(_ context.Context, args runtime.Arguments) (any, error) {
	v, ok := args.Pos(0)
	if !ok {
		return nil, fmt.Errorf("sorted: missing argument")
	}
	seq, seqOK := asSequence(v)
	if !seqOK {
		return nil, fmt.Errorf("sorted: %s is not iterable", runtime.TypeName(v))
	}
	out := append([]any{}, seq...)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		cmp, err := compareValues(out[i], out[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, fmt.Errorf("sorted: %w", sortErr)
	}
	if rev, present := args.Named("reverse"); present && truthy(rev) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func callReversed(_ context.Context, args runtime.Arguments) (any, error) {
	v, present, err := singleArg("reversed", args)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("reversed: missing argument")
	}
	seq, ok := asSequence(v)
	if !ok {
		return nil, fmt.Errorf("reversed: %s is not iterable", runtime.TypeName(v))
	}
	out := make([]any, len(seq))
	for i, item := range seq {
		out[len(seq)-1-i] = item
	}
	return out, nil
}

func callRange(_ context.Context, args runtime.Arguments) (any, error) {
	var start, stop, step int64 = 0, 0, 1
	pos := args.Positional()
	grab := func(i int, name string) (int64, error) {
		n, ok := asInt(pos[i])
		if !ok {
			return 0, fmt.Errorf("range: %s must be an integer, got %s", name, runtime.TypeName(pos[i]))
		}
		return n, nil
	}
	var err error
	switch len(pos) {
	case 1:
		if stop, err = grab(0, "stop"); err != nil {
			return nil, err
		}
	case 2:
		if start, err = grab(0, "start"); err != nil {
			return nil, err
		}
		if stop, err = grab(1, "stop"); err != nil {
			return nil, err
		}
	case 3:
		if start, err = grab(0, "start"); err != nil {
			return nil, err
		}
		if stop, err = grab(1, "stop"); err != nil {
			return nil, err
		}
		if step, err = grab(2, "step"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("range: takes 1 to 3 arguments, got %d", len(pos))
	}
	if step == 0 {
		return nil, fmt.Errorf("range: step cannot be zero")
	}
	out := []any{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}

func callEnumerate(_ context.Context, args runtime.Arguments) (any, error) {
	v, ok := args.Pos(0)
	if !ok {
		return nil, fmt.Errorf("enumerate: missing argument")
	}
	seq, seqOK := asSequence(v)
	if !seqOK {
		return nil, fmt.Errorf("enumerate: %s is not iterable", runtime.TypeName(v))
	}
	start := int64(0)
	if s, present := args.Named("start"); present {
		n, sok := asInt(s)
		if !sok {
			return nil, fmt.Errorf("enumerate: start must be an integer")
		}
		start = n
	}
	out := make([]any, len(seq))
	for i, item := range seq {
		out[i] = []any{start + int64(i), item}
	}
	return out, nil
}

func callZip(_ context.Context, args runtime.Arguments) (any, error) {
	pos := args.Positional()
	if len(pos) == 0 {
		return []any{}, nil
	}
	seqs := make([][]any, len(pos))
	shortest := -1
	for i, v := range pos {
		seq, ok := asSequence(v)
		if !ok {
			return nil, fmt.Errorf("zip: argument %d is not iterable", i)
		}
		seqs[i] = seq
		if shortest < 0 || len(seq) < shortest {
			shortest = len(seq)
		}
	}
	out := make([]any, shortest)
	for i := 0; i < shortest; i++ {
		row := make([]any, len(seqs))
		for j, seq := range seqs {
			row[j] = seq[i]
		}
		out[i] = row
	}
	return out, nil
}
