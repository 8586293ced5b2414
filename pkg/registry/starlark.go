package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/structcast/structcast/pkg/runtime"
)

// maxModuleSteps caps the Starlark computation budget for loading one
// module file. Module files declare values and helper functions; anything
// hitting this cap is doing work that belongs in a resolved callable.
const maxModuleSteps = 1 << 22

// LoadModuleFile executes a Starlark module file in an isolated thread and
// returns its exported globals as a Module named after the file. Globals
// prefixed with an underscore stay private to the file. Functions defined
// in the file are wrapped so they can be applied like native callables.
func LoadModuleFile(ctx context.Context, path string) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	thread := &starlark.Thread{
		Name: "structcast:" + name,
		Print: func(_ *starlark.Thread, msg string) {
			log.Debug().Str("module", name).Str("print", msg).Msg("module file print suppressed")
		},
	}
	thread.SetMaxExecutionSteps(maxModuleSteps)

	// Cancel the thread if the caller's context expires while the file
	// executes. Starlark has no context plumbing of its own.
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("context cancelled")
	})
	defer stop()

	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
	}

	globals, err := starlark.ExecFile(thread, path, src, predeclared)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("module file %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("module file %s: %w", path, err)
	}

	members := make(map[string]any, len(globals))
	for key, val := range globals {
		if strings.HasPrefix(key, "_") {
			continue
		}
		goVal, err := fromStarlarkValue(name, key, val)
		if err != nil {
			return nil, err
		}
		members[key] = goVal
	}

	log.Debug().Str("module", name).Str("path", path).Int("members", len(members)).
		Msg("loaded module file")
	return NewModule(name, members), nil
}

// starlarkFunc adapts a function defined in a module file to the Callable
// interface. Each call runs on a fresh isolated thread with its own step
// budget.
type starlarkFunc struct {
	module string
	name   string
	fn     starlark.Callable
}

func (f *starlarkFunc) Name() string { return f.module + "." + f.name }

func (f *starlarkFunc) Call(ctx context.Context, args runtime.Arguments) (any, error) {
	thread := &starlark.Thread{
		Name:  "structcast:" + f.Name(),
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(maxModuleSteps)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("context cancelled")
	})
	defer stop()

	positional := make(starlark.Tuple, 0, len(args.Positional()))
	for _, v := range args.Positional() {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		positional = append(positional, sv)
	}
	kwargs := make([]starlark.Tuple, 0, len(args.Keyword()))
	for k, v := range args.Keyword() {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(k), sv})
	}

	out, err := starlark.Call(thread, f.fn, positional, kwargs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	return fromStarlarkValue(f.module, f.name, out)
}

func (f *starlarkFunc) String() string { return fmt.Sprintf("<function %s>", f.Name()) }

// toStarlarkValue converts a Go value into its Starlark form.
func toStarlarkValue(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []byte:
		return starlark.Bytes(val), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %s", runtime.TypeName(v))
	}
}

// fromStarlarkValue converts a Starlark value into its Go form. Functions
// become Callables bound to the module they were defined in.
func fromStarlarkValue(module, symbol string, v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("%s.%s: integer too large", module, symbol)
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Bytes:
		return []byte(val), nil
	case *starlark.List:
		list := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(module, symbol, val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]any, len(val))
		for i, item := range val {
			goVal, err := fromStarlarkValue(module, symbol, item)
			if err != nil {
				return nil, err
			}
			list[i] = goVal
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("%s.%s: dict key must be a string", module, symbol)
			}
			goVal, err := fromStarlarkValue(module, symbol, item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = goVal
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			goVal, err := fromStarlarkValue(module, symbol, attr)
			if err != nil {
				return nil, err
			}
			dict[name] = goVal
		}
		return dict, nil
	case starlark.Callable:
		return &starlarkFunc{module: module, name: symbol, fn: val}, nil
	default:
		return nil, fmt.Errorf("%s.%s: unsupported value type %s", module, symbol, v.Type())
	}
}

// loadTimeout bounds how long one module file may execute.
const loadTimeout = 10 * time.Second

// LoadModuleFileDefault loads a module file with the default time bound.
func LoadModuleFileDefault(path string) (*Module, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	return LoadModuleFile(ctx, path)
}
