package runtime

import (
	"context"
	"fmt"
)

// Callable is the capability applied by call and bind nodes. Implementers
// decide how to interpret the argument union; native functions typically
// unpack a fixed arity, foreign (Starlark) functions forward both shapes.
type Callable interface {
	// Name returns the symbol name used in diagnostics.
	Name() string

	// Call applies the callable to the given arguments.
	Call(ctx context.Context, args Arguments) (any, error)
}

// Func adapts a native Go function to the Callable interface. Funcs are
// registered once and shared: resolving the same symbol twice yields the
// same *Func pointer.
type Func struct {
	name string
	fn   func(ctx context.Context, args Arguments) (any, error)
}

// NewFunc wraps a native function as a Callable.
func NewFunc(name string, fn func(ctx context.Context, args Arguments) (any, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Callable.
func (f *Func) Name() string { return f.name }

// Call implements Callable.
func (f *Func) Call(ctx context.Context, args Arguments) (any, error) {
	return f.fn(ctx, args)
}

// String returns the diagnostic form of the function.
func (f *Func) String() string { return fmt.Sprintf("<function %s>", f.name) }

// Partial is a callable with arguments already bound. Calling it merges
// the bound arguments with the call-site arguments (bound positionals
// first, call-site keywords overriding bound ones) and applies the
// underlying callable.
type Partial struct {
	fn    Callable
	bound Arguments
}

// NewPartial binds arguments to a callable without invoking it.
func NewPartial(fn Callable, bound Arguments) *Partial {
	return &Partial{fn: fn, bound: bound}
}

// Name implements Callable.
func (p *Partial) Name() string { return p.fn.Name() }

// Call implements Callable.
func (p *Partial) Call(ctx context.Context, args Arguments) (any, error) {
	return p.fn.Call(ctx, p.bound.merge(args))
}

// Bound returns the bound arguments.
func (p *Partial) Bound() Arguments { return p.bound }

// String returns the diagnostic form of the partial.
func (p *Partial) String() string { return fmt.Sprintf("<partial %s>", p.fn.Name()) }

// AsCallable reports whether a value can be applied, unwrapping the
// Callable interface.
func AsCallable(v any) (Callable, bool) {
	c, ok := v.(Callable)
	return c, ok
}
