package pattern

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/structcast/structcast/pkg/resolve"
	"github.com/structcast/structcast/pkg/runtime"
	"github.com/structcast/structcast/pkg/security"
	"github.com/structcast/structcast/pkg/telemetry"
)

const (
	// DefaultMaxDepth is the recursion depth budget.
	DefaultMaxDepth = 100

	// DefaultMaxDuration is the wall-clock budget for one invocation.
	DefaultMaxDuration = 30 * time.Second
)

// Option configures an Instantiator.
type Option func(*Instantiator)

// WithMaxDepth overrides the recursion depth budget.
func WithMaxDepth(depth int) Option {
	return func(in *Instantiator) {
		if depth > 0 {
			in.maxDepth = depth
		}
	}
}

// WithMaxDuration overrides the wall-clock budget.
func WithMaxDuration(d time.Duration) Option {
	return func(in *Instantiator) {
		if d > 0 {
			in.maxDuration = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(in *Instantiator) {
		in.logger = logger
	}
}

// WithMetrics attaches a metrics collector. A nil collector is valid and
// records nothing.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(in *Instantiator) {
		in.metrics = m
	}
}

// WithTracer attaches a tracer. A nil tracer is valid and records
// nothing.
func WithTracer(t *telemetry.Tracer) Option {
	return func(in *Instantiator) {
		in.tracer = t
	}
}

// Instantiator turns configuration into runtime objects. It is stateless
// across invocations and safe for concurrent use; each Instantiate call
// carries its own accumulator state and budgets.
type Instantiator struct {
	resolver    *resolve.Resolver
	maxDepth    int
	maxDuration time.Duration
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
}

// New creates an Instantiator over the given resolver.
func New(resolver *resolve.Resolver, opts ...Option) *Instantiator {
	in := &Instantiator{
		resolver:    resolver,
		maxDepth:    DefaultMaxDepth,
		maxDuration: DefaultMaxDuration,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Instantiate builds the runtime value described by cfg. Object patterns
// execute; plain data passes through, with maps and sequences visited
// recursively so nested patterns anywhere in a document resolve in
// place. Either the fully resolved value or an error is returned, never
// a partial result.
func (in *Instantiator) Instantiate(ctx context.Context, cfg any) (any, error) {
	eval := &evaluation{inst: in, start: time.Now()}
	timer := telemetry.NewTimer()

	if in.tracer != nil {
		var span trace.Span
		ctx, span = in.tracer.StartInstantiateSpan(ctx, "")
		defer span.End()
	}

	v, err := eval.instantiate(ctx, cfg, 0)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	in.metrics.RecordInstantiation(outcome, timer.Duration())
	in.metrics.RecordDepth(eval.maxSeen)
	if in.tracer != nil {
		span := trace.SpanFromContext(ctx)
		telemetry.RecordError(span, err)
		if err == nil {
			telemetry.RecordSuccess(span)
		}
	}
	return v, err
}

// evaluation is the per-invocation state: the start time fixed on entry
// and the deepest recursion observed.
type evaluation struct {
	inst    *Instantiator
	start   time.Time
	maxSeen int
}

func (e *evaluation) instantiate(ctx context.Context, cfg any, depth int) (any, error) {
	if err := e.checkBudget(depth); err != nil {
		return nil, err
	}

	// Primitive scalars pass through without further work.
	switch cfg.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, time.Time:
		return cfg, nil
	}

	obj, err := ParseObject(cfg)
	switch {
	case err == nil:
		return e.execute(ctx, obj, depth)
	case !errors.Is(err, ErrNotPattern):
		return nil, err
	}

	// Not a pattern: treat structurally.
	switch v := cfg.(type) {
	case string:
		return v, nil
	case runtime.Callable:
		return v, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			built, err := e.instantiate(ctx, val, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = built
		}
		return out, nil
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, val := range v {
			built, err := e.instantiate(ctx, val, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = built
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			built, err := e.instantiate(ctx, val, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = built
		}
		return out, nil
	default:
		e.inst.logger.Debug().
			Str("type", runtime.TypeName(cfg)).
			Msg("passing through unrecognized configuration value")
		return cfg, nil
	}
}

// execute folds an object pattern and returns its single run.
func (e *evaluation) execute(ctx context.Context, obj *Object, depth int) (any, error) {
	acc := &accumulator{depth: depth + 1, start: e.start}
	if err := e.fold(ctx, obj, acc); err != nil {
		return nil, err
	}
	return acc.runs[0], nil
}

// fold applies the object's children to the accumulator in order and
// enforces the single-run invariant. The budget is checked before every
// node so a pathological chain does no work past its limit.
func (e *evaluation) fold(ctx context.Context, obj *Object, acc *accumulator) error {
	for _, node := range obj.Children {
		if err := e.checkBudget(acc.depth); err != nil {
			return err
		}
		if err := e.apply(ctx, node, acc); err != nil {
			return err
		}
		acc.applied = append(acc.applied, node.Describe())
	}
	if len(acc.runs) != 1 {
		return &SingleObjectError{Count: len(acc.runs), Nodes: describeNodes(obj.Children)}
	}
	return nil
}

func (e *evaluation) apply(ctx context.Context, node Node, acc *accumulator) error {
	switch n := node.(type) {
	case *Address:
		v, err := e.inst.resolver.Resolve(ctx, n.Address, n.File)
		if err != nil {
			return err
		}
		acc.push(v)
		return nil

	case *Attribute:
		if err := security.ValidateAttribute(n.Attribute); err != nil {
			return err
		}
		v, ok := acc.pop()
		if !ok {
			return &NoObjectError{Action: "access an attribute from", Applied: acc.trail()}
		}
		current := v
		walked := ""
		for _, segment := range strings.Split(n.Attribute, ".") {
			if walked == "" {
				walked = segment
			} else {
				walked += "." + segment
			}
			next, ok := runtime.Attr(current, segment)
			if !ok {
				return &AttributeNotFoundError{
					Segment: segment,
					Path:    walked,
					Type:    runtime.TypeName(current),
					Applied: acc.trail(),
				}
			}
			current = next
		}
		acc.push(current)
		return nil

	case *Call:
		fn, args, err := e.popCallable(ctx, acc, n.Args, "call")
		if err != nil {
			return err
		}
		result, err := fn.Call(ctx, args)
		if err != nil {
			return err
		}
		acc.push(result)
		return nil

	case *Bind:
		fn, args, err := e.popCallable(ctx, acc, n.Args, "bind arguments to")
		if err != nil {
			return err
		}
		acc.push(runtime.NewPartial(fn, args))
		return nil

	case *Object:
		child := &accumulator{depth: acc.depth + 1, start: acc.start}
		if err := e.fold(ctx, n, child); err != nil {
			return err
		}
		acc.push(child.runs[0])
		return nil

	default:
		return &ShapeError{Reason: "unknown node kind"}
	}
}

// popCallable pops the last run, requires it to be callable and
// instantiates the argument configuration one level deeper.
func (e *evaluation) popCallable(ctx context.Context, acc *accumulator, argCfg any, action string) (runtime.Callable, runtime.Arguments, error) {
	v, ok := acc.pop()
	if !ok {
		return nil, runtime.NoArgs(), &NoObjectError{Action: action, Applied: acc.trail()}
	}
	fn, ok := runtime.AsCallable(v)
	if !ok {
		return nil, runtime.NoArgs(), &NotCallableError{Type: runtime.TypeName(v), Applied: acc.trail()}
	}
	built, err := e.instantiate(ctx, argCfg, acc.depth+1)
	if err != nil {
		return nil, runtime.NoArgs(), err
	}
	return fn, runtime.ArgsFromValue(built), nil
}

func (e *evaluation) checkBudget(depth int) error {
	if depth > e.maxSeen {
		e.maxSeen = depth
	}
	if depth >= e.inst.maxDepth {
		e.inst.metrics.RecordBudgetAbort("depth")
		return &DepthError{Limit: e.inst.maxDepth}
	}
	if time.Since(e.start) > e.inst.maxDuration {
		e.inst.metrics.RecordBudgetAbort("time")
		return &TimeError{Limit: e.inst.maxDuration}
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultInst *Instantiator
)

// Instantiate builds cfg with a shared default instantiator over the
// default resolver and standard modules.
func Instantiate(ctx context.Context, cfg any) (any, error) {
	defaultOnce.Do(func() {
		defaultInst = New(resolve.Default())
	})
	return defaultInst.Instantiate(ctx, cfg)
}
