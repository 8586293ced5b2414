package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/structcast/structcast/pkg/audit"
	"github.com/structcast/structcast/pkg/config"
	"github.com/structcast/structcast/pkg/pattern"
	"github.com/structcast/structcast/pkg/policy"
	"github.com/structcast/structcast/pkg/registry"
	"github.com/structcast/structcast/pkg/resolve"
	"github.com/structcast/structcast/pkg/runtime"
	"github.com/structcast/structcast/pkg/telemetry"
	"github.com/structcast/structcast/pkg/template"
)

// engineFlags are the knobs shared by render and watch.
type engineFlags struct {
	policyDirs    []string
	auditDB       string
	maxDepth      int
	maxDuration   string
	metricsListen string
	otlpEndpoint  string
}

// newEngine assembles the instantiation stack from the flags. The
// returned cleanup closes the audit store when one was opened.
func newEngine(ctx context.Context, flags engineFlags) (*pattern.Instantiator, func(), error) {
	cleanup := func() {}

	resolverOpts := []resolve.Option{resolve.WithLogger(log.Logger)}

	if len(flags.policyDirs) > 0 {
		engine, err := policy.NewEngine(log.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating policy engine: %w", err)
		}
		if err := engine.LoadRules(ctx, flags.policyDirs); err != nil {
			return nil, nil, fmt.Errorf("loading policies: %w", err)
		}
		resolverOpts = append(resolverOpts, resolve.WithPolicy(engine))
	}

	if flags.auditDB != "" {
		store, err := audit.NewStore(audit.Config{Path: flags.auditDB})
		if err != nil {
			return nil, nil, fmt.Errorf("opening audit store: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("initializing audit store: %w", err)
		}
		cleanup = func() { _ = store.Close() }
		resolverOpts = append(resolverOpts, resolve.WithRecorder(store))
	}

	patternOpts := []pattern.Option{pattern.WithLogger(log.Logger)}

	if flags.metricsListen != "" {
		metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
			Enabled:       true,
			ListenAddress: flags.metricsListen,
			Path:          "/metrics",
			Namespace:     "structcast",
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("creating metrics: %w", err)
		}
		if err := metrics.StartMetricsServer(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("starting metrics server: %w", err)
		}
		patternOpts = append(patternOpts, pattern.WithMetrics(metrics))
	}

	if flags.otlpEndpoint != "" {
		tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
			Enabled:      true,
			Exporter:     "otlp",
			Endpoint:     flags.otlpEndpoint,
			SamplingRate: 1.0,
			Insecure:     true,
		}, "structcast", "", "")
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("creating tracer: %w", err)
		}
		prev := cleanup
		cleanup = func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = tracer.Shutdown(shutdownCtx)
			prev()
		}
		patternOpts = append(patternOpts, pattern.WithTracer(tracer))
	}

	budgets := &config.Budgets{MaxDepth: flags.maxDepth, MaxDuration: flags.maxDuration}
	if settings != nil && settings.Budgets != nil {
		if flags.maxDepth == 0 {
			budgets.MaxDepth = settings.Budgets.MaxDepth
		}
		if flags.maxDuration == "" {
			budgets.MaxDuration = settings.Budgets.MaxDuration
		}
	}
	budgetOpts, err := budgets.Options()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	patternOpts = append(patternOpts, budgetOpts...)

	resolver := resolve.New(registry.Default(), resolverOpts...)
	return pattern.New(resolver, patternOpts...), cleanup, nil
}

// renderDocument loads a document, expands its templates and
// instantiates the result.
func renderDocument(ctx context.Context, inst *pattern.Instantiator, path string) (any, error) {
	loader := config.NewLoader(log.Logger)
	doc, err := loader.LoadDocument(path)
	if err != nil {
		return nil, err
	}

	extendOpts := []template.Option{
		template.WithLogger(log.Logger),
		template.WithPipeRunner(patternPipeRunner(ctx, inst)),
	}
	if settings != nil {
		extendOpts = append(extendOpts, template.WithGroups(settings.Groups()))
	}
	extended, err := template.Extend(doc, extendOpts...)
	if err != nil {
		return nil, err
	}

	result, err := inst.Instantiate(ctx, extended)
	if err != nil {
		return nil, err
	}
	return printable(result), nil
}

// patternPipeRunner builds template pipes through the pattern engine.
func patternPipeRunner(ctx context.Context, inst *pattern.Instantiator) template.PipeRunner {
	return func(pipeCfg any, value any) (any, error) {
		obj, err := pattern.ParseObject(pipeCfg)
		if err != nil {
			return nil, fmt.Errorf("template pipe is not an object pattern: %w", err)
		}
		built, err := inst.Instantiate(ctx, obj.Encode())
		if err != nil {
			return nil, err
		}
		fn, ok := runtime.AsCallable(built)
		if !ok {
			return nil, fmt.Errorf("template pipe resolved to %s, want a callable", runtime.TypeName(built))
		}
		return fn.Call(ctx, runtime.SingleArg(value))
	}
}

// printable replaces values the serializers cannot represent, such as
// callables, with a readable placeholder.
func printable(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = printable(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = printable(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = printable(e)
		}
		return out
	default:
		if _, ok := runtime.AsCallable(v); ok {
			return fmt.Sprintf("<callable %s>", runtime.TypeName(v))
		}
		return v
	}
}

// emit writes a value to stdout in YAML, or JSON with --json.
func emit(v any, forceJSON bool) error {
	if forceJSON || jsonOutput {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
