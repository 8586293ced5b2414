package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestProductionConfigValidates(t *testing.T) {
	cfg := ProductionConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("production config should validate: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("production logging format = %q, want json", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("production config should enable metrics")
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger2"
		}},
		{"bad sampling rate", func(c *Config) { c.Tracing.SamplingRate = 1.5 }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	child := logger.NewComponentLogger("resolver").WithAddress("math.sqrt").WithDepth(3)
	if child == nil {
		t.Fatal("component logger is nil")
	}
}

func TestLoggerFileOutput(t *testing.T) {
	path := t.TempDir() + "/out.log"
	logger, err := NewLogger(LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("written to file")
}

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	// None of these should panic on a disabled instance.
	m.RecordResolution("math", "allowed", time.Millisecond)
	m.RecordDenial("blocked_module")
	m.RecordInstantiation("ok", time.Millisecond)
	m.RecordBudgetAbort("depth")
	m.RecordDepth(4)
	m.RecordModuleLoad("ok")
	m.SetLoadedModules(7)
	m.RecordPolicyEvaluation("allowed")

	var nilMetrics *Metrics
	nilMetrics.RecordResolution("math", "allowed", time.Millisecond)
	nilMetrics.RecordBudgetAbort("time")
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:   true,
		Namespace: "structcast",
	})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordResolution("math", "allowed", 2*time.Millisecond)
	m.RecordDenial("blocked_module")
	m.RecordInstantiation("ok", 5*time.Millisecond)
	m.RecordBudgetAbort("depth")
	m.SetLoadedModules(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 1<<16)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])

	for _, want := range []string{
		"structcast_resolutions_total",
		"structcast_security_denials_total",
		"structcast_instantiations_total",
		"structcast_budget_aborts_total",
		"structcast_loaded_modules",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	if timer.Duration() < 5*time.Millisecond {
		t.Errorf("timer duration %v too short", timer.Duration())
	}
}

func TestDisabledTracer(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false}, "structcast", "test", "test")
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
	ctx, span := tr.StartResolveSpan(t.Context(), "math.sqrt", "")
	span.End()
	if err := tr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
