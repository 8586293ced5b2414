package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the structcast engine.
type Metrics struct {
	config MetricsConfig

	// Resolution metrics
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec

	// Security metrics
	denials *prometheus.CounterVec

	// Instantiation metrics
	instantiations      *prometheus.CounterVec
	instantiateDuration *prometheus.HistogramVec
	budgetAborts        *prometheus.CounterVec
	instantiateDepth    prometheus.Histogram

	// Module metrics
	moduleLoads   *prometheus.CounterVec
	loadedModules prometheus.Gauge

	// Policy metrics
	policyEvaluations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields an instance whose record methods are no-ops.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of address resolutions",
			},
			[]string{"module", "outcome"},
		),
		resolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Duration of address resolution in seconds",
				Buckets:   buckets,
			},
			[]string{"module"},
		),

		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_denials_total",
				Help:      "Total number of security denials",
			},
			[]string{"reason"},
		),

		instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instantiations_total",
				Help:      "Total number of pattern instantiations",
			},
			[]string{"outcome"},
		),
		instantiateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "instantiate_duration_seconds",
				Help:      "Duration of pattern instantiation in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),
		budgetAborts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "budget_aborts_total",
				Help:      "Total number of instantiations aborted by a budget limit",
			},
			[]string{"kind"},
		),
		instantiateDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "instantiate_depth",
				Help:      "Maximum recursion depth reached per instantiation",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		moduleLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_loads_total",
				Help:      "Total number of module file loads",
			},
			[]string{"outcome"},
		),
		loadedModules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loaded_modules",
				Help:      "Current number of registered modules",
			},
		),

		policyEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.resolutions,
		m.resolutionDuration,
		m.denials,
		m.instantiations,
		m.instantiateDuration,
		m.budgetAborts,
		m.instantiateDepth,
		m.moduleLoads,
		m.loadedModules,
		m.policyEvaluations,
	)

	return m, nil
}

// Resolution Metrics

// RecordResolution records an address resolution with its outcome and duration.
func (m *Metrics) RecordResolution(module, outcome string, duration time.Duration) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(module, outcome).Inc()
	m.resolutionDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// Security Metrics

// RecordDenial records a security denial by reason.
func (m *Metrics) RecordDenial(reason string) {
	if m == nil || m.denials == nil {
		return
	}
	m.denials.WithLabelValues(reason).Inc()
}

// Instantiation Metrics

// RecordInstantiation records a completed instantiation with its outcome
// and total duration.
func (m *Metrics) RecordInstantiation(outcome string, duration time.Duration) {
	if m == nil || m.instantiations == nil {
		return
	}
	m.instantiations.WithLabelValues(outcome).Inc()
	m.instantiateDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordBudgetAbort records an instantiation aborted by a budget limit.
// Kind is "depth" or "time".
func (m *Metrics) RecordBudgetAbort(kind string) {
	if m == nil || m.budgetAborts == nil {
		return
	}
	m.budgetAborts.WithLabelValues(kind).Inc()
}

// RecordDepth records the maximum recursion depth reached by an instantiation.
func (m *Metrics) RecordDepth(depth int) {
	if m == nil || m.instantiateDepth == nil {
		return
	}
	m.instantiateDepth.Observe(float64(depth))
}

// Module Metrics

// RecordModuleLoad records a module file load attempt.
func (m *Metrics) RecordModuleLoad(outcome string) {
	if m == nil || m.moduleLoads == nil {
		return
	}
	m.moduleLoads.WithLabelValues(outcome).Inc()
}

// SetLoadedModules sets the current number of registered modules.
func (m *Metrics) SetLoadedModules(count float64) {
	if m == nil || m.loadedModules == nil {
		return
	}
	m.loadedModules.Set(count)
}

// Policy Metrics

// RecordPolicyEvaluation records a policy evaluation outcome.
func (m *Metrics) RecordPolicyEvaluation(outcome string) {
	if m == nil || m.policyEvaluations == nil {
		return
	}
	m.policyEvaluations.WithLabelValues(outcome).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
