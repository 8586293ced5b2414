// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the structcast engine.
//
// Logging wraps zerolog; metrics carry their own registry so tests and
// embedders never collide with the global one; tracing exports over OTLP
// or stdout depending on configuration. All three are optional: a zero
// MetricsConfig or TracingConfig yields no-op instances that are safe to
// call from hot paths.
package telemetry
