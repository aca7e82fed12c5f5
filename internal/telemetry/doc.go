// Package telemetry provides OpenTelemetry initialization and helpers
// for the meal analysis service.
//
// Traces and logs are exported over OTLP HTTP. Metrics are served in the
// Prometheus text format from the handler returned by InitMetrics.
package telemetry
