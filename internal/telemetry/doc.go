// Package telemetry wraps OpenTelemetry SDK initialization, providing the
// service with a centrally configured TracerProvider and MeterProvider.
// When telemetry is disabled the noop implementations are used and no
// external service is contacted.
package telemetry
