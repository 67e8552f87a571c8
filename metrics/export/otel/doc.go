// Package otel binds authenticator counters to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads
// [botauth.Authenticator.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate authenticator state.
package otel
