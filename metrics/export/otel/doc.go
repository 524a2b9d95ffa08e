// Package otel binds goGrant engine metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [goGrant.Engine.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
