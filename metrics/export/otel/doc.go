// Package otel publishes goSession metrics as OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter, one
// Int64ObservableGauge per histogram bucket plus a count gauge, and the
// gosession_store_ready gauge. A single callback reads the Manager snapshot on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate Manager state.
package otel
