// Package prometheus exposes goSession counters and histograms through client_golang.
//
// [Exporter] is a prometheus.Collector; register it with your own registry or mount
// [Exporter.Handler]. Counter names are gosession_*_total, histograms are
// gosession_*_latency_seconds and gosession_store_ready is a 0/1 gauge.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry.
//   - Mutate Manager state.
package prometheus
