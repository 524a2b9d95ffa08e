// Package prometheus exposes goGrant engine metrics as a client_golang Collector.
//
// [NewPrometheusExporter] wraps an [goGrant.Engine]; its Handler serves a private
// registry through promhttp. Counter names are gogrant_*_total and the single
// histogram is gogrant_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers mount the Handler or
//     register the exporter themselves.
//   - Mutate engine state.
package prometheus
