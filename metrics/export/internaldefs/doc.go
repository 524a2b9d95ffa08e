// Package internaldefs holds the metric names, help strings and bucket bounds shared
// by the exporter packages.
//
// Both the Prometheus and OTel exporters render from these tables, so a metric
// renamed here is renamed everywhere.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
