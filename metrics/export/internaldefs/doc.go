// Package internaldefs holds the metric name, help text, and histogram
// bucket definitions shared by the Prometheus and OTel exporters, so both
// surfaces always expose identical names and boundaries.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O or hold mutable state.
package internaldefs
