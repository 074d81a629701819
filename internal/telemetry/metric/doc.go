// Package metric provides Prometheus metrics for respkv.
//
// It exposes connection counts, per-command rates and latencies, protocol
// errors, pub/sub traffic and store gauges, plus the Go runtime and process
// collectors, on an HTTP handler in the Prometheus text format.
package metric
