// Package metric provides Prometheus metrics for valtok.
//
//   - prometheus.go: registry, token and HTTP metrics, /metrics handler
//   - collector.go: key ring collector
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
