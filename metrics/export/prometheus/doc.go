// Package prometheus exposes goSession engine metrics through a
// client_golang [prometheus.Collector].
//
// Counters are published as gosession_*_total; access validation latency is
// gosession_validate_latency_seconds. Values are read from
// [goSession.Engine.MetricsSnapshot] at scrape time, so the collector holds no
// state of its own.
package prometheus
