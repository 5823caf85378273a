// Package otel publishes goSession engine metrics through an OpenTelemetry
// [metric.Meter].
//
// Each engine counter and both audit dispatcher counters become an
// Int64ObservableCounter. The validate-latency histogram is exported as a
// cumulative bucket gauge carrying an "le" attribute, plus a count counter.
// The caller owns the MeterProvider; sessiond serve wires one when
// OTEL_METRICS_INTERVAL is set.
package otel
