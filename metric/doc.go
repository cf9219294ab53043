// Package metric wraps a Prometheus registry with per-component bookkeeping
// and serves it over HTTP.
//
// Components register collectors under their own name so duplicate
// registrations are reported as invalid errors instead of panics:
//
//	registry := metric.NewMetricsRegistry()
//	err := registry.RegisterCounter("sessions", "cache_hits", hits)
//
// Server exposes the registry at /metrics (OpenMetrics enabled) and a plain
// /health endpoint.
package metric
