// Package prometheus exposes authenticator counters as a Prometheus collector.
//
// [Exporter] implements [prometheus.Collector]. Register it with any registry, or
// mount [Exporter.Handler], which serves it from a private registry. Counter names
// are botauth_*_total; the only histogram is botauth_exchange_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry.
//   - Mutate authenticator state.
package prometheus
