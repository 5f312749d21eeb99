// Package metrics defines and registers the Prometheus metrics exposed by
// SimpliDFS: node health state, Raft role and log position, replica and
// chunk-store health, and background worker activity. Metrics are
// registered once in init() and are safe to update from any goroutine;
// Handler() exposes them for an external scraper, since this package never
// starts an HTTP server of its own.
package metrics
