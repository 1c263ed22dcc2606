// Package monitor exposes the running spider over HTTP.
//
// Metrics implements crawler.Metrics on a private Prometheus registry.
// Server serves three endpoints:
//
//	GET  /metrics  Prometheus exposition of the registry
//	GET  /status   JSON snapshot: run state, queue, visited count,
//	               collector stats and the recent log
//	POST /toggle   local start/stop trigger
//
// The server is optional; it only runs when a listen address is set.
package monitor
