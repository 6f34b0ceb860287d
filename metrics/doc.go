// Package metrics serves Prometheus metrics for the engine: per-command
// counters and latencies, and handle pool occupancy.
package metrics
