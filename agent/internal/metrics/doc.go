// Package metrics exposes the capture store to Prometheus.
//
// NewCollector reads Store.Stats at scrape time and exports capturestack_*
// counters (captures, recaptures, evictions, insert enters/misses/exits,
// lookups/misses, pruned) and gauges (stacks, stacks_capacity, enabled, debug).
// NewRegistry adds the Go runtime and process collectors; Handler serves a
// registry at /metrics using content negotiation from prometheus/common.
package metrics
