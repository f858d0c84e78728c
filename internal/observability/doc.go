// Package observability exports Prometheus metrics for contexthub-server.
//
// NewMetrics registers store-level instruments on the given registerer. Store
// series are GaugeFunc/CounterFunc instruments that read the store's counters
// at collection time, so they never drift from /api/v1/stats. CountRequests
// wraps an http.Handler and counts requests by route and status code, with
// path segments beyond the route trimmed to bound label cardinality.
package observability
