// Package api implements the HTTP REST API for contexthub-server.
//
// New(store, registry, watchdog) returns an http.Handler that serves:
//
//	POST /api/v1/open           — create-or-fetch a context (open_context args)
//	POST /api/v1/update         — overwrite a context's data (update_context args)
//	GET  /api/v1/functions      — the function catalog
//	GET  /api/v1/contexts       — all contexts ([]ContextResponse)
//	GET  /api/v1/contexts/{key} — single context; 404 if unknown
//	GET  /api/v1/stats          — store operation counters
//	GET  /api/v1/health         — liveness score, state, entry counts
//	GET  /api/v1/diagnostics    — human-readable health hints ([]DiagnosticHint)
//	GET  /api/v1/alerts         — active watchdog alerts
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for wrong methods
//   - Map invalid arguments to 400 and unknown functions or keys to 404
//
// Context keys appear in URLs and JSON as signed 64-bit integers: the store's
// unsigned key interpreted as an int64 bit pattern, matching what open returns.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
