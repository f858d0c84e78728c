package api

import "github.com/obsidianstack/contexthub/pkg/value"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string  `json:"state"`
	Score        float64 `json:"score"`
	ContextCount int     `json:"context_count"`
	LiveCount    int     `json:"live_count"`
	StaleCount   int     `json:"stale_count"`
	AlertCount   int     `json:"alert_count"`
}

// ContextResponse is one context entry in GET /api/v1/contexts or
// GET /api/v1/contexts/{key}.
type ContextResponse struct {
	Key       int64       `json:"key"`
	Data      value.Value `json:"data"`
	ExpiresAt string      `json:"expires_at"` // RFC3339
	Stale     bool        `json:"stale"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
