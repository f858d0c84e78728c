package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/contexthub/internal/funcs"
	"github.com/obsidianstack/contexthub/internal/store"
	"github.com/obsidianstack/contexthub/internal/watchdog"
	"github.com/obsidianstack/contexthub/pkg/value"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It dispatches context operations through the function registry and reads
// entries and statistics from the context store.
type Handler struct {
	store *store.Store
	reg   *funcs.Registry
	wd    *watchdog.Engine
	mux   *http.ServeMux
}

// New creates a Handler wired to the given store, function registry, and
// watchdog engine, and registers all routes. wd may be nil, in which case the
// alerts endpoint reports no alerts.
func New(st *store.Store, reg *funcs.Registry, wd *watchdog.Engine) http.Handler {
	h := &Handler{store: st, reg: reg, wd: wd, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/open", h.open)
	h.mux.HandleFunc("/api/v1/update", h.update)
	h.mux.HandleFunc("/api/v1/functions", h.functions)
	h.mux.HandleFunc("/api/v1/contexts", h.listContexts)
	h.mux.HandleFunc("/api/v1/contexts/", h.getContext) // subtree — extracts {key}
	h.mux.HandleFunc("/api/v1/stats", h.stats)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/diagnostics", h.diagnostics)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// open serves POST /api/v1/open — create-or-fetch a context.
// The body is the open_context argument object: {"keys": [...], "seconds": n}.
func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	args, ok := decodeArgs(w, r)
	if !ok {
		return
	}
	res, err := h.reg.Call(r.Context(), "open_context", args)
	if err != nil {
		callErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, res)
}

// update serves POST /api/v1/update — overwrite a context's data.
// The body is the update_context argument object: {"context": {"key": n, "data": {...}}}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	args, ok := decodeArgs(w, r)
	if !ok {
		return
	}
	res, err := h.reg.Call(r.Context(), "update_context", args)
	if err != nil {
		callErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, res)
}

// functions serves GET /api/v1/functions — the registered function catalog.
func (h *Handler) functions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.reg.List())
}

// listContexts serves GET /api/v1/contexts — all stored contexts.
func (h *Handler) listContexts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]ContextResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toContextResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getContext serves GET /api/v1/contexts/{key} — a single context by key.
func (h *Handler) getContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/contexts/")
	if raw == "" {
		// Bare /api/v1/contexts/ is the listing.
		h.listContexts(w, r)
		return
	}

	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "context key must be an integer")
		return
	}

	info, ok := h.store.Get(uint64(key))
	if !ok {
		jsonErr(w, http.StatusNotFound, "context not found")
		return
	}
	jsonResp(w, http.StatusOK, toContextResponse(info))
}

// stats serves GET /api/v1/stats — store operation counters.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.Stats())
}

// health serves GET /api/v1/health — liveness score and state counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s := h.store.Stats()
	resp := HealthResponse{
		ContextCount: s.Entries,
		LiveCount:    s.Live,
		StaleCount:   s.Stale,
		AlertCount:   h.firingCount(),
	}

	if s.Entries == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	stalePct := float64(s.Stale) / float64(s.Entries) * 100
	resp.Score = 100 - stalePct
	resp.State = stateFromScore(resp.Score)
	jsonResp(w, http.StatusOK, resp)
}

// diagnostics serves GET /api/v1/diagnostics — human-readable health hints.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, computeDiagnostics(h.store.Stats()))
}

// alerts serves GET /api/v1/alerts — active watchdog alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.wd == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.wd.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// decodeArgs reads the request body as a JSON object and returns its fields as
// function call arguments.
func decodeArgs(w http.ResponseWriter, r *http.Request) (funcs.Args, bool) {
	var body value.Value
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	fields, ok := body.AsObject()
	if !ok {
		jsonErr(w, http.StatusBadRequest, "request body must be a json object")
		return nil, false
	}
	return funcs.Args(fields), true
}

// callErr maps a function call error to an HTTP status.
func callErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidArgument):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, funcs.ErrNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	default:
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

// stateFromScore converts a 0–100 liveness score to a health state string.
func stateFromScore(score float64) string {
	switch {
	case score >= 85:
		return "healthy"
	case score >= 60:
		return "degraded"
	default:
		return "critical"
	}
}

// firingCount returns the number of currently firing alerts.
func (h *Handler) firingCount() int {
	if h.wd == nil {
		return 0
	}
	n := 0
	for _, a := range h.wd.Active() {
		if a.State == "firing" {
			n++
		}
	}
	return n
}

// toContextResponse maps a store.ContextInfo to its JSON representation.
func toContextResponse(info store.ContextInfo) ContextResponse {
	return ContextResponse{
		Key:       int64(info.Key),
		Data:      info.Data,
		ExpiresAt: info.ExpiresAt.UTC().Format(time.RFC3339),
		Stale:     info.Stale,
	}
}
