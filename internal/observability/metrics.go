package observability

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/obsidianstack/contexthub/internal/store"
)

// Metrics groups all Prometheus instruments used by the server.
type Metrics struct {
	reg       prometheus.Registerer
	namespace string

	APIRequests *prometheus.CounterVec
}

// NewMetrics registers all store instruments on reg and returns the Metrics
// handle used by the HTTP middleware.
func NewMetrics(namespace string, reg prometheus.Registerer, st *store.Store) *Metrics {
	factory := promauto.With(reg)

	stat := func(sel func(store.Stats) float64) func() float64 {
		return func() float64 { return sel(st.Stats()) }
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_contexts",
		Help:      "Number of contexts currently in the store.",
	}, stat(func(s store.Stats) float64 { return float64(s.Entries) }))
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_contexts_live",
		Help:      "Number of stored contexts whose TTL has not elapsed.",
	}, stat(func(s store.Stats) float64 { return float64(s.Live) }))
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_contexts_stale",
		Help:      "Number of stored contexts past their TTL, pending sweep or reset.",
	}, stat(func(s store.Stats) float64 { return float64(s.Stale) }))

	counters := []struct {
		name string
		help string
		sel  func(store.Stats) float64
	}{
		{"store_opens_total", "Total open operations.", func(s store.Stats) float64 { return float64(s.Opens) }},
		{"store_creates_total", "Opens that created a new context.", func(s store.Stats) float64 { return float64(s.Creates) }},
		{"store_fetches_total", "Opens that found a live context.", func(s store.Stats) float64 { return float64(s.Fetches) }},
		{"store_resets_total", "Opens that reset an expired context.", func(s store.Stats) float64 { return float64(s.Resets) }},
		{"store_updates_total", "Total update operations.", func(s store.Stats) float64 { return float64(s.Updates) }},
		{"store_replaces_total", "Updates that replaced an existing context's data.", func(s store.Stats) float64 { return float64(s.Replaces) }},
		{"store_inserts_total", "Updates that inserted data under an unknown key.", func(s store.Stats) float64 { return float64(s.Inserts) }},
		{"store_evictions_total", "Contexts evicted by the background sweep.", func(s store.Stats) float64 { return float64(s.Evictions) }},
	}
	for _, c := range counters {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      c.name,
			Help:      c.help,
		}, stat(c.sel))
	}

	return &Metrics{
		reg:       reg,
		namespace: namespace,
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

// TrackWSClients exports a gauge that reports the current WebSocket client
// count from fn.
func (m *Metrics) TrackWSClients(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ws_clients",
		Help:      "Number of connected WebSocket stream clients.",
	}, func() float64 { return float64(fn()) })
}

// statusRecorder wraps http.ResponseWriter to capture the response status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// CountRequests wraps next and counts each request by route and status code.
func CountRequests(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.APIRequests.WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

// routeLabel bounds label cardinality by keeping at most the first three path
// segments: /api/v1/contexts/123 becomes /api/v1/contexts.
func routeLabel(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return "/" + strings.Join(parts, "/")
}
