package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/contexthub/internal/store"
	"github.com/obsidianstack/contexthub/pkg/value"
)

// --- helpers ---

func keysFor(name string) []value.Value {
	return []value.Value{value.String(name)}
}

// scrape fetches and parses the text exposition for reg.
func scrape(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}

// labeledValue returns the value of the series in families[name] whose labels
// include all of want. Fails the test if no such series exists.
func labeledValue(t *testing.T, families []*dto.MetricFamily, name string, want map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			have := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if have[k] != v {
					continue metric
				}
			}
			if m.Counter != nil {
				return m.Counter.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("no series %s with labels %v", name, want)
	return 0
}

// --- tests ---

func TestStoreMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New()
	NewMetrics("contexthub", reg, st)

	if _, err := st.Open(keysFor("live"), time.Hour); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Open(keysFor("stale"), 0); err != nil {
		t.Fatalf("Open: %v", err)
	}

	mfs := scrape(t, reg)

	checks := []struct {
		name string
		want float64
	}{
		{"contexthub_store_contexts", 2},
		{"contexthub_store_contexts_live", 1},
		{"contexthub_store_contexts_stale", 1},
		{"contexthub_store_opens_total", 2},
		{"contexthub_store_creates_total", 2},
		{"contexthub_store_fetches_total", 0},
	}
	for _, c := range checks {
		if got := sumFamily(mfs[c.name]); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestStoreMetrics_CountersFollowOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New()
	NewMetrics("contexthub", reg, st)

	res, err := st.Open(keysFor("user"), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.Update(res.Key, value.Object(map[string]value.Value{"n": value.Int(1)}))
	st.Update(12345, value.Object(map[string]value.Value{}))

	mfs := scrape(t, reg)

	if got := sumFamily(mfs["contexthub_store_updates_total"]); got != 2 {
		t.Errorf("updates_total: got %v, want 2", got)
	}
	if got := sumFamily(mfs["contexthub_store_replaces_total"]); got != 1 {
		t.Errorf("replaces_total: got %v, want 1", got)
	}
	if got := sumFamily(mfs["contexthub_store_inserts_total"]); got != 1 {
		t.Errorf("inserts_total: got %v, want 1", got)
	}
}

func TestCountRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New()
	m := NewMetrics("contexthub", reg, st)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := CountRequests(m, next)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if got := labeledValue(t, families, "contexthub_api_requests_total",
		map[string]string{"route": "/api/v1/health", "code": "200"}); got != 2 {
		t.Errorf("health 200 count: got %v, want 2", got)
	}
	if got := labeledValue(t, families, "contexthub_api_requests_total",
		map[string]string{"route": "/api/v1/missing", "code": "404"}); got != 1 {
		t.Errorf("missing 404 count: got %v, want 1", got)
	}
}

func TestCountRequests_TrimsKeySegment(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New()
	m := NewMetrics("contexthub", reg, st)

	h := CountRequests(m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Two different keys land on the same route label.
	for _, path := range []string{"/api/v1/contexts/1", "/api/v1/contexts/2"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if got := labeledValue(t, families, "contexthub_api_requests_total",
		map[string]string{"route": "/api/v1/contexts", "code": "200"}); got != 2 {
		t.Errorf("contexts route count: got %v, want 2", got)
	}
}

func TestTrackWSClients(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := store.New()
	m := NewMetrics("contexthub", reg, st)
	m.TrackWSClients(func() int { return 3 })

	mfs := scrape(t, reg)
	if got := sumFamily(mfs["contexthub_ws_clients"]); got != 3 {
		t.Errorf("ws_clients: got %v, want 3", got)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/contexts/123", "/api/v1/contexts"},
		{"/api/v1/contexts/-1", "/api/v1/contexts"},
		{"/api/v1/health", "/api/v1/health"},
		{"/metrics", "/metrics"},
		{"/", "/"},
	}
	for _, tc := range cases {
		if got := routeLabel(tc.path); got != tc.want {
			t.Errorf("routeLabel(%q): got %q, want %q", tc.path, got, tc.want)
		}
	}
}
