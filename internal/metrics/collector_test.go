package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	c := NewCollector()

	ctr := c.Counter("test_total", "test counter", `outcome="ok"`)
	ctr.Inc()
	ctr.Inc()
	ctr.Add(3)

	if got := ctr.Value(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	// Same name+labels returns the same counter.
	again := c.Counter("test_total", "test counter", `outcome="ok"`)
	if again.Value() != 5 {
		t.Fatalf("expected shared counter, got %d", again.Value())
	}

	// Different labels are a separate series.
	other := c.Counter("test_total", "test counter", `outcome="fallback"`)
	if other.Value() != 0 {
		t.Fatalf("expected fresh counter for new label set, got %d", other.Value())
	}
}

func TestHistogram(t *testing.T) {
	c := NewCollector()

	h := c.Histogram("test_seconds", "test histogram", []float64{0.5, 1, 5})
	h.Observe(0.3)
	h.Observe(2)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count != 2 {
		t.Fatalf("expected count 2, got %d", h.count)
	}
	if h.sum != 2.3 {
		t.Fatalf("expected sum 2.3, got %f", h.sum)
	}
	// 0.3 falls in every bucket, 2 only in le=5.
	if h.buckets[0].count != 1 || h.buckets[2].count != 2 {
		t.Fatalf("unexpected bucket counts: %+v", h.buckets)
	}
}

func TestHandler_ExpositionFormat(t *testing.T) {
	c := NewCollector()
	c.Counter("stepone_plan_requests_total", "Plan requests by outcome", `outcome="ok"`).Inc()
	c.Histogram("stepone_upstream_latency_seconds", "latency", []float64{1}).Observe(0.5)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"stepone_uptime_seconds",
		`stepone_plan_requests_total{outcome="ok"} 1`,
		"# TYPE stepone_plan_requests_total counter",
		"# TYPE stepone_upstream_latency_seconds histogram",
		`stepone_upstream_latency_seconds_bucket{le="1"} 1`,
		"stepone_upstream_latency_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition output missing %q:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestPlanRequestsHelper(t *testing.T) {
	before := PlanRequests("ok").Value()
	PlanRequests("ok").Inc()
	if got := PlanRequests("ok").Value(); got != before+1 {
		t.Fatalf("expected counter to advance by 1, got %d (was %d)", got, before)
	}
}
