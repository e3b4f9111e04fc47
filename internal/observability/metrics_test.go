package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	jobmetrics "github.com/odyssey-erp/campus-erp/internal/jobs"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	jobs.AddOverdue(2)

	body := scrape(t, metrics)
	if !strings.Contains(body, "campus_fees_marked_overdue_total") {
		t.Fatalf("expected body to contain campus_fees_marked_overdue_total, got: %s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go runtime collector, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `campus_http_requests_total{code="418",method="GET",route="/test"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `campus_http_request_duration_seconds_bucket{route="/test"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
	if got := testutil.ToFloat64(metrics.inFlight); got != 0 {
		t.Fatalf("expected no requests in flight, got %v", got)
	}
}

func TestMetricsMiddlewareTracksInFlightAndSize(t *testing.T) {
	metrics := NewMetrics()
	var during float64
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.inFlight)
		_, _ = w.Write([]byte("0123456789"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if during != 1 {
		t.Fatalf("expected one request in flight while serving, got %v", during)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("unmatched", http.MethodGet, "200")); got != 1 {
		t.Fatalf("expected implicit 200 on unmatched route, got %v", got)
	}
	body := scrape(t, metrics)
	if !strings.Contains(body, `campus_http_response_size_bytes_sum{route="unmatched"} 10`) {
		t.Fatalf("expected response size of 10 bytes, got: %s", body)
	}
}

func TestNilMetricsPassThrough(t *testing.T) {
	var metrics *Metrics
	called := false
	metrics.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected next handler to run")
	}
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
